package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/config"
	"github.com/noah-isme/landed-cost/internal/health"
	"github.com/noah-isme/landed-cost/internal/invoice"
	"github.com/noah-isme/landed-cost/internal/obs"
	"github.com/noah-isme/landed-cost/internal/pricing"
	"github.com/noah-isme/landed-cost/internal/rules"
	"github.com/noah-isme/landed-cost/internal/security"
	"github.com/noah-isme/landed-cost/internal/shipping"
	"github.com/noah-isme/landed-cost/internal/source"
	"github.com/noah-isme/landed-cost/internal/tax"
	"github.com/noah-isme/landed-cost/internal/weight"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "landedcost")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	if metricsEnabled {
		obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			// The snapshot cache is an optimisation, not a dependency.
			logger.Warn().Err(err).Msg("redis unreachable, rule snapshot cache disabled")
			redisClient = nil
		}
		cancel()
	}

	repo := &rules.Repository{
		Shipping: source.ShippingRuleSource{Path: cfg.ShippingRulesPath, Sheet: cfg.ShippingRulesSheet, Log: logger},
		Ioss:     source.IossRuleSource{Path: cfg.IossRulesPath, Sheet: cfg.IossRulesSheet, Log: logger},
		Cache:    rules.NewCache(redisClient, cfg.RuleCacheTTL),
		Log:      logger,
	}
	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.Load(loadCtx); err != nil {
		logger.Fatal().Err(err).Msg("load rule tables")
	}
	cancel()

	var products catalog.Provider
	if cfg.CatalogPath != "" {
		static, err := source.CatalogSource{Path: cfg.CatalogPath, Sheet: cfg.CatalogSheet, Log: logger}.Load()
		if err != nil {
			logger.Fatal().Err(err).Msg("load catalog")
		}
		products = static
	} else {
		logger.Warn().Msg("no catalog configured, line items must be fully specified")
	}

	calc := &shipping.Calculator{
		Rules:    repo,
		Priority: cfg.AttributePriority,
		Mode:     weight.ParseMode(cfg.WeightMode),
		Divisor:  cfg.VolumetricDivisor,
		Log:      logger,
	}
	engine := &pricing.Engine{
		Shipping: calc,
		Tax:      &tax.Calculator{Rules: repo, Log: logger},
		Log:      logger,
	}
	aggregator := &invoice.Aggregator{Catalog: products, Rules: repo, Log: logger}

	validate := validator.New()
	shippingHandler := &shipping.Handler{Calc: calc, Catalog: products, Validate: validate}
	quoteHandler := &pricing.Handler{
		Engine:              engine,
		Catalog:             products,
		Validate:            validate,
		DefaultExchangeRate: cfg.DefaultExchangeRate,
	}
	invoiceHandler := &invoice.Handler{Agg: aggregator, DefaultExchangeRate: cfg.DefaultExchangeRate}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	rateStore := limitermemory.NewStore()
	rateMiddleware := limiterstdlib.NewMiddleware(limiter.New(rateStore, limiter.Rate{
		Period: cfg.RateLimitPeriod,
		Limit:  cfg.RateLimitRequests,
	}))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{
		Enable:     envBool("SECURITY_HEADERS_ENABLE", true),
		EnableHSTS: envBool("SECURITY_HSTS_ENABLE", false),
	}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checker: readinessChecker{rules: repo, redis: redisClient}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(rateMiddleware.Handler)
		v.Use(security.BodyLimit{Max: 32 << 20}.Middleware)
		v.Post("/shipping/rules/search", shippingHandler.Search)
		v.Post("/quotes", quoteHandler.Quote)
		v.Post("/invoices", invoiceHandler.Build)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
}

type readinessChecker struct {
	rules *rules.Repository
	redis *redis.Client
}

func (c readinessChecker) PingRules(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.rules.Load(ctx)
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
