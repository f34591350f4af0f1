package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	ShippingRulesPath  string
	ShippingRulesSheet string
	IossRulesPath      string
	IossRulesSheet     string
	CatalogPath        string
	CatalogSheet       string

	VolumetricDivisor   float64
	WeightMode          string
	AttributePriority   []string
	DefaultExchangeRate float64

	RuleCacheTTL      time.Duration
	RateLimitPeriod   time.Duration
	RateLimitRequests int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		ShippingRulesPath:  strings.TrimSpace(k.String("SHIPPING_RULES_PATH")),
		ShippingRulesSheet: strings.TrimSpace(k.String("SHIPPING_RULES_SHEET")),
		IossRulesPath:      strings.TrimSpace(k.String("IOSS_RULES_PATH")),
		IossRulesSheet:     strings.TrimSpace(k.String("IOSS_RULES_SHEET")),
		CatalogPath:        strings.TrimSpace(k.String("CATALOG_PATH")),
		CatalogSheet:       strings.TrimSpace(k.String("CATALOG_SHEET")),

		VolumetricDivisor:   parseFloat(k.String("VOLUMETRIC_DIVISOR"), 6000),
		WeightMode:          valueOrDefault(k.String("WEIGHT_MODE"), "chargeable-sum"),
		AttributePriority:   splitAndTrim(k.String("ATTRIBUTE_PRIORITY")),
		DefaultExchangeRate: parseFloat(k.String("DEFAULT_EXCHANGE_RATE"), 6.9),

		RuleCacheTTL:      parseDuration(k.String("RULE_CACHE_TTL"), "12h"),
		RateLimitPeriod:   parseDuration(k.String("RATE_LIMIT_PERIOD"), "1m"),
		RateLimitRequests: int64(parseFloat(k.String("RATE_LIMIT_REQUESTS"), 120)),
	}

	if cfg.ShippingRulesPath == "" {
		return nil, errors.New("SHIPPING_RULES_PATH is required")
	}
	if cfg.IossRulesPath == "" {
		return nil, errors.New("IOSS_RULES_PATH is required")
	}
	if cfg.VolumetricDivisor <= 0 {
		return nil, errors.New("VOLUMETRIC_DIVISOR must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	base := strings.TrimSpace(value)
	if base == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(base, 64)
	if err != nil {
		return fallback
	}
	return v
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
