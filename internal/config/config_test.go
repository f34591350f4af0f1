package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/landed-cost/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"SHIPPING_RULES_PATH": "testdata/rules.xlsx",
		"IOSS_RULES_PATH":     "testdata/ioss.xlsx",
		"APP_ENV":             "",
		"PORT":                "",
		"VOLUMETRIC_DIVISOR":  "",
		"WEIGHT_MODE":         "",
		"RULE_CACHE_TTL":      "",
	})
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.InDelta(t, 6000, cfg.VolumetricDivisor, 1e-9)
	require.Equal(t, "chargeable-sum", cfg.WeightMode)
	require.InDelta(t, 6.9, cfg.DefaultExchangeRate, 1e-9)
	require.Equal(t, 12*time.Hour, cfg.RuleCacheTTL)
	require.Equal(t, time.Minute, cfg.RateLimitPeriod)
	require.Equal(t, int64(120), cfg.RateLimitRequests)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"SHIPPING_RULES_PATH":   "testdata/rules.xlsx",
		"SHIPPING_RULES_SHEET":  "报价表",
		"IOSS_RULES_PATH":       "testdata/ioss.xlsx",
		"PORT":                  "9000",
		"VOLUMETRIC_DIVISOR":    "5000",
		"WEIGHT_MODE":           "actual-sum",
		"ATTRIBUTE_PRIORITY":    "food, electric ,general",
		"DEFAULT_EXCHANGE_RATE": "7.2",
		"CORS_ALLOWED_ORIGINS":  "https://a.example,https://b.example",
	})
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.HTTPAddr())
	require.Equal(t, "报价表", cfg.ShippingRulesSheet)
	require.InDelta(t, 5000, cfg.VolumetricDivisor, 1e-9)
	require.Equal(t, "actual-sum", cfg.WeightMode)
	require.Equal(t, []string{"food", "electric", "general"}, cfg.AttributePriority)
	require.InDelta(t, 7.2, cfg.DefaultExchangeRate, 1e-9)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadRequiresRulePaths(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"SHIPPING_RULES_PATH": "",
		"IOSS_RULES_PATH":     "testdata/ioss.xlsx",
	})
	require.Error(t, err)

	_, err = config.LoadForTests(map[string]string{
		"SHIPPING_RULES_PATH": "testdata/rules.xlsx",
		"IOSS_RULES_PATH":     "",
	})
	require.Error(t, err)
}

func TestLoadRejectsNonPositiveDivisor(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"SHIPPING_RULES_PATH": "testdata/rules.xlsx",
		"IOSS_RULES_PATH":     "testdata/ioss.xlsx",
		"VOLUMETRIC_DIVISOR":  "-1",
	})
	require.Error(t, err)
}
