package rules_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/landed-cost/internal/rules"
)

type countingShippingSource struct {
	calls atomic.Int32
	rules []rules.ShippingRule
	err   error
}

func (s *countingShippingSource) LoadShippingRules(context.Context) ([]rules.ShippingRule, error) {
	s.calls.Add(1)
	return s.rules, s.err
}

type staticIossSource struct{ rules []rules.IossRule }

func (s staticIossSource) LoadIossRules(context.Context) ([]rules.IossRule, error) {
	return s.rules, nil
}

func sampleRules() []rules.ShippingRule {
	return []rules.ShippingRule{
		{Carrier: "YunExpress", Country: "France", Attribute: "general", WeightMax: 2000, Tariff: rules.TieredTariff{FirstWeight: 500, FirstWeightFee: 10}},
		{Carrier: "4PX", Country: "Germany", Attribute: "electric", WeightMax: 5000, Tariff: rules.RateTariff{RatePerGram: 0.02}},
	}
}

func TestRepositoryLoadsOnce(t *testing.T) {
	src := &countingShippingSource{rules: sampleRules()}
	repo := &rules.Repository{
		Shipping: src,
		Ioss:     staticIossSource{rules: []rules.IossRule{{Country: "France", VATRate: 0.2}}},
		Log:      zerolog.Nop(),
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ShippingRules(ctx)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), src.calls.Load())

	got, err := repo.ShippingRules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int32(1), src.calls.Load())
}

func TestRepositoryLoadErrorIsSticky(t *testing.T) {
	src := &countingShippingSource{err: errors.New("sheet offline")}
	repo := &rules.Repository{Shipping: src, Log: zerolog.Nop()}

	ctx := context.Background()
	require.Error(t, repo.Load(ctx))
	_, err := repo.ShippingRules(ctx)
	require.Error(t, err)
	_, _, err = repo.IossRule(ctx, "France")
	require.Error(t, err)

	// The failed load is never silently retried.
	require.Equal(t, int32(1), src.calls.Load())
}

func TestRepositoryAssignsRuleIDs(t *testing.T) {
	repo := &rules.Repository{
		Shipping: &countingShippingSource{rules: sampleRules()},
		Log:      zerolog.Nop(),
	}
	ctx := context.Background()
	got, err := repo.ShippingRules(ctx)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, rule := range got {
		require.NotEmpty(t, rule.ID)
		require.False(t, seen[rule.ID], "rule IDs must be unique")
		seen[rule.ID] = true

		byID, ok, err := repo.RuleByID(ctx, rule.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, rule.Carrier, byID.Carrier)
	}

	_, ok, err := repo.RuleByID(ctx, "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRepositoryIossLookupCaseInsensitive(t *testing.T) {
	repo := &rules.Repository{
		Shipping: &countingShippingSource{rules: sampleRules()},
		Ioss:     staticIossSource{rules: []rules.IossRule{{Country: "France", VATRate: 0.2, ServiceRate: 0.05}}},
		Log:      zerolog.Nop(),
	}
	ctx := context.Background()

	for _, country := range []string{"France", "france", " FRANCE "} {
		rule, ok, err := repo.IossRule(ctx, country)
		require.NoError(t, err)
		require.True(t, ok, "country %q", country)
		require.InDelta(t, 0.2, rule.VATRate, 1e-9)
	}

	_, ok, err := repo.IossRule(ctx, "Japan")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatchesWeightBandIsOpenLowClosedHigh(t *testing.T) {
	rule := rules.ShippingRule{WeightMin: 100, WeightMax: 500}
	require.False(t, rule.MatchesWeight(100))
	require.True(t, rule.MatchesWeight(100.001))
	require.True(t, rule.MatchesWeight(500))
	require.False(t, rule.MatchesWeight(500.001))
}
