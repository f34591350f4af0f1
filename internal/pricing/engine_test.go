package pricing_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/common"
	"github.com/noah-isme/landed-cost/internal/pricing"
	"github.com/noah-isme/landed-cost/internal/rules"
	"github.com/noah-isme/landed-cost/internal/shipping"
	"github.com/noah-isme/landed-cost/internal/tax"
	"github.com/noah-isme/landed-cost/internal/weight"
)

type stubShippingSource struct{ rules []rules.ShippingRule }

func (s stubShippingSource) LoadShippingRules(context.Context) ([]rules.ShippingRule, error) {
	return s.rules, nil
}

type stubIossSource struct{ rules []rules.IossRule }

func (s stubIossSource) LoadIossRules(context.Context) ([]rules.IossRule, error) {
	return s.rules, nil
}

func testRule() rules.ShippingRule {
	return rules.ShippingRule{
		ID:        "r-1",
		Carrier:   "YunExpress",
		Country:   "France",
		Attribute: "general",
		WeightMax: 5000,
		Tariff: rules.TieredTariff{
			FirstWeight:       1000,
			FirstWeightFee:    15,
			AdditionalUnit:    500,
			AdditionalUnitFee: 5,
			RegistrationFee:   2,
		},
	}
}

func newEngine(iossRules []rules.IossRule) *pricing.Engine {
	repo := &rules.Repository{
		Shipping: stubShippingSource{rules: []rules.ShippingRule{testRule()}},
		Ioss:     stubIossSource{rules: iossRules},
		Log:      zerolog.Nop(),
	}
	return &pricing.Engine{
		Shipping: &shipping.Calculator{Rules: repo, Mode: weight.ModeChargeableSum, Log: zerolog.Nop()},
		Tax:      &tax.Calculator{Rules: repo, Log: zerolog.Nop()},
		Log:      zerolog.Nop(),
	}
}

func TestCalculateTotalsEmptyItems(t *testing.T) {
	engine := newEngine(nil)
	res, info, bd, err := engine.CalculateTotals(context.Background(), nil, "France", nil)
	require.NoError(t, err)
	require.Zero(t, res.TotalAmount)
	require.Empty(t, res.Items)
	require.Empty(t, info.Carrier)
	require.Equal(t, "France", bd.Country)
}

func TestCalculateTotalsRequiresSelection(t *testing.T) {
	engine := newEngine(nil)
	items := []catalog.LineItem{{Quantity: 1, Price: 10, UnitWeight: 100}}

	_, _, _, err := engine.CalculateTotals(context.Background(), items, "France", nil)
	require.True(t, common.IsValidationError(err))

	_, _, _, err = engine.CalculateTotals(context.Background(), items, "France", &shipping.Selection{})
	require.True(t, common.IsValidationError(err))
}

func TestCalculateTotalsWorkedExample(t *testing.T) {
	engine := newEngine(nil)
	items := []catalog.LineItem{{Quantity: 2, Price: 10, UnitWeight: 1000}}

	res, info, bd, err := engine.CalculateTotals(context.Background(), items, "France", &shipping.Selection{Rule: testRule()})
	require.NoError(t, err)

	// 2000g on a 1000g/15 + 500g@5 + reg 2 tariff: 15 + 2*5 + 2 = 27.
	require.InDelta(t, 27, res.TotalShipping, 1e-9)
	require.Zero(t, res.TotalTax)
	require.InDelta(t, 47, res.TotalAmount, 1e-9)
	require.InDelta(t, 2000, info.ShipmentWeight, 1e-9)
	require.Equal(t, "YunExpress", info.Carrier)
	require.Zero(t, bd.Total)
}

func TestCalculateTotalsReconciles(t *testing.T) {
	engine := newEngine([]rules.IossRule{{Country: "France", VATRate: 0.2, ServiceRate: 0.05}})
	items := []catalog.LineItem{
		{Quantity: 2, Price: 10, UnitWeight: 400, TaxBasePrice: 8},
		{Quantity: 1, Price: 30, UnitWeight: 300},
		{Quantity: 3, Price: 5, UnitWeight: 100},
	}

	res, _, bd, err := engine.CalculateTotals(context.Background(), items, "France", &shipping.Selection{Rule: testRule()})
	require.NoError(t, err)
	require.True(t, bd.RuleFound)

	var lineSum float64
	for _, it := range res.Items {
		lineSum += it.Total
	}
	require.InDelta(t, res.TotalAmount, lineSum, 1e-6)

	// Shared costs split evenly by line count.
	share := res.TotalShipping / 3
	taxShare := res.TotalTax / 3
	for _, it := range res.Items {
		require.InDelta(t, share, it.ShippingShare, 1e-9)
		require.InDelta(t, taxShare, it.TaxShare, 1e-9)
	}
}

func TestCalculateTotalsKeepsPrefilledLineTotals(t *testing.T) {
	engine := newEngine(nil)
	items := []catalog.LineItem{
		{Quantity: 2, Price: 10, UnitWeight: 1000, Total: 18}, // discounted upstream
	}
	res, _, _, err := engine.CalculateTotals(context.Background(), items, "France", &shipping.Selection{Rule: testRule()})
	require.NoError(t, err)
	require.InDelta(t, 18+27, res.TotalAmount, 1e-9)
}
