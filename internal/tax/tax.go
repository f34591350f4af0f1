// Package tax computes IOSS import tax for a shipment.
package tax

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/rules"
)

// Breakdown reports how the import tax was derived.
type Breakdown struct {
	Country     string  `json:"country"`
	TaxBase     float64 `json:"taxBase"`
	VATRate     float64 `json:"vatRate"`
	ServiceRate float64 `json:"serviceRate"`
	VAT         float64 `json:"vat"`
	Service     float64 `json:"service"`
	Total       float64 `json:"total"`
	RuleFound   bool    `json:"ruleFound"`
}

// Calculator applies the per-country VAT and service rates to the taxable
// base of a shipment.
type Calculator struct {
	Rules *rules.Repository
	Log   zerolog.Logger
}

// Calculate sums the taxable base over items with a positive per-unit tax
// base and applies the destination country's rates. A missing rate rule is a
// valid zero-tax outcome, logged at warning level. The only error condition
// is an unavailable rule source.
func (c *Calculator) Calculate(ctx context.Context, items []catalog.LineItem, country string) (Breakdown, error) {
	bd := Breakdown{Country: country}
	for _, it := range items {
		if it.TaxBasePrice > 0 {
			bd.TaxBase += it.TaxBasePrice * float64(it.Quantity)
		}
	}
	if bd.TaxBase <= 0 {
		return bd, nil
	}
	rule, ok, err := c.Rules.IossRule(ctx, country)
	if err != nil {
		return Breakdown{}, err
	}
	if !ok {
		c.Log.Warn().Str("country", country).Msg("no IOSS rule for country, tax treated as zero")
		return bd, nil
	}
	bd.RuleFound = true
	bd.VATRate = rule.VATRate
	bd.ServiceRate = rule.ServiceRate
	bd.VAT = bd.TaxBase * rule.VATRate
	bd.Service = bd.TaxBase * rule.ServiceRate
	bd.Total = bd.VAT + bd.Service
	return bd, nil
}
