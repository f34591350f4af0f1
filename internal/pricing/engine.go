// Package pricing combines product, shipping and tax costs into a single
// landed-cost result.
package pricing

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/common"
	"github.com/noah-isme/landed-cost/internal/shipping"
	"github.com/noah-isme/landed-cost/internal/tax"
)

// Result is the priced line item collection with its monetary rollups.
type Result struct {
	Items         []catalog.LineItem `json:"items"`
	TotalAmount   float64            `json:"totalAmount"`
	TotalShipping float64            `json:"totalShipping"`
	TotalTax      float64            `json:"totalTax"`
}

// RuleInfo summarises the tariff rule a quote was priced against.
type RuleInfo struct {
	RuleID         string  `json:"ruleId"`
	Carrier        string  `json:"carrier"`
	Country        string  `json:"country"`
	Region         string  `json:"region"`
	Attribute      string  `json:"attribute"`
	ShipmentWeight float64 `json:"shipmentWeightGram"`
	Fee            float64 `json:"fee"`
	Estimate       string  `json:"deliveryEstimate"`
}

// Engine orchestrates the full landed-cost calculation.
type Engine struct {
	Shipping *shipping.Calculator
	Tax      *tax.Calculator
	Log      zerolog.Logger
}

// CalculateTotals prices the shipment against the caller-selected rule.
// An empty item list yields a zero-value result. A missing selection, or a
// selection without a carrier name, is a caller-input error: "rule chosen
// but no fee" and "no rule chosen" must stay distinguishable.
func (e *Engine) CalculateTotals(ctx context.Context, items []catalog.LineItem, destination string, sel *shipping.Selection) (Result, RuleInfo, tax.Breakdown, error) {
	if len(items) == 0 {
		return Result{}, RuleInfo{}, tax.Breakdown{Country: destination}, nil
	}
	if sel == nil {
		return Result{}, RuleInfo{}, tax.Breakdown{}, common.NewValidationError("no shipping rule selected")
	}
	if strings.TrimSpace(sel.Rule.Carrier) == "" {
		return Result{}, RuleInfo{}, tax.Breakdown{}, common.NewValidationError("selected shipping rule has no carrier")
	}

	fee, shipmentWeight := e.Shipping.Quote(items, *sel)

	var subtotal float64
	for i := range items {
		// Pre-populated totals are kept so callers can fill lines lazily.
		if items[i].Total == 0 && items[i].Price > 0 {
			items[i].Total = items[i].Price * float64(items[i].Quantity)
		}
		subtotal += items[i].Total
	}

	taxInfo, err := e.Tax.Calculate(ctx, items, destination)
	if err != nil {
		return Result{}, RuleInfo{}, tax.Breakdown{}, err
	}

	res := Result{
		Items:         items,
		TotalShipping: fee,
		TotalTax:      taxInfo.Total,
		TotalAmount:   subtotal + fee + taxInfo.Total,
	}

	// Shared costs are split evenly by line count, not by quantity or
	// weight.
	shippingShare := fee / float64(len(items))
	taxShare := taxInfo.Total / float64(len(items))
	for i := range items {
		items[i].ShippingShare = shippingShare
		items[i].TaxShare = taxShare
		items[i].Total += shippingShare + taxShare
	}

	info := RuleInfo{
		RuleID:         sel.Rule.ID,
		Carrier:        sel.Rule.Carrier,
		Country:        sel.Rule.Country,
		Region:         sel.Rule.Region,
		Attribute:      sel.Rule.Attribute,
		ShipmentWeight: shipmentWeight,
		Fee:            fee,
		Estimate:       shipping.DeliveryEstimate(sel.Rule),
	}
	e.Log.Debug().
		Str("destination", destination).
		Str("carrier", sel.Rule.Carrier).
		Float64("total", res.TotalAmount).
		Msg("quote calculated")
	return res, info, taxInfo, nil
}
