// Package invoice groups order lines and rolls them up into per-order
// invoices.
package invoice

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/orders"
	"github.com/noah-isme/landed-cost/internal/rules"
)

// Order is a single product line of an uploaded order export. Lines sharing
// an order number belong to one shipment and one invoice.
type Order = orders.Order

// Invoice is the cost rollup for one order number.
type Invoice struct {
	OrderNumber    string  `json:"orderNumber"`
	Country        string  `json:"country"`
	ProductCost    float64 `json:"productCost"`
	ShippingCost   float64 `json:"shippingCost"`
	TaxCost        float64 `json:"taxCost"`
	RedeliveryCost float64 `json:"redeliveryCost"`
	TotalCharges   float64 `json:"totalCharges"`
}

// Aggregator computes per-order product and tax totals.
type Aggregator struct {
	Catalog catalog.Provider
	Rules   *rules.Repository
	Log     zerolog.Logger
}

type group struct {
	country     string
	productCost float64
}

// CalculateOrderTotals groups order lines by order number (case-sensitive)
// and returns product-cost and import-tax totals per order. Missing catalog
// records contribute zero with a warning; an inconsistent country inside a
// group is corrected to the first line's country. IOSS rates are looked up
// once per distinct country, not per line.
func (a *Aggregator) CalculateOrderTotals(ctx context.Context, orders []Order) (map[string]float64, map[string]float64, error) {
	groups := make(map[string]*group, len(orders))
	for _, o := range orders {
		g, ok := groups[o.OrderNumber]
		if !ok {
			g = &group{country: o.Country}
			groups[o.OrderNumber] = g
		} else if o.Country != g.country {
			a.Log.Warn().
				Str("order", o.OrderNumber).
				Str("country", o.Country).
				Str("using", g.country).
				Msg("inconsistent country within order, first line wins")
		}
		g.productCost += a.unitCost(o) * float64(o.Quantity)
	}

	productTotals := make(map[string]float64, len(groups))
	taxTotals := make(map[string]float64, len(groups))
	iossByCountry := make(map[string]rules.IossRule)
	for number, g := range groups {
		productTotals[number] = g.productCost

		rule, ok := iossByCountry[g.country]
		if !ok {
			found := false
			var err error
			rule, found, err = a.Rules.IossRule(ctx, g.country)
			if err != nil {
				return nil, nil, err
			}
			if !found {
				a.Log.Warn().Str("country", g.country).Str("order", number).Msg("no IOSS rule for country, tax treated as zero")
			}
			iossByCountry[g.country] = rule
		}
		taxTotals[number] = g.productCost * (rule.VATRate + rule.ServiceRate)
	}
	return productTotals, taxTotals, nil
}

func (a *Aggregator) unitCost(o Order) float64 {
	if o.UnitCostOverride > 0 {
		return o.UnitCostOverride
	}
	if a.Catalog != nil {
		if p, ok := a.Catalog.Product(o.SKU); ok {
			return p.Price
		}
	}
	a.Log.Warn().Str("order", o.OrderNumber).Str("sku", o.SKU).Msg("SKU not in catalog, costed at zero")
	return 0
}

// CreateInvoices joins the computed totals with actual shipping costs into
// one invoice per order number, sorted by order number. A missing shipping
// cost defaults to zero; a negative one is clamped to zero and logged as a
// data correction.
func (a *Aggregator) CreateInvoices(orders []Order, productTotals, taxTotals, shippingCosts map[string]float64) []Invoice {
	countries := make(map[string]string, len(orders))
	numbers := make([]string, 0, len(orders))
	for _, o := range orders {
		if _, seen := countries[o.OrderNumber]; !seen {
			countries[o.OrderNumber] = o.Country
			numbers = append(numbers, o.OrderNumber)
		}
	}
	sort.Strings(numbers)

	invoices := make([]Invoice, 0, len(numbers))
	for _, number := range numbers {
		shippingCost := shippingCosts[number]
		if shippingCost < 0 {
			a.Log.Warn().Str("order", number).Float64("shipping_cost", shippingCost).Msg("negative shipping cost clamped to zero")
			shippingCost = 0
		}
		inv := Invoice{
			OrderNumber:  number,
			Country:      countries[number],
			ProductCost:  productTotals[number],
			ShippingCost: shippingCost,
			TaxCost:      taxTotals[number],
		}
		inv.TotalCharges = inv.ProductCost + inv.ShippingCost + inv.TaxCost + inv.RedeliveryCost
		invoices = append(invoices, inv)
	}
	return invoices
}
