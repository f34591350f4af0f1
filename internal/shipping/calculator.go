// Package shipping matches carrier tariff rules and computes shipping fees.
package shipping

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/rules"
	"github.com/noah-isme/landed-cost/internal/weight"
)

// DefaultAttributePriority orders cargo attribute tags from most to least
// restrictive. The highest-priority tag present on any line governs the
// whole shipment.
var DefaultAttributePriority = []string{"food", "pure-electric", "special", "electric", "general"}

// DefaultAttribute applies when no line carries a known tag.
const DefaultAttribute = "general"

// Calculator resolves applicable tariff rules and prices shipments.
type Calculator struct {
	Rules    *rules.Repository
	Priority []string
	Mode     weight.Mode
	Divisor  float64
	Log      zerolog.Logger
}

// Match is one candidate rule together with the shipment weight it was
// matched against; the caller picks one and feeds it back as a Selection.
type Match struct {
	Rule           rules.ShippingRule `json:"rule"`
	ShipmentWeight float64            `json:"shipmentWeightGram"`
	Fee            float64            `json:"fee"`
	Estimate       string             `json:"deliveryEstimate"`
}

// Selection is a caller-chosen rule. When ShipmentWeight is positive the
// calculator reuses it instead of re-aggregating, which must produce the
// same fee as a fresh computation.
type Selection struct {
	Rule           rules.ShippingRule
	ShipmentWeight float64
}

// ShipmentAttribute picks the cargo attribute governing the shipment: the
// highest-priority known tag present on any item, else "general".
func (c *Calculator) ShipmentAttribute(items []catalog.LineItem) string {
	present := make(map[string]bool, len(items))
	for _, it := range items {
		present[catalog.NormalizeAttribute(it.Attribute)] = true
	}
	for _, tag := range c.priority() {
		if present[tag] {
			return tag
		}
	}
	return DefaultAttribute
}

// FindApplicableRules returns every tariff rule matching the destination,
// the shipment's governing cargo attribute and its aggregate weight. An
// empty result is a valid outcome, logged at warning level.
func (c *Calculator) FindApplicableRules(ctx context.Context, items []catalog.LineItem, destination string, divisor float64) ([]Match, error) {
	all, err := c.Rules.ShippingRules(ctx)
	if err != nil {
		return nil, err
	}
	if divisor <= 0 {
		divisor = c.divisor()
	}
	shipmentWeight := weight.Shipment(items, divisor, c.Mode)
	attr := c.ShipmentAttribute(items)

	var matches []Match
	for _, rule := range all {
		if !rule.MatchesDestination(destination) || !rule.MatchesAttribute(attr) || !rule.MatchesWeight(shipmentWeight) {
			continue
		}
		matches = append(matches, Match{
			Rule:           rule,
			ShipmentWeight: shipmentWeight,
			Fee:            Fee(rule.Tariff, shipmentWeight),
			Estimate:       DeliveryEstimate(rule),
		})
	}
	if len(matches) == 0 {
		c.Log.Warn().
			Str("destination", destination).
			Str("attribute", attr).
			Float64("shipment_weight_g", shipmentWeight).
			Msg("no applicable shipping rule")
	}
	return matches, nil
}

// Quote prices a shipment against a chosen rule. A previously computed
// shipment weight on the selection is reused verbatim.
func (c *Calculator) Quote(items []catalog.LineItem, sel Selection) (fee, shipmentWeight float64) {
	shipmentWeight = sel.ShipmentWeight
	if shipmentWeight <= 0 {
		divisor := sel.Rule.VolumetricDivisor
		if divisor <= 0 {
			divisor = c.divisor()
		}
		shipmentWeight = weight.Shipment(items, divisor, c.Mode)
	} else {
		// Weight is settled, but per-item weights still feed the report.
		weight.Fill(items, c.divisor())
	}
	return Fee(sel.Rule.Tariff, shipmentWeight), shipmentWeight
}

// Fee computes the charge for a tariff shape at the given weight.
// Tiered tariffs bill every started additional unit in full.
func Fee(t rules.Tariff, grams float64) float64 {
	switch t := t.(type) {
	case rules.TieredTariff:
		if grams <= t.FirstWeight || t.AdditionalUnit <= 0 {
			return t.FirstWeightFee + t.RegistrationFee
		}
		units := math.Ceil((grams - t.FirstWeight) / t.AdditionalUnit)
		return t.FirstWeightFee + units*t.AdditionalUnitFee + t.RegistrationFee
	case rules.RateTariff:
		charge := grams
		if charge < t.MinChargeWeight {
			charge = t.MinChargeWeight
		}
		return charge*t.RatePerGram + t.RegistrationFee
	default:
		return 0
	}
}

// DeliveryEstimate renders the delivery-day range, empty when unknown.
func DeliveryEstimate(r rules.ShippingRule) string {
	if r.MinDeliveryDays <= 0 || r.MaxDeliveryDays <= 0 {
		return ""
	}
	return fmt.Sprintf("%d-%d天", r.MinDeliveryDays, r.MaxDeliveryDays)
}

func (c *Calculator) priority() []string {
	if len(c.Priority) > 0 {
		return c.Priority
	}
	return DefaultAttributePriority
}

func (c *Calculator) divisor() float64 {
	if c.Divisor > 0 {
		return c.Divisor
	}
	return weight.DefaultVolumetricDivisor
}
