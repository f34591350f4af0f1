// Package weight computes chargeable weights for shipment lines.
package weight

import "github.com/noah-isme/landed-cost/internal/catalog"

// DefaultVolumetricDivisor is the carrier conversion ratio used when a rule
// or caller does not supply one.
const DefaultVolumetricDivisor = 6000

// Mode selects how the shipment weight is aggregated. The tariff table has
// grown through two generations: older rule sets match on the plain sum of
// actual weights, newer ones on the per-item max of actual and volumetric
// weight. Both stay available and the active one is chosen per rule table.
type Mode string

const (
	// ModeActualSum sums actual weights only.
	ModeActualSum Mode = "actual-sum"
	// ModeChargeableSum sums per-item max(actual, volumetric).
	ModeChargeableSum Mode = "chargeable-sum"
)

// ParseMode maps a configuration string to a Mode, defaulting to
// ModeChargeableSum for unknown values.
func ParseMode(value string) Mode {
	if Mode(value) == ModeActualSum {
		return ModeActualSum
	}
	return ModeChargeableSum
}

// Fill records actual and volumetric weight on every line item. Volumetric
// weight requires all three dimensions to be positive; otherwise it is zero.
func Fill(items []catalog.LineItem, divisor float64) {
	if divisor <= 0 {
		divisor = DefaultVolumetricDivisor
	}
	for i := range items {
		qty := float64(items[i].Quantity)
		items[i].ActualWeight = qty * items[i].UnitWeight
		items[i].VolumetricWeight = 0
		if items[i].Length > 0 && items[i].Width > 0 && items[i].Height > 0 {
			items[i].VolumetricWeight = qty * items[i].Length * items[i].Width * items[i].Height / divisor
		}
	}
}

// Chargeable returns the weight used for tariff matching on a single line:
// the greater of actual and volumetric weight.
func Chargeable(it catalog.LineItem) float64 {
	if it.VolumetricWeight > it.ActualWeight {
		return it.VolumetricWeight
	}
	return it.ActualWeight
}

// Shipment fills per-item weights and returns the aggregate shipment weight
// according to the selected mode.
func Shipment(items []catalog.LineItem, divisor float64, mode Mode) float64 {
	Fill(items, divisor)
	var total float64
	for i := range items {
		switch mode {
		case ModeActualSum:
			total += items[i].ActualWeight
		default:
			total += Chargeable(items[i])
		}
	}
	return total
}
