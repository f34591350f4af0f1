package rules

import "strings"

// Tariff is the fee shape attached to a shipping rule. Exactly one concrete
// shape applies per rule; callers switch on the concrete type instead of
// probing optional fields.
type Tariff interface {
	isTariff()
}

// TieredTariff charges a flat fee up to FirstWeight grams and then a fixed
// fee per started additional unit beyond it.
type TieredTariff struct {
	FirstWeight       float64 `json:"firstWeightGram"`
	FirstWeightFee    float64 `json:"firstWeightFee"`
	AdditionalUnit    float64 `json:"additionalUnitGram"`
	AdditionalUnitFee float64 `json:"additionalUnitFee"`
	RegistrationFee   float64 `json:"registrationFee"`
}

func (TieredTariff) isTariff() {}

// RateTariff charges a per-gram rate against the chargeable weight, subject
// to a minimum chargeable weight.
type RateTariff struct {
	MinChargeWeight float64 `json:"minChargeWeightGram"`
	RatePerGram     float64 `json:"ratePerGram"`
	RegistrationFee float64 `json:"registrationFee"`
}

func (RateTariff) isTariff() {}

// ShippingRule is one row of the carrier tariff table. The weight band is
// open-low/closed-high: the rule applies when WeightMin < w <= WeightMax.
type ShippingRule struct {
	ID                string
	Carrier           string
	Country           string
	Attribute         string
	Region            string
	WeightMin         float64
	WeightMax         float64
	MinDeliveryDays   int
	MaxDeliveryDays   int
	VolumetricDivisor float64
	Tariff            Tariff
}

// MatchesWeight reports whether the shipment weight falls inside the band.
func (r ShippingRule) MatchesWeight(grams float64) bool {
	return grams > r.WeightMin && grams <= r.WeightMax
}

// MatchesDestination compares country case-insensitively.
func (r ShippingRule) MatchesDestination(country string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Country), strings.TrimSpace(country))
}

// MatchesAttribute compares the cargo attribute case-insensitively.
func (r ShippingRule) MatchesAttribute(attr string) bool {
	return strings.EqualFold(strings.TrimSpace(r.Attribute), strings.TrimSpace(attr))
}

// IossRule holds the per-country VAT and service rates. Both values are
// decimal fractions; percent strings are converted at load time.
type IossRule struct {
	Country     string  `json:"country"`
	VATRate     float64 `json:"vatRate"`
	ServiceRate float64 `json:"serviceRate"`
}
