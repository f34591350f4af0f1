package catalog

import "strings"

// Product is a single catalog record keyed by SKU.
type Product struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Attribute    string  `json:"attribute"`
	UnitWeight   float64 `json:"unitWeightGram"`
	Length       float64 `json:"lengthCm"`
	Width        float64 `json:"widthCm"`
	Height       float64 `json:"heightCm"`
	TaxBasePrice float64 `json:"taxBasePrice"`
	ImageURL     string  `json:"imageUrl"`
}

// Provider resolves catalog records by SKU.
type Provider interface {
	Product(sku string) (Product, bool)
}

// Static is an in-memory catalog built once from loader output.
type Static map[string]Product

// Product implements Provider with an exact SKU match.
func (s Static) Product(sku string) (Product, bool) {
	p, ok := s[sku]
	return p, ok
}

// LineItem is a single shipment line being priced. The weight aggregator
// and pricing engine fill the derived fields in place.
type LineItem struct {
	SKU          string  `json:"sku,omitempty"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity" validate:"gt=0"`
	Price        float64 `json:"price" validate:"gte=0"`
	UnitWeight   float64 `json:"unitWeightGram"`
	Length       float64 `json:"lengthCm,omitempty"`
	Width        float64 `json:"widthCm,omitempty"`
	Height       float64 `json:"heightCm,omitempty"`
	Attribute    string  `json:"attribute,omitempty"`
	TaxBasePrice float64 `json:"taxBasePrice,omitempty"`
	ImageURL     string  `json:"imageUrl,omitempty"`

	ActualWeight     float64 `json:"actualWeightGram"`
	VolumetricWeight float64 `json:"volumetricWeightGram"`
	ShippingShare    float64 `json:"shippingShare"`
	TaxShare         float64 `json:"taxShare"`
	Total            float64 `json:"total"`
}

// NormalizeAttribute lowercases and trims a cargo attribute tag for matching.
func NormalizeAttribute(attr string) string {
	return strings.ToLower(strings.TrimSpace(attr))
}
