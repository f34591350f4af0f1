package catalog

import "github.com/rs/zerolog"

// Enrich fills missing line item fields from the catalog record matching the
// item's SKU (falling back to the item name). Fields the caller already
// populated are left untouched. A missing record is logged and skipped; the
// item still participates in the calculation with whatever data it carries.
func Enrich(p Provider, items []LineItem, log zerolog.Logger) {
	if p == nil {
		return
	}
	for i := range items {
		key := items[i].SKU
		if key == "" {
			key = items[i].Name
		}
		if key == "" {
			continue
		}
		record, ok := p.Product(key)
		if !ok {
			log.Warn().Str("sku", key).Msg("catalog record not found")
			continue
		}
		apply(&items[i], record)
	}
}

func apply(it *LineItem, p Product) {
	if it.Name == "" {
		it.Name = p.Name
	}
	if it.Price == 0 {
		it.Price = p.Price
	}
	if it.UnitWeight == 0 {
		it.UnitWeight = p.UnitWeight
	}
	if it.Length == 0 && it.Width == 0 && it.Height == 0 {
		it.Length, it.Width, it.Height = p.Length, p.Width, p.Height
	}
	if it.Attribute == "" {
		it.Attribute = p.Attribute
	}
	if it.TaxBasePrice == 0 {
		it.TaxBasePrice = p.TaxBasePrice
	}
	if it.ImageURL == "" {
		it.ImageURL = p.ImageURL
	}
}
