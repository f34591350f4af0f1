// Package orders holds the order-line model shared by the workbook
// loaders and the invoice aggregator.
package orders

// Order is a single product line of an uploaded order export. Lines sharing
// an order number belong to one shipment and one invoice.
type Order struct {
	OrderNumber    string  `json:"orderNumber"`
	Status         string  `json:"status,omitempty"`
	Note           string  `json:"note,omitempty"`
	PaymentTime    string  `json:"paymentTime,omitempty"`
	CountryCode    string  `json:"countryCode,omitempty"`
	Country        string  `json:"country"`
	ProductName    string  `json:"productName,omitempty"`
	ShopName       string  `json:"shopName,omitempty"`
	SKU            string  `json:"sku"`
	CombinationSKU string  `json:"combinationSku,omitempty"`
	Quantity       int     `json:"quantity"`
	TotalWeight    float64 `json:"totalWeightGram,omitempty"`
	// UnitCostOverride replaces the catalog price for every unit of this
	// line when positive.
	UnitCostOverride float64 `json:"unitCostOverride,omitempty"`
}
