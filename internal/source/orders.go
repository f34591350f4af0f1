package source

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/noah-isme/landed-cost/internal/catalog"
	"github.com/noah-isme/landed-cost/internal/orders"
)

// Order export headers as produced by the shop backend.
const (
	colOrderNumber    = "交易编号"
	colOrderStatus    = "订单状态"
	colOrderNote      = "订单备注"
	colPaymentTime    = "支付时间"
	colCountryCode    = "国家代码"
	colCountry        = "国家"
	colProductName    = "产品名称"
	colShopName       = "店铺名称"
	colSKU            = "SKU"
	colCombinationSKU = "组合SKU"
	colQuantity       = "商品数量"
	colTotalWeight    = "总重量"
	colUnitCost       = "成本单价"
	colShippingCost   = "实际运费"
)

// LoadOrders parses an order export workbook into order lines.
func LoadOrders(r io.Reader, sheetName string, log zerolog.Logger) ([]orders.Order, error) {
	sh, err := openSheet(r, sheetName)
	if err != nil {
		return nil, err
	}
	if err := sh.require(colOrderNumber, colOrderStatus, colSKU, colQuantity); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	out := make([]orders.Order, 0, len(sh.rows))
	for i, row := range sh.rows {
		o := orders.Order{
			OrderNumber:      sh.cell(row, colOrderNumber),
			Status:           sh.cell(row, colOrderStatus),
			Note:             sh.cell(row, colOrderNote),
			PaymentTime:      sh.cell(row, colPaymentTime),
			CountryCode:      sh.cell(row, colCountryCode),
			Country:          sh.cell(row, colCountry),
			ProductName:      sh.cell(row, colProductName),
			ShopName:         sh.cell(row, colShopName),
			SKU:              sh.cell(row, colSKU),
			CombinationSKU:   sh.cell(row, colCombinationSKU),
			Quantity:         sh.cellInt(row, colQuantity),
			TotalWeight:      sh.cellFloat(row, colTotalWeight),
			UnitCostOverride: sh.cellFloat(row, colUnitCost),
		}
		if o.OrderNumber == "" || o.Quantity <= 0 {
			log.Warn().Int("row", i+2).Msg("unusable order row skipped")
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadShippingCosts parses an (order number -> actual shipping fee) map.
func LoadShippingCosts(r io.Reader, sheetName string, log zerolog.Logger) (map[string]float64, error) {
	sh, err := openSheet(r, sheetName)
	if err != nil {
		return nil, err
	}
	if err := sh.require(colOrderNumber, colShippingCost); err != nil {
		return nil, fmt.Errorf("shipping costs: %w", err)
	}

	out := make(map[string]float64, len(sh.rows))
	for i, row := range sh.rows {
		number := sh.cell(row, colOrderNumber)
		if number == "" {
			log.Warn().Int("row", i+2).Msg("shipping cost row without order number skipped")
			continue
		}
		out[number] = sh.cellFloat(row, colShippingCost)
	}
	return out, nil
}

// CatalogColumns maps the product catalog sheet headers.
type CatalogColumns struct {
	SKU          string
	Name         string
	Price        string
	Attribute    string
	UnitWeight   string
	Length       string
	Width        string
	Height       string
	TaxBasePrice string
	ImageURL     string
}

// DefaultCatalogColumns returns the headers of the production price sheet.
func DefaultCatalogColumns() CatalogColumns {
	return CatalogColumns{
		SKU:          "SKU",
		Name:         "产品",
		Price:        "价格",
		Attribute:    "货物属性",
		UnitWeight:   "单件重量(g)",
		Length:       "长(cm)",
		Width:        "宽(cm)",
		Height:       "高(cm)",
		TaxBasePrice: "税基价格",
		ImageURL:     "图片链接",
	}
}

func (c CatalogColumns) withDefaults() CatalogColumns {
	def := DefaultCatalogColumns()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&c.SKU, def.SKU)
	fill(&c.Name, def.Name)
	fill(&c.Price, def.Price)
	fill(&c.Attribute, def.Attribute)
	fill(&c.UnitWeight, def.UnitWeight)
	fill(&c.Length, def.Length)
	fill(&c.Width, def.Width)
	fill(&c.Height, def.Height)
	fill(&c.TaxBasePrice, def.TaxBasePrice)
	fill(&c.ImageURL, def.ImageURL)
	return c
}

// CatalogSource loads the SKU catalog from an xlsx workbook.
type CatalogSource struct {
	Path    string
	Sheet   string
	Columns CatalogColumns
	Log     zerolog.Logger
}

// Load builds the in-memory catalog. Products are keyed by SKU and, when
// the SKU cell is empty, by product name so legacy price sheets keep
// working.
func (s CatalogSource) Load() (catalog.Static, error) {
	cols := s.Columns.withDefaults()
	sh, err := openPath(s.Path, s.Sheet)
	if err != nil {
		return nil, err
	}
	if err := sh.require(cols.Name, cols.Price); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	out := make(catalog.Static, len(sh.rows))
	for i, row := range sh.rows {
		p := catalog.Product{
			SKU:          sh.cell(row, cols.SKU),
			Name:         sh.cell(row, cols.Name),
			Price:        sh.cellFloat(row, cols.Price),
			Attribute:    sh.cell(row, cols.Attribute),
			UnitWeight:   sh.cellFloat(row, cols.UnitWeight),
			Length:       sh.cellFloat(row, cols.Length),
			Width:        sh.cellFloat(row, cols.Width),
			Height:       sh.cellFloat(row, cols.Height),
			TaxBasePrice: sh.cellFloat(row, cols.TaxBasePrice),
			ImageURL:     sh.cell(row, cols.ImageURL),
		}
		key := p.SKU
		if key == "" {
			key = p.Name
		}
		if key == "" {
			s.Log.Warn().Int("row", i+2).Msg("catalog row without SKU or name skipped")
			continue
		}
		out[key] = p
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid catalog rows in %s", s.Path)
	}
	return out, nil
}
