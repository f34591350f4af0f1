package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/landed-cost/internal/rules"
)

// ShippingColumns maps the tariff sheet headers. Zero values fall back to
// the production sheet's Chinese headers.
type ShippingColumns struct {
	Carrier           string
	Attribute         string
	Country           string
	Region            string
	WeightMin         string
	WeightMax         string
	FirstWeight       string
	FirstWeightFee    string
	AdditionalUnit    string
	AdditionalUnitFee string
	MinDeliveryDays   string
	MaxDeliveryDays   string
	RegistrationFee   string
	VolumetricDivisor string
	MinChargeWeight   string
	RatePerGram       string
}

// DefaultShippingColumns returns the headers of the production tariff sheet.
func DefaultShippingColumns() ShippingColumns {
	return ShippingColumns{
		Carrier:           "货代公司",
		Attribute:         "货物属性",
		Country:           "国家",
		Region:            "区域",
		WeightMin:         "重量下限(g)",
		WeightMax:         "重量上限(g)",
		FirstWeight:       "首重（g）",
		FirstWeightFee:    "首重费用（元）",
		AdditionalUnit:    "续重（g）",
		AdditionalUnitFee: "续重单价（元）",
		MinDeliveryDays:   "时效最早天数",
		MaxDeliveryDays:   "时效最晚天数",
		RegistrationFee:   "挂号费(RMB/票)",
		VolumetricDivisor: "体积重量转换比",
		MinChargeWeight:   "最低计费重量(g)",
		RatePerGram:       "单价(元/g)",
	}
}

func (c ShippingColumns) withDefaults() ShippingColumns {
	def := DefaultShippingColumns()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&c.Carrier, def.Carrier)
	fill(&c.Attribute, def.Attribute)
	fill(&c.Country, def.Country)
	fill(&c.Region, def.Region)
	fill(&c.WeightMin, def.WeightMin)
	fill(&c.WeightMax, def.WeightMax)
	fill(&c.FirstWeight, def.FirstWeight)
	fill(&c.FirstWeightFee, def.FirstWeightFee)
	fill(&c.AdditionalUnit, def.AdditionalUnit)
	fill(&c.AdditionalUnitFee, def.AdditionalUnitFee)
	fill(&c.MinDeliveryDays, def.MinDeliveryDays)
	fill(&c.MaxDeliveryDays, def.MaxDeliveryDays)
	fill(&c.RegistrationFee, def.RegistrationFee)
	fill(&c.VolumetricDivisor, def.VolumetricDivisor)
	fill(&c.MinChargeWeight, def.MinChargeWeight)
	fill(&c.RatePerGram, def.RatePerGram)
	return c
}

// ShippingRuleSource loads the tariff table from an xlsx workbook.
type ShippingRuleSource struct {
	Path    string
	Sheet   string
	Columns ShippingColumns
	Log     zerolog.Logger
}

// LoadShippingRules implements rules.ShippingSource.
func (s ShippingRuleSource) LoadShippingRules(ctx context.Context) ([]rules.ShippingRule, error) {
	_ = ctx
	cols := s.Columns.withDefaults()
	sh, err := openPath(s.Path, s.Sheet)
	if err != nil {
		return nil, err
	}
	if err := sh.require(cols.Carrier, cols.Country, cols.Attribute, cols.WeightMin, cols.WeightMax); err != nil {
		return nil, fmt.Errorf("shipping rules: %w", err)
	}

	out := make([]rules.ShippingRule, 0, len(sh.rows))
	for i, row := range sh.rows {
		rule := rules.ShippingRule{
			Carrier:           sh.cell(row, cols.Carrier),
			Country:           sh.cell(row, cols.Country),
			Attribute:         sh.cell(row, cols.Attribute),
			Region:            sh.cell(row, cols.Region),
			WeightMin:         sh.cellFloat(row, cols.WeightMin),
			WeightMax:         sh.cellFloat(row, cols.WeightMax),
			MinDeliveryDays:   sh.cellInt(row, cols.MinDeliveryDays),
			MaxDeliveryDays:   sh.cellInt(row, cols.MaxDeliveryDays),
			VolumetricDivisor: sh.cellFloat(row, cols.VolumetricDivisor),
			Tariff:            tariffFromRow(sh, row, cols),
		}
		if rule.Carrier == "" || rule.Tariff == nil {
			s.Log.Warn().Int("row", i+2).Msg("unusable tariff row skipped")
			continue
		}
		out = append(out, rule)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid shipping rules in %s", s.Path)
	}
	return out, nil
}

// tariffFromRow selects the tariff shape from the populated fee columns:
// first-weight tiering when present, otherwise a per-gram rate.
func tariffFromRow(sh *sheet, row []string, cols ShippingColumns) rules.Tariff {
	registration := sh.cellFloat(row, cols.RegistrationFee)
	firstWeight := sh.cellFloat(row, cols.FirstWeight)
	additionalUnit := sh.cellFloat(row, cols.AdditionalUnit)
	if firstWeight > 0 || additionalUnit > 0 {
		return rules.TieredTariff{
			FirstWeight:       firstWeight,
			FirstWeightFee:    sh.cellFloat(row, cols.FirstWeightFee),
			AdditionalUnit:    additionalUnit,
			AdditionalUnitFee: sh.cellFloat(row, cols.AdditionalUnitFee),
			RegistrationFee:   registration,
		}
	}
	if rate := sh.cellFloat(row, cols.RatePerGram); rate > 0 {
		return rules.RateTariff{
			MinChargeWeight: sh.cellFloat(row, cols.MinChargeWeight),
			RatePerGram:     rate,
			RegistrationFee: registration,
		}
	}
	return nil
}

// IossColumns maps the IOSS sheet headers.
type IossColumns struct {
	Country     string
	VATRate     string
	ServiceRate string
}

// DefaultIossColumns returns the headers of the production IOSS sheet.
func DefaultIossColumns() IossColumns {
	return IossColumns{Country: "国家", VATRate: "VAT税率", ServiceRate: "服务费率"}
}

func (c IossColumns) withDefaults() IossColumns {
	def := DefaultIossColumns()
	if c.Country == "" {
		c.Country = def.Country
	}
	if c.VATRate == "" {
		c.VATRate = def.VATRate
	}
	if c.ServiceRate == "" {
		c.ServiceRate = def.ServiceRate
	}
	return c
}

// IossRuleSource loads the per-country IOSS rate table from an xlsx workbook.
type IossRuleSource struct {
	Path    string
	Sheet   string
	Columns IossColumns
	Log     zerolog.Logger
}

// LoadIossRules implements rules.IossSource.
func (s IossRuleSource) LoadIossRules(ctx context.Context) ([]rules.IossRule, error) {
	_ = ctx
	cols := s.Columns.withDefaults()
	sh, err := openPath(s.Path, s.Sheet)
	if err != nil {
		return nil, err
	}
	if err := sh.require(cols.Country, cols.VATRate, cols.ServiceRate); err != nil {
		return nil, fmt.Errorf("ioss rules: %w", err)
	}

	out := make([]rules.IossRule, 0, len(sh.rows))
	for i, row := range sh.rows {
		country := sh.cell(row, cols.Country)
		if country == "" {
			s.Log.Warn().Int("row", i+2).Msg("IOSS row without country skipped")
			continue
		}
		out = append(out, rules.IossRule{
			Country:     country,
			VATRate:     sh.cellRate(row, cols.VATRate),
			ServiceRate: sh.cellRate(row, cols.ServiceRate),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid IOSS rules in %s", s.Path)
	}
	return out, nil
}
