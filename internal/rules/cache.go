package rules

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "rules:snapshot:v1"

// Cache stores a JSON snapshot of the loaded rule tables in Redis so a
// restarted process can skip the upstream sheet fetch. All methods are
// nil-safe; a Cache without a client is a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a snapshot cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// snapshot flattens the tagged tariff variants for JSON round-tripping.
type snapshot struct {
	Shipping []snapshotRule `json:"shipping"`
	Ioss     []IossRule     `json:"ioss"`
}

type snapshotRule struct {
	ID                string  `json:"id"`
	Carrier           string  `json:"carrier"`
	Country           string  `json:"country"`
	Attribute         string  `json:"attribute"`
	Region            string  `json:"region"`
	WeightMin         float64 `json:"weightMinGram"`
	WeightMax         float64 `json:"weightMaxGram"`
	MinDeliveryDays   int     `json:"minDeliveryDays"`
	MaxDeliveryDays   int     `json:"maxDeliveryDays"`
	VolumetricDivisor float64 `json:"volumetricDivisor"`

	Kind              string  `json:"kind"`
	FirstWeight       float64 `json:"firstWeightGram,omitempty"`
	FirstWeightFee    float64 `json:"firstWeightFee,omitempty"`
	AdditionalUnit    float64 `json:"additionalUnitGram,omitempty"`
	AdditionalUnitFee float64 `json:"additionalUnitFee,omitempty"`
	MinChargeWeight   float64 `json:"minChargeWeightGram,omitempty"`
	RatePerGram       float64 `json:"ratePerGram,omitempty"`
	RegistrationFee   float64 `json:"registrationFee"`
}

const (
	kindTiered = "tiered"
	kindRate   = "rate"
)

func newSnapshot(shipping []ShippingRule, ioss []IossRule) snapshot {
	snap := snapshot{Ioss: ioss, Shipping: make([]snapshotRule, 0, len(shipping))}
	for _, rule := range shipping {
		row := snapshotRule{
			ID:                rule.ID,
			Carrier:           rule.Carrier,
			Country:           rule.Country,
			Attribute:         rule.Attribute,
			Region:            rule.Region,
			WeightMin:         rule.WeightMin,
			WeightMax:         rule.WeightMax,
			MinDeliveryDays:   rule.MinDeliveryDays,
			MaxDeliveryDays:   rule.MaxDeliveryDays,
			VolumetricDivisor: rule.VolumetricDivisor,
		}
		switch t := rule.Tariff.(type) {
		case TieredTariff:
			row.Kind = kindTiered
			row.FirstWeight = t.FirstWeight
			row.FirstWeightFee = t.FirstWeightFee
			row.AdditionalUnit = t.AdditionalUnit
			row.AdditionalUnitFee = t.AdditionalUnitFee
			row.RegistrationFee = t.RegistrationFee
		case RateTariff:
			row.Kind = kindRate
			row.MinChargeWeight = t.MinChargeWeight
			row.RatePerGram = t.RatePerGram
			row.RegistrationFee = t.RegistrationFee
		default:
			continue
		}
		snap.Shipping = append(snap.Shipping, row)
	}
	return snap
}

// ShippingRules rebuilds typed rules from the flattened snapshot rows.
func (s snapshot) ShippingRules() []ShippingRule {
	out := make([]ShippingRule, 0, len(s.Shipping))
	for _, row := range s.Shipping {
		rule := ShippingRule{
			ID:                row.ID,
			Carrier:           row.Carrier,
			Country:           row.Country,
			Attribute:         row.Attribute,
			Region:            row.Region,
			WeightMin:         row.WeightMin,
			WeightMax:         row.WeightMax,
			MinDeliveryDays:   row.MinDeliveryDays,
			MaxDeliveryDays:   row.MaxDeliveryDays,
			VolumetricDivisor: row.VolumetricDivisor,
		}
		switch row.Kind {
		case kindTiered:
			rule.Tariff = TieredTariff{
				FirstWeight:       row.FirstWeight,
				FirstWeightFee:    row.FirstWeightFee,
				AdditionalUnit:    row.AdditionalUnit,
				AdditionalUnitFee: row.AdditionalUnitFee,
				RegistrationFee:   row.RegistrationFee,
			}
		case kindRate:
			rule.Tariff = RateTariff{
				MinChargeWeight: row.MinChargeWeight,
				RatePerGram:     row.RatePerGram,
				RegistrationFee: row.RegistrationFee,
			}
		default:
			continue
		}
		out = append(out, rule)
	}
	return out
}

// Snapshot fetches the cached tables. It reports whether a snapshot existed.
func (c *Cache) Snapshot(ctx context.Context) (snapshot, bool, error) {
	if c == nil || c.client == nil {
		return snapshot{}, false, nil
	}
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return snapshot{}, false, nil
		}
		return snapshot{}, false, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, false, err
	}
	return snap, true, nil
}

// Store serialises the tables and writes them with the configured TTL.
func (c *Cache) Store(ctx context.Context, snap snapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey, data, c.ttl).Err()
}
