package rules

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ShippingSource supplies the carrier tariff table.
type ShippingSource interface {
	LoadShippingRules(ctx context.Context) ([]ShippingRule, error)
}

// IossSource supplies the per-country IOSS rate table.
type IossSource interface {
	LoadIossRules(ctx context.Context) ([]IossRule, error)
}

// Repository caches the reference rule tables for the process lifetime.
// The first Load wins; concurrent callers block on the same load and every
// later call is a lock-free read. Source failures are sticky: a failed load
// is reported to all callers and never silently retried.
type Repository struct {
	Shipping ShippingSource
	Ioss     IossSource
	Cache    *Cache
	Log      zerolog.Logger

	once    sync.Once
	loadErr error

	shipping []ShippingRule
	byID     map[string]ShippingRule
	ioss     map[string]IossRule
}

// Load populates the cache exactly once. It is safe to call from multiple
// goroutines; all of them observe the outcome of the single load.
func (r *Repository) Load(ctx context.Context) error {
	r.once.Do(func() { r.loadErr = r.load(ctx) })
	return r.loadErr
}

func (r *Repository) load(ctx context.Context) error {
	shipping, ioss, fromCache := r.fromSnapshot(ctx)
	if !fromCache {
		var err error
		if r.Shipping != nil {
			shipping, err = r.Shipping.LoadShippingRules(ctx)
			if err != nil {
				return err
			}
		}
		if r.Ioss != nil {
			ioss, err = r.Ioss.LoadIossRules(ctx)
			if err != nil {
				return err
			}
		}
	}

	r.byID = make(map[string]ShippingRule, len(shipping))
	for i := range shipping {
		if shipping[i].ID == "" {
			shipping[i].ID = uuid.NewString()
		}
		r.byID[shipping[i].ID] = shipping[i]
	}
	r.shipping = shipping

	r.ioss = make(map[string]IossRule, len(ioss))
	for _, rule := range ioss {
		r.ioss[strings.ToLower(strings.TrimSpace(rule.Country))] = rule
	}

	if !fromCache {
		r.storeSnapshot(ctx, shipping, ioss)
	}
	r.Log.Info().
		Int("shipping_rules", len(r.shipping)).
		Int("ioss_rules", len(r.ioss)).
		Bool("from_cache", fromCache).
		Msg("rule tables loaded")
	return nil
}

// ShippingRules returns the full tariff table.
func (r *Repository) ShippingRules(ctx context.Context) ([]ShippingRule, error) {
	if err := r.Load(ctx); err != nil {
		return nil, err
	}
	return r.shipping, nil
}

// RuleByID resolves a shipping rule previously surfaced to a caller.
func (r *Repository) RuleByID(ctx context.Context, id string) (ShippingRule, bool, error) {
	if err := r.Load(ctx); err != nil {
		return ShippingRule{}, false, err
	}
	rule, ok := r.byID[id]
	return rule, ok, nil
}

// IossRule looks up the IOSS rates for a country, case-insensitively.
// Absence is a valid "no tax applies" outcome, not an error.
func (r *Repository) IossRule(ctx context.Context, country string) (IossRule, bool, error) {
	if err := r.Load(ctx); err != nil {
		return IossRule{}, false, err
	}
	rule, ok := r.ioss[strings.ToLower(strings.TrimSpace(country))]
	return rule, ok, nil
}

func (r *Repository) fromSnapshot(ctx context.Context) ([]ShippingRule, []IossRule, bool) {
	if r.Cache == nil {
		return nil, nil, false
	}
	snap, ok, err := r.Cache.Snapshot(ctx)
	if err != nil {
		r.Log.Warn().Err(err).Msg("rule snapshot read failed")
		return nil, nil, false
	}
	if !ok {
		return nil, nil, false
	}
	return snap.ShippingRules(), snap.Ioss, true
}

func (r *Repository) storeSnapshot(ctx context.Context, shipping []ShippingRule, ioss []IossRule) {
	if r.Cache == nil {
		return
	}
	if err := r.Cache.Store(ctx, newSnapshot(shipping, ioss)); err != nil {
		r.Log.Warn().Err(err).Msg("rule snapshot write failed")
	}
}
