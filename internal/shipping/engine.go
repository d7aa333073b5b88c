package shipping

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Engine computes shipping quotes against an immutable rate configuration. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	cfg     RateConfig
	zones   *zoneIndex
	tariffs *TariffTable
}

// NewEngine validates cfg and builds the lookup structures. The configuration is copied, so
// later changes to cfg do not affect the engine.
func NewEngine(cfg RateConfig) (*Engine, error) {
	cfg = cloneConfig(cfg)
	if cfg.DefaultPolicy == "" {
		cfg.DefaultPolicy = PolicyRanked
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	zones, err := newZoneIndex(cfg.Zones, cfg.DefaultZone)
	if err != nil {
		return nil, err
	}
	tariffs, err := newTariffTable(cfg.BracketBounds, cfg.Carriers, rateAreas(cfg))
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, zones: zones, tariffs: tariffs}, nil
}

func rateAreas(cfg RateConfig) []string {
	set := map[string]struct{}{cfg.DefaultZone.RateArea: {}}
	for _, z := range cfg.Zones {
		set[z.RateArea] = struct{}{}
	}
	areas := make([]string, 0, len(set))
	for area := range set {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	return areas
}

// Quote prices the cart for the destination. Checks run in order: postal code, empty cart,
// weight limit, free shipping, composition.
func (e *Engine) Quote(req QuoteRequest) (Quote, error) {
	policy := req.Policy
	if policy == "" {
		policy = e.cfg.DefaultPolicy
	}
	if !policy.Valid() {
		return Quote{}, fmt.Errorf("%w: policy %q", ErrUnknownTariff, policy)
	}

	zone, err := e.ClassifyZone(req.PostalCode)
	if err != nil {
		return Quote{}, err
	}
	if len(req.Lines) == 0 {
		return Quote{}, ErrEmptyCart
	}

	weight := e.ResolveWeight(req.Lines)
	if limit := e.cfg.Mass.MaxChargeableGrams; weight.ChargeableGrams > limit {
		return Quote{}, &WeightExceededError{
			ChargeableGrams: weight.ChargeableGrams,
			MaxGrams:        limit,
			ChargedByVolume: weight.ChargedByVolume,
		}
	}

	subtotal := Clamp(req.Subtotal)
	q := Quote{
		Policy:                policy,
		Currency:              e.cfg.Currency,
		Zone:                  zone,
		Weight:                weight,
		Origin:                e.cfg.Origin,
		DestinationPostalCode: NormalizePostalCode(req.PostalCode),
	}
	if e.QualifiesForFreeShipping(subtotal) {
		e.applyFreeShipping(&q)
		return q, nil
	}
	if err := e.compose(&q, subtotal); err != nil {
		return Quote{}, err
	}
	return q, nil
}

// ClassifyZone maps a postal code to its zone. Codes without a four-digit key, or whose key no
// zone owns, resolve to the default zone.
func (e *Engine) ClassifyZone(postalCode string) (Zone, error) {
	normalized := NormalizePostalCode(postalCode)
	if len(normalized) < e.cfg.MinPostalCodeLength {
		return Zone{}, fmt.Errorf("%w: %q", ErrInvalidPostalCode, postalCode)
	}
	key, ok := postalKey(normalized)
	if !ok {
		return cloneZone(e.zones.fallback), nil
	}
	return e.zones.lookup(key), nil
}

// Zones lists the configured zones in declaration order followed by the default zone.
func (e *Engine) Zones() []Zone {
	out := make([]Zone, 0, len(e.cfg.Zones)+1)
	for _, z := range e.cfg.Zones {
		out = append(out, cloneZone(z))
	}
	return append(out, cloneZone(e.cfg.DefaultZone))
}

// Tariffs exposes the validated tariff table.
func (e *Engine) Tariffs() *TariffTable { return e.tariffs }

// DefaultPolicy is the policy applied when a request names none.
func (e *Engine) DefaultPolicy() Policy { return e.cfg.DefaultPolicy }

// Currency is the ISO 4217 code every amount is expressed in.
func (e *Engine) Currency() string { return e.cfg.Currency }

// Origin is the dispatch location echoed on quotes.
func (e *Engine) Origin() Origin { return e.cfg.Origin }

// FreeShippingThreshold is the subtotal from which shipping is free.
func (e *Engine) FreeShippingThreshold() decimal.Decimal { return e.cfg.FreeShipping.Threshold }

// MaxChargeableGrams is the heaviest chargeable mass the engine will price.
func (e *Engine) MaxChargeableGrams() int64 { return e.cfg.Mass.MaxChargeableGrams }

// WithPolicy returns an engine sharing this one's tables but defaulting to p.
func (e *Engine) WithPolicy(p Policy) (*Engine, error) {
	if !p.Valid() {
		return nil, invalidConfig("unknown policy %q", p)
	}
	clone := *e
	clone.cfg.DefaultPolicy = p
	return &clone, nil
}
