package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
)

const maxPostalKey = 9999

// RateConfig is the static configuration of the engine. It is read once at startup and handed
// to NewEngine, which copies and validates it; nothing mutates it afterwards.
type RateConfig struct {
	Currency            string
	DefaultPolicy       Policy
	Origin              Origin
	FreeShipping        FreeShippingRule
	Mass                MassRules
	Surcharges          Surcharges
	MinPostalCodeLength int
	BracketBounds       []int64
	Zones               []Zone
	DefaultZone         Zone
	Carriers            []Carrier
}

// FreeShippingRule configures the subtotal override.
type FreeShippingRule struct {
	Threshold      decimal.Decimal
	DeliveryWindow string
	Label          string
	ServiceLabel   string
}

// MassRules configures weight resolution. VolumetricFactor is in cm³ per kg.
type MassRules struct {
	DefaultUnitGrams   int64
	MaxChargeableGrams int64
	VolumetricFactor   int64
	DefaultLength      decimal.Decimal
	DefaultWidth       decimal.Decimal
	DefaultHeight      decimal.Decimal
}

// Carrier groups the service levels a carrier offers.
type Carrier struct {
	ID             string
	Name           string
	DeliveryWindow string
	Services       []Service
}

// Service holds one price row per rate area, one price per weight bracket.
type Service struct {
	Level string
	Label string
	Rates map[string][]decimal.Decimal
}

func (c RateConfig) validate() error {
	if strings.TrimSpace(c.Currency) == "" {
		return invalidConfig("currency is required")
	}
	if c.DefaultPolicy != "" && !c.DefaultPolicy.Valid() {
		return invalidConfig("unknown policy %q", c.DefaultPolicy)
	}
	if !c.FreeShipping.Threshold.IsPositive() {
		return invalidConfig("free shipping threshold must be positive")
	}
	m := c.Mass
	if m.DefaultUnitGrams <= 0 {
		return invalidConfig("default unit mass must be positive")
	}
	if m.MaxChargeableGrams <= 0 {
		return invalidConfig("maximum chargeable mass must be positive")
	}
	if m.VolumetricFactor <= 0 {
		return invalidConfig("volumetric factor must be positive")
	}
	if !m.DefaultLength.IsPositive() || !m.DefaultWidth.IsPositive() || !m.DefaultHeight.IsPositive() {
		return invalidConfig("default dimensions must be positive")
	}
	s := c.Surcharges
	if s.InsuranceRate.IsNegative() || s.Packaging.IsNegative() || s.Handling.IsNegative() {
		return invalidConfig("surcharges cannot be negative")
	}
	if c.MinPostalCodeLength < 1 {
		return invalidConfig("minimum postal code length must be at least 1")
	}
	return nil
}

func cloneConfig(c RateConfig) RateConfig {
	out := c
	out.BracketBounds = append([]int64(nil), c.BracketBounds...)
	out.Zones = make([]Zone, len(c.Zones))
	for i, z := range c.Zones {
		out.Zones[i] = cloneZone(z)
	}
	out.DefaultZone = cloneZone(c.DefaultZone)
	out.Carriers = make([]Carrier, len(c.Carriers))
	for i, carrier := range c.Carriers {
		cc := carrier
		cc.Services = make([]Service, len(carrier.Services))
		for j, svc := range carrier.Services {
			cs := svc
			cs.Rates = make(map[string][]decimal.Decimal, len(svc.Rates))
			for area, row := range svc.Rates {
				cs.Rates[area] = append([]decimal.Decimal(nil), row...)
			}
			cc.Services[j] = cs
		}
		out.Carriers[i] = cc
	}
	return out
}

func cloneZone(z Zone) Zone {
	out := z
	out.Ranges = append([]PostalRange(nil), z.Ranges...)
	return out
}
