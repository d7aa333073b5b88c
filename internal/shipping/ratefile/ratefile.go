// Package ratefile reads shipping rate configuration from YAML. An embedded default reproduces
// the storefront's production tariffs and is used when no file is configured.
package ratefile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/shipping"
)

//go:embed rates.yaml
var defaultRates []byte

// File is the on-disk layout of a rate configuration.
type File struct {
	Currency            string           `yaml:"currency"`
	Policy              string           `yaml:"policy"`
	Origin              originFile       `yaml:"origin"`
	FreeShipping        freeShippingFile `yaml:"free_shipping"`
	Mass                massFile         `yaml:"mass"`
	Surcharges          surchargesFile   `yaml:"surcharges"`
	MinPostalCodeLength int              `yaml:"min_postal_code_length"`
	BracketBounds       []int64          `yaml:"bracket_bounds"`
	Zones               []zoneFile       `yaml:"zones"`
	DefaultZone         zoneFile         `yaml:"default_zone"`
	Carriers            []carrierFile    `yaml:"carriers"`
}

type originFile struct {
	PostalCode string `yaml:"postal_code"`
	City       string `yaml:"city"`
	Province   string `yaml:"province"`
}

type freeShippingFile struct {
	Threshold      decimal.Decimal `yaml:"threshold"`
	DeliveryWindow string          `yaml:"delivery_window"`
	Label          string          `yaml:"label"`
	ServiceLabel   string          `yaml:"service_label"`
}

type massFile struct {
	DefaultUnitGrams   int64          `yaml:"default_unit_grams"`
	MaxChargeableGrams int64          `yaml:"max_chargeable_grams"`
	VolumetricFactor   int64          `yaml:"volumetric_factor"`
	DefaultDimensions  dimensionsFile `yaml:"default_dimensions"`
}

type dimensionsFile struct {
	Length decimal.Decimal `yaml:"length"`
	Width  decimal.Decimal `yaml:"width"`
	Height decimal.Decimal `yaml:"height"`
}

type surchargesFile struct {
	InsuranceRate decimal.Decimal `yaml:"insurance_rate"`
	Packaging     decimal.Decimal `yaml:"packaging"`
	Handling      decimal.Decimal `yaml:"handling"`
}

type zoneFile struct {
	ID             string          `yaml:"id"`
	Name           string          `yaml:"name"`
	RateArea       string          `yaml:"rate_area"`
	BaseCost       decimal.Decimal `yaml:"base_cost"`
	CostPerKg      decimal.Decimal `yaml:"cost_per_kg"`
	DeliveryWindow string          `yaml:"delivery_window"`
	Method         string          `yaml:"method"`
	Ranges         []rangeFile     `yaml:"ranges"`
}

type rangeFile struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

type carrierFile struct {
	ID             string        `yaml:"id"`
	Name           string        `yaml:"name"`
	DeliveryWindow string        `yaml:"delivery_window"`
	Services       []serviceFile `yaml:"services"`
}

type serviceFile struct {
	Level string                       `yaml:"level"`
	Label string                       `yaml:"label"`
	Rates map[string][]decimal.Decimal `yaml:"rates"`
}

// Default returns the embedded rate configuration.
func Default() (shipping.RateConfig, error) {
	return Parse(defaultRates)
}

// Load reads a rate file. An empty path selects the embedded default.
func Load(path string) (shipping.RateConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return shipping.RateConfig{}, fmt.Errorf("ratefile: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return shipping.RateConfig{}, fmt.Errorf("ratefile: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into a RateConfig. Unknown keys are rejected. Semantic validation is left
// to shipping.NewEngine.
func Parse(data []byte) (shipping.RateConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return shipping.RateConfig{}, fmt.Errorf("%w: empty rate file", shipping.ErrInvalidRateConfig)
		}
		return shipping.RateConfig{}, fmt.Errorf("%w: %v", shipping.ErrInvalidRateConfig, err)
	}
	return f.RateConfig(), nil
}

// RateConfig converts the file layout into the engine configuration.
func (f File) RateConfig() shipping.RateConfig {
	cfg := shipping.RateConfig{
		Currency:      strings.ToUpper(strings.TrimSpace(f.Currency)),
		DefaultPolicy: shipping.Policy(strings.ToLower(strings.TrimSpace(f.Policy))),
		Origin: shipping.Origin{
			PostalCode: f.Origin.PostalCode,
			City:       f.Origin.City,
			Province:   f.Origin.Province,
		},
		FreeShipping: shipping.FreeShippingRule{
			Threshold:      f.FreeShipping.Threshold,
			DeliveryWindow: f.FreeShipping.DeliveryWindow,
			Label:          f.FreeShipping.Label,
			ServiceLabel:   f.FreeShipping.ServiceLabel,
		},
		Mass: shipping.MassRules{
			DefaultUnitGrams:   f.Mass.DefaultUnitGrams,
			MaxChargeableGrams: f.Mass.MaxChargeableGrams,
			VolumetricFactor:   f.Mass.VolumetricFactor,
			DefaultLength:      f.Mass.DefaultDimensions.Length,
			DefaultWidth:       f.Mass.DefaultDimensions.Width,
			DefaultHeight:      f.Mass.DefaultDimensions.Height,
		},
		Surcharges: shipping.Surcharges{
			InsuranceRate: f.Surcharges.InsuranceRate,
			Packaging:     f.Surcharges.Packaging,
			Handling:      f.Surcharges.Handling,
		},
		MinPostalCodeLength: f.MinPostalCodeLength,
		BracketBounds:       f.BracketBounds,
		DefaultZone:         f.DefaultZone.zone(),
	}
	for _, z := range f.Zones {
		cfg.Zones = append(cfg.Zones, z.zone())
	}
	for _, c := range f.Carriers {
		carrier := shipping.Carrier{
			ID:             c.ID,
			Name:           c.Name,
			DeliveryWindow: c.DeliveryWindow,
		}
		for _, s := range c.Services {
			carrier.Services = append(carrier.Services, shipping.Service{
				Level: s.Level,
				Label: s.Label,
				Rates: s.Rates,
			})
		}
		cfg.Carriers = append(cfg.Carriers, carrier)
	}
	return cfg
}

func (z zoneFile) zone() shipping.Zone {
	out := shipping.Zone{
		ID:             z.ID,
		Name:           z.Name,
		RateArea:       z.RateArea,
		BaseCost:       z.BaseCost,
		CostPerKg:      z.CostPerKg,
		DeliveryWindow: z.DeliveryWindow,
		Method:         z.Method,
	}
	for _, r := range z.Ranges {
		out.Ranges = append(out.Ranges, shipping.PostalRange{From: r.From, To: r.To})
	}
	return out
}
