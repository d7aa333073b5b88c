// Package shipping computes shipping quotes for storefront carts: chargeable mass, destination
// zone, tariff lookup, surcharge composition, free-shipping override and threshold progress.
// Everything here is a pure function of the cart and an immutable RateConfig.
package shipping

import (
	"github.com/shopspring/decimal"
)

// Policy selects how a quote is composed.
type Policy string

const (
	// PolicyBreakdown prices a single service from the zone's base and per-kg cost plus surcharges.
	PolicyBreakdown Policy = "breakdown"
	// PolicyRanked prices every carrier and service level from the tariff table and ranks them.
	PolicyRanked Policy = "ranked"
)

// Valid reports whether p names a supported policy.
func (p Policy) Valid() bool {
	return p == PolicyBreakdown || p == PolicyRanked
}

// Dimensions are package measures in centimetres. Absent or non-positive values fall back to
// the configured defaults, one field at a time.
type Dimensions struct {
	Length decimal.NullDecimal
	Width  decimal.NullDecimal
	Height decimal.NullDecimal
}

// CartLine is a cart item as seen by the rate engine.
type CartLine struct {
	ID         string
	Quantity   int
	UnitPrice  decimal.Decimal
	MassGrams  decimal.NullDecimal
	Dimensions Dimensions
}

// LineWeight is the per-line outcome of weight resolution.
type LineWeight struct {
	ID                  string
	Quantity            int
	UnitGrams           int64
	UnitVolumetricGrams int64
	DefaultMass         bool
	DefaultDimensions   bool
}

// WeightAssessment aggregates actual and volumetric mass for a cart.
type WeightAssessment struct {
	ActualGrams     int64
	VolumetricGrams int64
	ChargeableGrams int64
	ChargedByVolume bool
	Lines           []LineWeight
}

// PostalRange is an inclusive range of numeric postal-code keys.
type PostalRange struct {
	From int
	To   int
}

// Contains reports whether key falls inside the range.
func (r PostalRange) Contains(key int) bool {
	return key >= r.From && key <= r.To
}

// Zone is a named pricing tier selected from the destination postal code.
type Zone struct {
	ID             string
	Name           string
	RateArea       string
	BaseCost       decimal.Decimal
	CostPerKg      decimal.Decimal
	DeliveryWindow string
	Method         string
	Ranges         []PostalRange
}

// Origin describes where parcels ship from.
type Origin struct {
	PostalCode string
	City       string
	Province   string
}

// Surcharges are the fixed and proportional extras of the breakdown policy.
type Surcharges struct {
	InsuranceRate decimal.Decimal
	Packaging     decimal.Decimal
	Handling      decimal.Decimal
}

// Breakdown itemises a breakdown-policy quote.
type Breakdown struct {
	Base       decimal.Decimal
	Weight     decimal.Decimal
	Insurance  decimal.Decimal
	Packaging  decimal.Decimal
	Handling   decimal.Decimal
	Surcharges decimal.Decimal
	Total      decimal.Decimal
}

// Option is one priced (carrier, service level) combination.
type Option struct {
	Carrier          string
	CarrierName      string
	ServiceLevel     string
	ServiceLabel     string
	Price            decimal.Decimal
	DeliveryEstimate string
	Recommended      bool
}

// Quote is the engine output. It is built fresh on every call.
type Quote struct {
	Policy                Policy
	Free                  bool
	Total                 decimal.Decimal
	Currency              string
	Breakdown             *Breakdown
	Zone                  Zone
	Weight                WeightAssessment
	DeliveryEstimate      string
	Service               string
	Options               []Option
	Origin                Origin
	DestinationPostalCode string
	EstimatedOnly         bool
}

// FreeShippingProgress tells how far a subtotal is from the free-shipping threshold.
type FreeShippingProgress struct {
	Remaining  decimal.Decimal
	Percentage decimal.Decimal
	Qualifies  bool
	Threshold  decimal.Decimal
}

// QuoteRequest is the input of Engine.Quote. An empty Policy selects the configured default.
type QuoteRequest struct {
	Lines      []CartLine
	PostalCode string
	Subtotal   decimal.Decimal
	Policy     Policy
}
