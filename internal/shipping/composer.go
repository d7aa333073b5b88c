package shipping

import (
	"sort"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// ComposeBreakdown prices a single service from the zone costs and the configured surcharges.
// Insurance is proportional to the order subtotal.
func (e *Engine) ComposeBreakdown(zone Zone, chargeableGrams int64, subtotal decimal.Decimal) Breakdown {
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	kg := decimal.NewFromInt(chargeableGrams).Div(gramsPerKg)
	s := e.cfg.Surcharges

	b := Breakdown{
		Base:      zone.BaseCost.Round(moneyPlaces),
		Weight:    kg.Mul(zone.CostPerKg).Round(moneyPlaces),
		Insurance: subtotal.Mul(s.InsuranceRate).Round(moneyPlaces),
		Packaging: s.Packaging.Round(moneyPlaces),
		Handling:  s.Handling.Round(moneyPlaces),
	}
	b.Surcharges = b.Insurance.Add(b.Packaging).Add(b.Handling)
	b.Total = b.Base.Add(b.Weight).Add(b.Surcharges)
	return b
}

// RankOptions prices every carrier and service level for the zone's rate area and sorts them
// cheapest first. Equal prices keep declaration order. The first option is marked recommended.
func (e *Engine) RankOptions(zone Zone, chargeableGrams int64) ([]Option, error) {
	options, err := e.tariffs.Matrix(zone.RateArea, chargeableGrams)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Price.LessThan(options[j].Price)
	})
	if len(options) > 0 {
		options[0].Recommended = true
	}
	return options, nil
}

func (e *Engine) compose(q *Quote, subtotal decimal.Decimal) error {
	switch q.Policy {
	case PolicyRanked:
		options, err := e.RankOptions(q.Zone, q.Weight.ChargeableGrams)
		if err != nil {
			return err
		}
		best := options[0]
		q.Options = options
		q.Total = best.Price
		q.DeliveryEstimate = best.DeliveryEstimate
		q.Service = best.CarrierName + " " + best.ServiceLabel
		q.EstimatedOnly = true
	default:
		b := e.ComposeBreakdown(q.Zone, q.Weight.ChargeableGrams, subtotal)
		q.Breakdown = &b
		q.Total = b.Total
		q.DeliveryEstimate = q.Zone.DeliveryWindow
		q.Service = q.Zone.Method
	}
	return nil
}
