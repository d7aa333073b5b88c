package shipping

import "github.com/shopspring/decimal"

const freeCarrierID = "free"

// QualifiesForFreeShipping reports whether the subtotal reaches the configured threshold.
func (e *Engine) QualifiesForFreeShipping(subtotal decimal.Decimal) bool {
	return Clamp(subtotal).GreaterThanOrEqual(e.cfg.FreeShipping.Threshold)
}

// applyFreeShipping turns q into a zero-cost quote. Zone and weight stay stamped for display.
func (e *Engine) applyFreeShipping(q *Quote) {
	rule := e.cfg.FreeShipping
	q.Free = true
	q.Total = decimal.Zero
	q.Breakdown = nil
	q.DeliveryEstimate = rule.DeliveryWindow
	q.Service = rule.Label
	if q.Policy == PolicyRanked {
		q.Options = []Option{{
			Carrier:          freeCarrierID,
			CarrierName:      rule.Label,
			ServiceLevel:     "standard",
			ServiceLabel:     rule.ServiceLabel,
			Price:            decimal.Zero,
			DeliveryEstimate: rule.DeliveryWindow,
			Recommended:      true,
		}}
	}
}
