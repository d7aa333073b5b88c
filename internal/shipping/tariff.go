package shipping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TariffTable prices a chargeable mass for a (carrier, service level, rate area) triple.
// Rows keep the declaration order of the configuration.
type TariffTable struct {
	bounds []int64
	rows   []tariffRow
	index  map[string]int
}

type tariffRow struct {
	carrierID      string
	carrierName    string
	deliveryWindow string
	level          string
	label          string
	rates          map[string][]decimal.Decimal
}

func tariffKey(carrier, level string) string {
	return strings.ToLower(strings.TrimSpace(carrier)) + "/" + strings.ToLower(strings.TrimSpace(level))
}

func newTariffTable(bounds []int64, carriers []Carrier, areas []string) (*TariffTable, error) {
	for i, b := range bounds {
		if b <= 0 {
			return nil, invalidConfig("bracket bound %d must be positive", b)
		}
		if i > 0 && b <= bounds[i-1] {
			return nil, invalidConfig("bracket bounds must be strictly increasing (%d after %d)", b, bounds[i-1])
		}
	}
	if len(carriers) == 0 {
		return nil, invalidConfig("at least one carrier is required")
	}

	table := &TariffTable{
		bounds: append([]int64(nil), bounds...),
		index:  make(map[string]int),
	}
	width := len(bounds) + 1

	for _, carrier := range carriers {
		if strings.TrimSpace(carrier.ID) == "" {
			return nil, invalidConfig("carrier id is required")
		}
		if len(carrier.Services) == 0 {
			return nil, invalidConfig("carrier %s has no service levels", carrier.ID)
		}
		for _, svc := range carrier.Services {
			key := tariffKey(carrier.ID, svc.Level)
			if strings.TrimSpace(svc.Level) == "" {
				return nil, invalidConfig("carrier %s has a service without level", carrier.ID)
			}
			if _, dup := table.index[key]; dup {
				return nil, invalidConfig("duplicate tariff %s", key)
			}
			for _, area := range areas {
				row, ok := svc.Rates[area]
				if !ok {
					return nil, invalidConfig("tariff %s has no rates for rate area %s", key, area)
				}
				if len(row) != width {
					return nil, invalidConfig("tariff %s/%s has %d prices, want %d", key, area, len(row), width)
				}
				for i, price := range row {
					if price.IsNegative() {
						return nil, invalidConfig("tariff %s/%s has a negative price", key, area)
					}
					if i > 0 && price.LessThan(row[i-1]) {
						return nil, invalidConfig("tariff %s/%s decreases between brackets %d and %d", key, area, i-1, i)
					}
				}
			}
			table.index[key] = len(table.rows)
			table.rows = append(table.rows, tariffRow{
				carrierID:      carrier.ID,
				carrierName:    carrier.Name,
				deliveryWindow: carrier.DeliveryWindow,
				level:          svc.Level,
				label:          svc.Label,
				rates:          svc.Rates,
			})
		}
	}
	return table, nil
}

// BracketIndex returns the position of the first bound the mass does not exceed. Masses above
// the last bound land in the open-ended top bracket.
func (t *TariffTable) BracketIndex(grams int64) int {
	return sort.Search(len(t.bounds), func(i int) bool {
		return grams <= t.bounds[i]
	})
}

// Brackets is the number of weight brackets, including the open top bracket.
func (t *TariffTable) Brackets() int {
	return len(t.bounds) + 1
}

// Bounds returns a copy of the bracket upper bounds in grams.
func (t *TariffTable) Bounds() []int64 {
	return append([]int64(nil), t.bounds...)
}

// Price looks up one cell of the table.
func (t *TariffTable) Price(carrier, level, rateArea string, grams int64) (decimal.Decimal, error) {
	idx, ok := t.index[tariffKey(carrier, level)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrUnknownTariff, carrier, level)
	}
	row, ok := t.rows[idx].rates[rateArea]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: rate area %s", ErrUnknownTariff, rateArea)
	}
	return row[t.BracketIndex(grams)], nil
}

// Matrix prices every (carrier, service level) pair for the rate area, in declaration order.
func (t *TariffTable) Matrix(rateArea string, grams int64) ([]Option, error) {
	bracket := t.BracketIndex(grams)
	options := make([]Option, 0, len(t.rows))
	for _, row := range t.rows {
		prices, ok := row.rates[rateArea]
		if !ok {
			return nil, fmt.Errorf("%w: rate area %s", ErrUnknownTariff, rateArea)
		}
		options = append(options, Option{
			Carrier:          row.carrierID,
			CarrierName:      row.carrierName,
			ServiceLevel:     row.level,
			ServiceLabel:     row.label,
			Price:            prices[bracket],
			DeliveryEstimate: row.deliveryWindow,
		})
	}
	return options, nil
}
