package shipping

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

type zoneIndex struct {
	spans    []zoneSpan
	zones    []Zone
	fallback Zone
}

type zoneSpan struct {
	PostalRange
	zone int
}

func newZoneIndex(zones []Zone, fallback Zone) (*zoneIndex, error) {
	if strings.TrimSpace(fallback.ID) == "" {
		return nil, invalidConfig("default zone id is required")
	}
	if len(fallback.Ranges) > 0 {
		return nil, invalidConfig("default zone %s cannot own postal ranges", fallback.ID)
	}
	if strings.TrimSpace(fallback.RateArea) == "" {
		return nil, invalidConfig("default zone %s has no rate area", fallback.ID)
	}

	seen := map[string]struct{}{fallback.ID: {}}
	idx := &zoneIndex{zones: zones, fallback: fallback}
	for i, zone := range zones {
		if strings.TrimSpace(zone.ID) == "" {
			return nil, invalidConfig("zone #%d has no id", i)
		}
		if _, dup := seen[zone.ID]; dup {
			return nil, invalidConfig("duplicate zone id %s", zone.ID)
		}
		seen[zone.ID] = struct{}{}
		if strings.TrimSpace(zone.RateArea) == "" {
			return nil, invalidConfig("zone %s has no rate area", zone.ID)
		}
		if zone.BaseCost.IsNegative() || zone.CostPerKg.IsNegative() {
			return nil, invalidConfig("zone %s has negative costs", zone.ID)
		}
		if len(zone.Ranges) == 0 {
			return nil, invalidConfig("zone %s owns no postal ranges", zone.ID)
		}
		for _, r := range zone.Ranges {
			if r.From < 0 || r.To > maxPostalKey || r.From > r.To {
				return nil, invalidConfig("zone %s has invalid range %d-%d", zone.ID, r.From, r.To)
			}
			idx.spans = append(idx.spans, zoneSpan{PostalRange: r, zone: i})
		}
	}
	if fallback.BaseCost.IsNegative() || fallback.CostPerKg.IsNegative() {
		return nil, invalidConfig("default zone %s has negative costs", fallback.ID)
	}

	sort.Slice(idx.spans, func(i, j int) bool {
		return idx.spans[i].From < idx.spans[j].From
	})
	for i := 1; i < len(idx.spans); i++ {
		prev, cur := idx.spans[i-1], idx.spans[i]
		if cur.From <= prev.To {
			return nil, invalidConfig("postal range %d-%d of zone %s overlaps %d-%d of zone %s",
				cur.From, cur.To, zones[cur.zone].ID, prev.From, prev.To, zones[prev.zone].ID)
		}
	}
	return idx, nil
}

func (idx *zoneIndex) lookup(key int) Zone {
	i := sort.Search(len(idx.spans), func(i int) bool {
		return idx.spans[i].To >= key
	})
	if i < len(idx.spans) && idx.spans[i].Contains(key) {
		return cloneZone(idx.zones[idx.spans[i].zone])
	}
	return cloneZone(idx.fallback)
}

// NormalizePostalCode strips whitespace and upper-cases the code.
func NormalizePostalCode(code string) string {
	return strings.ToUpper(strings.Join(strings.FieldsFunc(code, unicode.IsSpace), ""))
}

// postalKey extracts the first run of four digits, which covers both plain codes ("2121")
// and the letter-prefixed format ("S2121ABC").
func postalKey(normalized string) (int, bool) {
	run := 0
	for i, r := range normalized {
		if r < '0' || r > '9' {
			run = 0
			continue
		}
		run++
		if run == 4 {
			key, err := strconv.Atoi(normalized[i-3 : i+1])
			if err != nil {
				return 0, false
			}
			return key, true
		}
	}
	return 0, false
}
