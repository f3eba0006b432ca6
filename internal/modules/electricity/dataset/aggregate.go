package dataset

import (
	"sort"

	"powerstats-server/internal/modules/electricity/types"
)

type groupKey struct {
	country  string
	region   string
	features string
}

type accumulator struct {
	sum   float64
	count int
}

// Aggregate averages Value per (Country, Region, Features) over the selected
// years. Missing values are skipped, groups without a single valid value are
// omitted, and the result is sorted so equal inputs give equal outputs.
func Aggregate(t *LongTable, years types.YearFilter) []types.AggregateRow {
	groups := make(map[groupKey]*accumulator)
	for _, r := range t.Rows() {
		if !r.Valid || !years.Contains(r.Year) {
			continue
		}
		k := groupKey{country: r.Country, region: r.Region, features: r.Features}
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{}
			groups[k] = acc
		}
		acc.sum += r.Value
		acc.count++
	}

	out := make([]types.AggregateRow, 0, len(groups))
	for k, acc := range groups {
		out = append(out, types.AggregateRow{
			Country:   k.country,
			Region:    k.region,
			Features:  k.features,
			MeanValue: acc.sum / float64(acc.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return a.Features < b.Features
	})
	return out
}
