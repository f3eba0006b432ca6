// Package selector shapes the aggregate and the long table into the datasets
// behind each dashboard view. Every function is pure and returns an empty,
// non-nil dataset instead of failing.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"powerstats-server/internal/modules/electricity/dataset"
	"powerstats-server/internal/modules/electricity/types"
)

const (
	KindBar  = "bar"
	KindLine = "line"

	BarTitle  = "Comparision of imports and exports"
	LineTitle = "Comparison of net generation and net consumption"
	PieTitle  = "Parts of net consumption"

	XLabel = "Year"
	YLabel = "[GW]"
)

// CountrySet reports whether a name is a country of the loaded dataset.
type CountrySet interface {
	IsCountry(name string) bool
}

// Selector carries the feature lists each chart filters on.
type Selector struct {
	vocab dataset.Vocabulary
}

func New(vocab dataset.Vocabulary) *Selector {
	return &Selector{vocab: vocab}
}

// HoverText formats a treemap leaf value.
func HoverText(v float64) string {
	return fmt.Sprintf("AVERAGE: %.2f GW", v)
}

// Treemap groups the feature's aggregate rows into Region → Country. The
// country filter only applies when known recognises it; anything else falls
// back to every country.
func (s *Selector) Treemap(agg []types.AggregateRow, feature, country string, known CountrySet) types.TreemapDataset {
	country = strings.TrimSpace(country)
	filter := country != "" && known != nil && known.IsCountry(country)

	out := types.TreemapDataset{Feature: feature, Regions: []types.TreemapRegion{}}
	if filter {
		out.Country = country
	}

	byRegion := make(map[string]*types.TreemapRegion)
	for _, r := range agg {
		if r.Features != feature || (filter && r.Country != country) {
			continue
		}
		reg, ok := byRegion[r.Region]
		if !ok {
			reg = &types.TreemapRegion{Name: r.Region, Countries: []types.TreemapLeaf{}}
			byRegion[r.Region] = reg
		}
		reg.Countries = append(reg.Countries, types.TreemapLeaf{
			Country: r.Country,
			Value:   r.MeanValue,
			Hover:   HoverText(r.MeanValue),
		})
		reg.Value += r.MeanValue
	}

	names := make([]string, 0, len(byRegion))
	for name := range byRegion {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		reg := byRegion[name]
		sort.Slice(reg.Countries, func(a, b int) bool {
			return reg.Countries[a].Country < reg.Countries[b].Country
		})
		reg.Color = pick(BoldPalette, i)
		out.Total += reg.Value
		out.Regions = append(out.Regions, *reg)
	}
	return out
}

func (s *Selector) Bar(t *dataset.LongTable, country string, years types.YearFilter) types.SeriesDataset {
	return series(t, country, years, s.vocab.BarFeatures, types.SeriesDataset{
		Kind: KindBar, Title: BarTitle, XLabel: XLabel, YLabel: YLabel,
	}, PrismPalette)
}

func (s *Selector) Line(t *dataset.LongTable, country string, years types.YearFilter) types.SeriesDataset {
	return series(t, country, years, s.vocab.LineFeatures, types.SeriesDataset{
		Kind: KindLine, Title: LineTitle, XLabel: XLabel, YLabel: YLabel,
	}, BoldPalette)
}

// Pie sums the country's selected rows per feature. The slices are a display
// composition and need not add up to net consumption.
func (s *Selector) Pie(t *dataset.LongTable, country string, years types.YearFilter) types.PieDataset {
	out := types.PieDataset{Title: PieTitle, Country: country, Slices: []types.Slice{}}
	if country == "" || t == nil {
		return out
	}
	idx := indexOf(s.vocab.PieFeatures)
	sums := make([]float64, len(s.vocab.PieFeatures))
	seen := make([]bool, len(s.vocab.PieFeatures))
	for _, r := range t.Rows() {
		i, ok := idx[r.Features]
		if !ok || !r.Valid || r.Country != country || !years.Contains(r.Year) {
			continue
		}
		sums[i] += r.Value
		seen[i] = true
	}
	for i, f := range s.vocab.PieFeatures {
		if !seen[i] {
			continue
		}
		out.Slices = append(out.Slices, types.Slice{
			Feature: f,
			Value:   sums[i],
			Color:   pick(PrismPalette, len(out.Slices)),
		})
		out.Total += sums[i]
	}
	if out.Total != 0 {
		for i := range out.Slices {
			out.Slices[i].Share = out.Slices[i].Value / out.Total
		}
	}
	return out
}

func series(t *dataset.LongTable, country string, years types.YearFilter, features []string, out types.SeriesDataset, palette []string) types.SeriesDataset {
	out.Country = country
	out.Series = []types.Series{}
	if country == "" || t == nil {
		return out
	}
	idx := indexOf(features)
	points := make([][]types.Point, len(features))
	for _, r := range t.Rows() {
		i, ok := idx[r.Features]
		if !ok || !r.Valid || r.Country != country || !years.Contains(r.Year) {
			continue
		}
		points[i] = append(points[i], types.Point{Year: r.Year, Value: r.Value})
	}
	for i, f := range features {
		if len(points[i]) == 0 {
			continue
		}
		ps := points[i]
		sort.SliceStable(ps, func(a, b int) bool { return ps[a].Year < ps[b].Year })
		out.Series = append(out.Series, types.Series{
			Feature: f,
			Color:   pick(palette, len(out.Series)),
			Points:  ps,
		})
	}
	return out
}

func indexOf(features []string) map[string]int {
	m := make(map[string]int, len(features))
	for i, f := range features {
		if _, dup := m[f]; !dup {
			m[f] = i
		}
	}
	return m
}
