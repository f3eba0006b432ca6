package types

import "time"

// Row is one long-form observation. Valid is false when the source cell was
// missing or not numeric.
type Row struct {
	Country  string  `json:"country"`
	Features string  `json:"features"`
	Region   string  `json:"region"`
	Year     int     `json:"year"`
	Value    float64 `json:"value"`
	Valid    bool    `json:"valid"`
}

type AggregateRow struct {
	Country   string  `json:"country"`
	Region    string  `json:"region"`
	Features  string  `json:"features"`
	MeanValue float64 `json:"meanValue"`
}

// YearRange is an inclusive [Min, Max] year interval.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Normalized swaps reversed bounds.
func (r YearRange) Normalized() YearRange {
	if r.Min > r.Max {
		return YearRange{Min: r.Max, Max: r.Min}
	}
	return r
}

func (r YearRange) Contains(year int) bool {
	n := r.Normalized()
	return year >= n.Min && year <= n.Max
}

// Intersect returns the overlap of r and o. ok is false when they are
// disjoint.
func (r YearRange) Intersect(o YearRange) (YearRange, bool) {
	a, b := r.Normalized(), o.Normalized()
	out := YearRange{Min: max(a.Min, b.Min), Max: min(a.Max, b.Max)}
	if out.Min > out.Max {
		return YearRange{}, false
	}
	return out, true
}

// YearFilter selects the years a computation looks at. YearRange filters
// without materializing its years.
type YearFilter interface {
	Contains(year int) bool
}

// YearSet is an explicit set of years.
type YearSet map[int]struct{}

func NewYearSet(years ...int) YearSet {
	set := make(YearSet, len(years))
	for _, y := range years {
		set[y] = struct{}{}
	}
	return set
}

func (s YearSet) Contains(year int) bool {
	_, ok := s[year]
	return ok
}

type FeatureOption struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// TreemapDataset is the Region → Country hierarchy for one feature.
type TreemapDataset struct {
	Feature string          `json:"feature"`
	Country string          `json:"country,omitempty"`
	Total   float64         `json:"total"`
	Regions []TreemapRegion `json:"regions"`
}

type TreemapRegion struct {
	Name      string        `json:"name"`
	Value     float64       `json:"value"`
	Color     string        `json:"color,omitempty"`
	Countries []TreemapLeaf `json:"countries"`
}

type TreemapLeaf struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
	Hover   string  `json:"hover"`
}

func (d TreemapDataset) IsEmpty() bool { return len(d.Regions) == 0 }

// SeriesDataset backs the bar and line charts: one series per feature.
type SeriesDataset struct {
	Kind    string   `json:"kind"`
	Title   string   `json:"title"`
	XLabel  string   `json:"xLabel"`
	YLabel  string   `json:"yLabel"`
	Country string   `json:"country"`
	Series  []Series `json:"series"`
}

type Series struct {
	Feature string  `json:"feature"`
	Color   string  `json:"color,omitempty"`
	Points  []Point `json:"points"`
}

type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

func (d SeriesDataset) IsEmpty() bool {
	for _, s := range d.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

type PieDataset struct {
	Title   string  `json:"title"`
	Country string  `json:"country"`
	Total   float64 `json:"total"`
	Slices  []Slice `json:"slices"`
}

type Slice struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Share   float64 `json:"share"`
	Color   string  `json:"color,omitempty"`
}

func (d PieDataset) IsEmpty() bool { return len(d.Slices) == 0 }

// DashboardView is everything the UI needs after one interaction.
type DashboardView struct {
	SessionID       string         `json:"sessionId"`
	State           string         `json:"state"`
	SelectedYears   YearRange      `json:"selectedYears"`
	SelectedFeature string         `json:"selectedFeature"`
	Searched        string         `json:"searched,omitempty"`
	Country         string         `json:"country,omitempty"`
	Region          string         `json:"region,omitempty"`
	YearText        string         `json:"yearText"`
	Status          string         `json:"status"`
	Treemap         TreemapDataset `json:"treemap"`
	ChartsVisible   bool           `json:"chartsVisible"`
	Bar             SeriesDataset  `json:"bar"`
	Line            SeriesDataset  `json:"line"`
	Pie             PieDataset     `json:"pie"`
}

// Meta describes the loaded dataset for the dashboard controls.
type Meta struct {
	Years     YearRange       `json:"years"`
	Features  []FeatureOption `json:"features"`
	Default   string          `json:"defaultFeature"`
	Countries []string        `json:"countries"`
	Regions   []string        `json:"regions"`
	Import    DatasetImport   `json:"import"`
}

// SelectionEvent is published whenever a session drills into a country.
type SelectionEvent struct {
	SessionID string    `json:"session_id"`
	Country   string    `json:"country"`
	Feature   string    `json:"feature"`
	Years     YearRange `json:"years"`
	Timestamp time.Time `json:"timestamp"`
}

// DatasetImport records one import of the source file into the store.
type DatasetImport struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Checksum   string    `json:"checksum"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"importedAt"`
}
