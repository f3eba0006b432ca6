package dataset

import (
	"sort"
	"strconv"
	"strings"

	"powerstats-server/internal/modules/electricity/types"
)

// LongTable is the melted dataset. It is immutable once built and safe to
// share between sessions without locking.
type LongTable struct {
	rows      []types.Row
	countries map[string]struct{}
	regions   map[string]struct{}
	years     types.YearRange
	hasYears  bool
}

func NewLongTable(rows []types.Row) *LongTable {
	t := &LongTable{
		rows:      rows,
		countries: make(map[string]struct{}),
		regions:   make(map[string]struct{}),
	}
	for _, r := range rows {
		if r.Country != "" {
			t.countries[r.Country] = struct{}{}
		}
		if r.Region != "" {
			t.regions[r.Region] = struct{}{}
		}
		if !t.hasYears {
			t.years = types.YearRange{Min: r.Year, Max: r.Year}
			t.hasYears = true
			continue
		}
		if r.Year < t.years.Min {
			t.years.Min = r.Year
		}
		if r.Year > t.years.Max {
			t.years.Max = r.Year
		}
	}
	return t
}

// Melt reshapes the wide table into one row per (source row, year column).
// Columns whose header is not an integer year are dropped.
func Melt(w WideTable) *LongTable {
	type yearCol struct {
		pos  int
		year int
	}
	cols := make([]yearCol, 0, len(w.YearHeaders))
	for i, h := range w.YearHeaders {
		y, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			continue
		}
		cols = append(cols, yearCol{pos: i, year: y})
	}

	rows := make([]types.Row, 0, len(w.Rows)*len(cols))
	for _, wr := range w.Rows {
		for _, c := range cols {
			var cell Cell
			if c.pos < len(wr.Cells) {
				cell = wr.Cells[c.pos]
			}
			rows = append(rows, types.Row{
				Country:  wr.Country,
				Features: wr.Features,
				Region:   wr.Region,
				Year:     c.year,
				Value:    cell.Value,
				Valid:    cell.Valid,
			})
		}
	}
	return NewLongTable(rows)
}

// Rows exposes the shared backing slice; callers must not modify it.
func (t *LongTable) Rows() []types.Row { return t.rows }

func (t *LongTable) Len() int { return len(t.rows) }

func (t *LongTable) IsCountry(name string) bool {
	_, ok := t.countries[name]
	return ok
}

func (t *LongTable) IsRegion(name string) bool {
	_, ok := t.regions[name]
	return ok
}

func (t *LongTable) Countries() []string { return sortedKeys(t.countries) }

func (t *LongTable) Regions() []string { return sortedKeys(t.regions) }

// YearBounds returns the smallest range covering every row; ok is false for an empty table.
func (t *LongTable) YearBounds() (types.YearRange, bool) {
	return t.years, t.hasYears
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
