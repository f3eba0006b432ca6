package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	ColumnCountry  = "Country"
	ColumnFeatures = "Features"
	ColumnRegion   = "Region"
)

var ErrMissingColumn = errors.New("missing identity column")

// RawTable is the loader's output: a header and string cells, untouched.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// WideTable has one numeric column per year header.
type WideTable struct {
	// YearHeaders holds the trimmed headers of every non-identity column, in source order.
	YearHeaders []string
	Rows        []WideRow
}

type WideRow struct {
	Country  string
	Features string
	Region   string
	Cells    []Cell
}

// Cell is a year value; Valid is false when the source cell was missing.
type Cell struct {
	Value float64
	Valid bool
}

// Normalize trims the identity columns and coerces every other column to
// numbers. Cells that do not parse become missing; only an absent identity
// column is an error.
func Normalize(raw RawTable) (WideTable, error) {
	idx := map[string]int{ColumnCountry: -1, ColumnFeatures: -1, ColumnRegion: -1}
	var yearCols []int
	var yearHeaders []string
	for i, h := range raw.Header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if pos, ok := idx[h]; ok {
			if pos == -1 {
				idx[h] = i
			}
			continue
		}
		yearCols = append(yearCols, i)
		yearHeaders = append(yearHeaders, h)
	}
	for _, name := range []string{ColumnCountry, ColumnFeatures, ColumnRegion} {
		if idx[name] < 0 {
			return WideTable{}, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	out := WideTable{
		YearHeaders: yearHeaders,
		Rows:        make([]WideRow, 0, len(raw.Rows)),
	}
	for _, rec := range raw.Rows {
		row := WideRow{
			Country:  strings.TrimSpace(cellAt(rec, idx[ColumnCountry])),
			Features: strings.TrimSpace(cellAt(rec, idx[ColumnFeatures])),
			Region:   strings.TrimSpace(cellAt(rec, idx[ColumnRegion])),
			Cells:    make([]Cell, len(yearCols)),
		}
		for j, col := range yearCols {
			row.Cells[j] = parseCell(cellAt(rec, col))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// SortByCountry orders rows by country, keeping source order for ties.
func (w *WideTable) SortByCountry() {
	sort.SliceStable(w.Rows, func(i, j int) bool {
		return w.Rows[i].Country < w.Rows[j].Country
	})
}

func cellAt(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseCell(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return Cell{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Cell{}
	}
	return Cell{Value: f, Valid: true}
}
