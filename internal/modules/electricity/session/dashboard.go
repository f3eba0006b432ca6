package session

import (
	"errors"
	"sync"

	"powerstats-server/internal/modules/electricity/dataset"
	"powerstats-server/internal/modules/electricity/selector"
	"powerstats-server/internal/modules/electricity/types"
)

const maxCachedAggregates = 64

var ErrEmptyDataset = errors.New("dataset has no years")

// Dashboard is the read-only state shared by every session: the long table,
// the vocabulary and a cache of aggregates keyed by year range.
type Dashboard struct {
	table    *dataset.LongTable
	vocab    dataset.Vocabulary
	selector *selector.Selector
	bounds   types.YearRange
	imp      types.DatasetImport

	mu    sync.Mutex
	cache map[types.YearRange][]types.AggregateRow
}

func NewDashboard(table *dataset.LongTable, vocab dataset.Vocabulary, imp types.DatasetImport) (*Dashboard, error) {
	bounds, ok := table.YearBounds()
	if !ok {
		return nil, ErrEmptyDataset
	}
	return &Dashboard{
		table:    table,
		vocab:    vocab,
		selector: selector.New(vocab),
		bounds:   bounds,
		imp:      imp,
		cache:    make(map[types.YearRange][]types.AggregateRow),
	}, nil
}

func (d *Dashboard) Table() *dataset.LongTable { return d.table }

func (d *Dashboard) Vocabulary() dataset.Vocabulary { return d.vocab }

func (d *Dashboard) Bounds() types.YearRange { return d.bounds }

func (d *Dashboard) Meta() types.Meta {
	return types.Meta{
		Years:     d.bounds,
		Features:  d.vocab.Options,
		Default:   d.vocab.DefaultFeature,
		Countries: d.table.Countries(),
		Regions:   d.table.Regions(),
		Import:    d.imp,
	}
}

// Clamp limits r to the data's year bounds. A range entirely outside the data
// is returned normalized but otherwise unchanged and selects nothing.
func (d *Dashboard) Clamp(r types.YearRange) types.YearRange {
	if c, ok := r.Intersect(d.bounds); ok {
		return c
	}
	return r.Normalized()
}

// Aggregate returns the mean table for r. Results are shared between
// sessions and must be treated as read-only.
func (d *Dashboard) Aggregate(r types.YearRange) []types.AggregateRow {
	r = r.Normalized()
	if _, ok := r.Intersect(d.bounds); !ok {
		return []types.AggregateRow{}
	}
	d.mu.Lock()
	if agg, ok := d.cache[r]; ok {
		d.mu.Unlock()
		return agg
	}
	d.mu.Unlock()

	agg := dataset.Aggregate(d.table, r)

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cache) >= maxCachedAggregates {
		clear(d.cache)
	}
	d.cache[r] = agg
	return agg
}
