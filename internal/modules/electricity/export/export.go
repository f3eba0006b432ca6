// Package export writes the current dashboard selection to an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"powerstats-server/internal/modules/electricity/types"
)

const (
	SheetSummary   = "Summary"
	SheetAggregate = "Aggregate"
	SheetBar       = "Imports and exports"
	SheetLine      = "Generation and consumption"
	SheetPie       = "Net consumption parts"
)

// WriteWorkbook writes the summary and aggregate sheets, plus one sheet per
// chart when the view is drilled into a country.
func WriteWorkbook(w io.Writer, view types.DashboardView, agg []types.AggregateRow) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	b := &builder{f: f, header: header}

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	b.rows(SheetSummary, []string{"Field", "Value"}, [][]any{
		{"Year range", view.YearText},
		{"Feature", view.SelectedFeature},
		{"Country", view.Country},
		{"Status", view.Status},
	})

	rows := make([][]any, 0, len(agg))
	for _, r := range agg {
		rows = append(rows, []any{r.Country, r.Region, r.Features, r.MeanValue})
	}
	b.sheet(SheetAggregate)
	b.rows(SheetAggregate, []string{"Country", "Region", "Features", "Mean value [GW]"}, rows)

	if view.ChartsVisible {
		b.series(SheetBar, view.Bar)
		b.series(SheetLine, view.Line)

		pie := make([][]any, 0, len(view.Pie.Slices))
		for _, s := range view.Pie.Slices {
			pie = append(pie, []any{s.Feature, s.Value, s.Share})
		}
		b.sheet(SheetPie)
		b.rows(SheetPie, []string{"Features", "Value [GW]", "Share"}, pie)
	}

	if b.err != nil {
		return b.err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// builder keeps the first error so the sheet code reads straight through.
type builder struct {
	f      *excelize.File
	header int
	err    error
}

func (b *builder) sheet(name string) {
	if b.err != nil {
		return
	}
	if _, err := b.f.NewSheet(name); err != nil {
		b.err = fmt.Errorf("new sheet %s: %w", name, err)
	}
}

func (b *builder) series(name string, d types.SeriesDataset) {
	var rows [][]any
	for _, s := range d.Series {
		for _, p := range s.Points {
			rows = append(rows, []any{s.Feature, p.Year, p.Value})
		}
	}
	b.sheet(name)
	b.rows(name, []string{"Features", "Year", "Value [GW]"}, rows)
}

func (b *builder) rows(sheet string, header []string, rows [][]any) {
	if b.err != nil {
		return
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := b.f.SetSheetRow(sheet, "A1", &head); err != nil {
		b.err = fmt.Errorf("%s header: %w", sheet, err)
		return
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetCellStyle(sheet, "A1", last, b.header); err != nil {
		b.err = fmt.Errorf("%s header style: %w", sheet, err)
		return
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		b.err = err
		return
	}
	if err := b.f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		b.err = fmt.Errorf("%s width: %w", sheet, err)
		return
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			b.err = err
			return
		}
		if err := b.f.SetSheetRow(sheet, cell, &row); err != nil {
			b.err = fmt.Errorf("%s row %d: %w", sheet, i+2, err)
			return
		}
	}
}
