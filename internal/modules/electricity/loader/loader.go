// Package loader reads the wide electricity statistics file into a RawTable.
// CSV and XLSX sources are supported; the format is picked from the extension.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"powerstats-server/internal/modules/electricity/dataset"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrEmptySource       = errors.New("dataset has no header row")
)

// Load opens path and parses it according to its extension.
func Load(path string) (dataset.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Parse(filepath.Ext(path), f)
}

// Parse reads r in the format named by ext (".csv" or ".xlsx", any case).
func Parse(ext string, r io.Reader) (dataset.RawTable, error) {
	switch strings.ToLower(ext) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return dataset.RawTable{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// ReadCSV reads a comma separated table. Rows may have a different number of
// fields than the header.
func ReadCSV(r io.Reader) (dataset.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return dataset.RawTable{}, ErrEmptySource
	}
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("read csv header: %w", err)
	}

	out := dataset.RawTable{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return dataset.RawTable{}, fmt.Errorf("read csv: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

// ReadXLSX reads the first worksheet of a workbook.
func ReadXLSX(r io.Reader) (dataset.RawTable, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return dataset.RawTable{}, ErrEmptySource
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return dataset.RawTable{}, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return dataset.RawTable{}, ErrEmptySource
	}

	out := dataset.RawTable{Header: rows[0]}
	for _, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
