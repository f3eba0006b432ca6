package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"powerstats-server/internal/modules/electricity/dataset"
	"powerstats-server/internal/modules/electricity/loader"
	"powerstats-server/internal/modules/electricity/repository"
	"powerstats-server/internal/modules/electricity/types"
)

// ErrNoYears is returned when the loaded table has no year columns at all.
var ErrNoYears = errors.New("dataset has no year data")

// DatasetService builds the shared long table. The source file is imported
// into the store only when its checksum changes; without a source file the
// last import is served from the store.
type DatasetService struct {
	repository repository.ObservationRepository
	logger     *slog.Logger
}

func NewDatasetService(repository repository.ObservationRepository, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatasetService{repository: repository, logger: logger}
}

func (s *DatasetService) Load(path string) (*dataset.LongTable, types.DatasetImport, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("dataset file missing, serving last import", "path", path)
		return s.fromStore()
	}
	if err != nil {
		return nil, types.DatasetImport{}, fmt.Errorf("read dataset: %w", err)
	}

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	latest, err := s.repository.GetLatestImport()
	switch {
	case err == nil && latest.Checksum == checksum:
		s.logger.Info("dataset unchanged, reading store", "checksum", checksum[:12], "rows", latest.Rows)
		return s.fromStore()
	case err != nil && !errors.Is(err, repository.ErrNoImport):
		return nil, types.DatasetImport{}, fmt.Errorf("latest import: %w", err)
	}

	raw, err := loader.Parse(filepath.Ext(path), bytes.NewReader(data))
	if err != nil {
		return nil, types.DatasetImport{}, err
	}
	wide, err := dataset.Normalize(raw)
	if err != nil {
		return nil, types.DatasetImport{}, fmt.Errorf("normalize %s: %w", filepath.Base(path), err)
	}
	if dropped := droppedYearHeaders(wide.YearHeaders); len(dropped) > 0 {
		s.logger.Debug("ignoring non-year columns", "columns", dropped)
	}
	wide.SortByCountry()
	table := dataset.Melt(wide)
	if _, ok := table.YearBounds(); !ok {
		return nil, types.DatasetImport{}, ErrNoYears
	}

	imp, err := s.repository.ReplaceObservations(filepath.Base(path), checksum, table.Rows())
	if err != nil {
		return nil, types.DatasetImport{}, fmt.Errorf("store observations: %w", err)
	}
	s.logger.Info("dataset imported", "source", imp.Source, "rows", imp.Rows, "countries", len(table.Countries()))
	return table, imp, nil
}

func (s *DatasetService) fromStore() (*dataset.LongTable, types.DatasetImport, error) {
	imp, err := s.repository.GetLatestImport()
	if err != nil {
		return nil, types.DatasetImport{}, fmt.Errorf("latest import: %w", err)
	}
	rows, err := s.repository.GetObservations()
	if err != nil {
		return nil, types.DatasetImport{}, fmt.Errorf("read observations: %w", err)
	}
	table := dataset.NewLongTable(rows)
	if _, ok := table.YearBounds(); !ok {
		return nil, types.DatasetImport{}, ErrNoYears
	}
	return table, imp, nil
}

func droppedYearHeaders(headers []string) []string {
	var out []string
	for _, h := range headers {
		if _, err := strconv.Atoi(strings.TrimSpace(h)); err != nil {
			out = append(out, h)
		}
	}
	return out
}
