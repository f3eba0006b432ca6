package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"powerstats-server/internal/modules/electricity/types"
)

//go:embed sql/insert-observation.sql
var insertObservationSQL string

//go:embed sql/delete-observations.sql
var deleteObservationsSQL string

//go:embed sql/get-observations.sql
var getObservationsSQL string

//go:embed sql/insert-import.sql
var insertImportSQL string

//go:embed sql/get-latest-import.sql
var getLatestImportSQL string

// ErrNoImport is returned by GetLatestImport before the first import.
var ErrNoImport = errors.New("no dataset imported yet")

// ObservationRepository persists the melted dataset so a restart can serve it
// without the source file.
type ObservationRepository interface {
	ReplaceObservations(source, checksum string, rows []types.Row) (types.DatasetImport, error)
	GetObservations() ([]types.Row, error)
	GetLatestImport() (types.DatasetImport, error)
}

type repositoryImpl struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) ObservationRepository {
	return &repositoryImpl{db: db, now: time.Now}
}

// ReplaceObservations swaps the stored table for rows in one transaction and
// records the import. Row order is preserved through seq.
func (r *repositoryImpl) ReplaceObservations(source, checksum string, rows []types.Row) (types.DatasetImport, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return types.DatasetImport{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback observations import", "error", err)
		}
	}()

	if _, err := tx.Exec(deleteObservationsSQL); err != nil {
		return types.DatasetImport{}, fmt.Errorf("delete observations: %w", err)
	}

	stmt, err := tx.Prepare(insertObservationSQL)
	if err != nil {
		return types.DatasetImport{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		var value sql.NullFloat64
		if row.Valid {
			value = sql.NullFloat64{Float64: row.Value, Valid: true}
		}
		if _, err := stmt.Exec(i, row.Country, row.Features, row.Region, row.Year, value); err != nil {
			return types.DatasetImport{}, fmt.Errorf("insert observation %d: %w", i, err)
		}
	}

	importedAt := r.now().UTC()
	res, err := tx.Exec(insertImportSQL, source, checksum, len(rows), importedAt.Format(time.RFC3339Nano))
	if err != nil {
		return types.DatasetImport{}, fmt.Errorf("insert import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.DatasetImport{}, fmt.Errorf("import id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.DatasetImport{}, fmt.Errorf("commit: %w", err)
	}

	return types.DatasetImport{
		ID:         id,
		Source:     source,
		Checksum:   checksum,
		Rows:       len(rows),
		ImportedAt: importedAt,
	}, nil
}

func (r *repositoryImpl) GetObservations() ([]types.Row, error) {
	rows, err := r.db.Query(getObservationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close observation rows", "error", err)
		}
	}()

	var out []types.Row
	for rows.Next() {
		var rec types.Row
		var value sql.NullFloat64
		if err := rows.Scan(&rec.Country, &rec.Features, &rec.Region, &rec.Year, &value); err != nil {
			return nil, err
		}
		rec.Value = value.Float64
		rec.Valid = value.Valid
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetLatestImport() (types.DatasetImport, error) {
	var imp types.DatasetImport
	var ts string
	err := r.db.QueryRow(getLatestImportSQL).Scan(&imp.ID, &imp.Source, &imp.Checksum, &imp.Rows, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return types.DatasetImport{}, ErrNoImport
	}
	if err != nil {
		return types.DatasetImport{}, err
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return types.DatasetImport{}, err
	}
	imp.ImportedAt = t
	return imp, nil
}

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err == nil {
		return t, nil
	}
	t, err2 := time.Parse(time.RFC3339, ts)
	if err2 != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", ts, err, err2)
	}
	return t, nil
}
