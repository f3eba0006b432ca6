package db

import (
	"path/filepath"
	"strings"
	"testing"

	"powerstats-server/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		cfg        config.Config
		wantPrefix string
		wantSep    string
	}{
		{name: "explicit dsn wins", cfg: config.Config{SQLiteDSN: "file::memory:", SQLitePath: "ignored.db"}, wantPrefix: "file::memory:"},
		{name: "plain path", cfg: config.Config{SQLitePath: filepath.Join(dir, "a", "stats.db")}, wantPrefix: "file:" + filepath.Join(dir, "a", "stats.db") + "?", wantSep: "_journal_mode=WAL"},
		{name: "file uri with query", cfg: config.Config{SQLitePath: "file:" + filepath.Join(dir, "b.db") + "?cache=shared"}, wantPrefix: "file:" + filepath.Join(dir, "b.db") + "?cache=shared&", wantSep: "_busy_timeout=5000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("buildDSN() = %q; want prefix %q", got, tt.wantPrefix)
			}
			if tt.wantSep != "" && !strings.Contains(got, tt.wantSep) {
				t.Errorf("buildDSN() = %q; want it to contain %q", got, tt.wantSep)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	for _, logSQL := range []bool{false, true} {
		cfg := config.Config{
			SQLiteDriver:       "sqlite3",
			SQLitePath:         filepath.Join(t.TempDir(), "stats.db"),
			SQLiteMaxOpenConns: 1,
			SQLiteMaxIdleConns: 1,
			SQLiteLogSQL:       logSQL,
		}
		conn, err := Open(cfg, nil)
		if err != nil {
			t.Fatalf("Open(logSQL=%v): %v", logSQL, err)
		}
		if _, err := conn.Exec(`CREATE TABLE t (id INTEGER)`); err != nil {
			t.Errorf("exec (logSQL=%v): %v", logSQL, err)
		}
		if err := Close(conn); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
	if err := Close(nil); err != nil {
		t.Errorf("Close(nil) = %v", err)
	}
}
