package app

import (
	"path/filepath"
	"testing"
	"time"

	"powerstats-server/internal/modules/electricity/dataset"
	"powerstats-server/internal/modules/electricity/loader"
	"powerstats-server/internal/modules/electricity/session"
	"powerstats-server/internal/modules/electricity/types"
)

func TestJanitorInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, time.Minute},
		{2 * time.Second, time.Second},
		{20 * time.Second, 5 * time.Second},
		{30 * time.Minute, time.Minute},
	}
	for _, tt := range tests {
		if got := janitorInterval(tt.ttl); got != tt.want {
			t.Errorf("janitorInterval(%s) = %s; want %s", tt.ttl, got, tt.want)
		}
	}
}

// The bundled sample data and vocabulary must always load into a dashboard.
func TestBundledData(t *testing.T) {
	raw, err := loader.Load(filepath.Join("..", "..", "data", "global_electricity_statistics.csv"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wide, err := dataset.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	wide.SortByCountry()
	table := dataset.Melt(wide)

	vocab, err := dataset.LoadVocabulary(filepath.Join("..", "..", "data", "vocabulary.example.yaml"))
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	dash, err := session.NewDashboard(table, vocab, types.DatasetImport{Source: "sample"})
	if err != nil {
		t.Fatalf("NewDashboard: %v", err)
	}
	if got := dash.Bounds(); got != (types.YearRange{Min: 2010, Max: 2021}) {
		t.Errorf("Bounds = %+v; want 2010-2021", got)
	}
	if !table.IsCountry("Norway") {
		t.Error("padded country name was not trimmed")
	}
	if len(table.Regions()) != 7 {
		t.Errorf("regions = %v; want 7", table.Regions())
	}
}
