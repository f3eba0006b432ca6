package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"powerstats-server/internal/modules/electricity/dataset"
	"powerstats-server/internal/modules/electricity/export"
	"powerstats-server/internal/modules/electricity/session"
	"powerstats-server/internal/modules/electricity/types"
	"powerstats-server/internal/modules/electricity/views"
	"powerstats-server/internal/utils"
)

func row(country, region, feature string, year int, v float64) types.Row {
	return types.Row{Country: country, Region: region, Features: feature, Year: year, Value: v, Valid: true}
}

func newTestMux(t *testing.T) (*http.ServeMux, *session.Store) {
	t.Helper()
	table := dataset.NewLongTable([]types.Row{
		row("France", "Europe", "imports", 2020, 10),
		row("France", "Europe", "imports", 2021, 20),
		row("France", "Europe", "exports", 2020, 4),
		row("France", "Europe", "net consumption", 2020, 450),
		row("France", "Europe", "net generation", 2020, 500),
		row("France", "Europe", "net generation", 2021, 520),
		row("France", "Europe", "distribution losses", 2021, 30),
		row("Chad", "Africa", "net consumption", 2020, 1),
	})
	dash, err := session.NewDashboard(table, dataset.DefaultVocabulary(), types.DatasetImport{Source: "test.csv"})
	if err != nil {
		t.Fatalf("NewDashboard: %v", err)
	}
	store := session.NewStore(dash, time.Hour)
	mux := http.NewServeMux()
	NewElectricityController(store, nil, AppInfo{Name: "powerstats", Version: "test"}).RegisterRoutes(mux)
	return mux, store
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) types.DashboardView {
	t.Helper()
	var v types.DashboardView
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createSession(t *testing.T, mux http.Handler) string {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/api/v1/sessions", "{}")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d; want %d", rec.Code, http.StatusCreated)
	}
	var got createResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if got.ID == "" || got.View.SessionID != got.ID {
		t.Fatalf("create response = %+v", got)
	}
	return got.ID
}

func Test_handleDashboard(t *testing.T) {
	mux, _ := newTestMux(t)

	t.Run("returns 404 when path is not /", func(t *testing.T) {
		rec := do(t, mux, http.MethodGet, "/dashboard", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("renders page with dataset meta", func(t *testing.T) {
		if err := views.LoadTemplates(); err != nil {
			t.Fatalf("LoadTemplates: %v", err)
		}
		rec := do(t, mux, http.MethodGet, "/", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
		body := rec.Body.String()
		for _, want := range []string{"Global Electricity Statistics", "Net consumption"} {
			if !strings.Contains(body, want) {
				t.Errorf("page does not contain %q", want)
			}
		}
	})
}

func Test_handleMeta(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := do(t, mux, http.MethodGet, "/api/v1/meta", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	var meta types.Meta
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta.Years != (types.YearRange{Min: 2020, Max: 2021}) {
		t.Errorf("Years = %+v", meta.Years)
	}
	if meta.Default != dataset.FeatureNetConsumption {
		t.Errorf("Default = %q", meta.Default)
	}
	if len(meta.Countries) != 2 || meta.Import.Source != "test.csv" {
		t.Errorf("meta = %+v", meta)
	}
}

func Test_sessionNotFound(t *testing.T) {
	mux, _ := newTestMux(t)
	paths := []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/sessions/nope", ""},
		{http.MethodPost, "/api/v1/sessions/nope/years", `{"min":2020,"max":2021}`},
		{http.MethodPost, "/api/v1/sessions/nope/click", `{}`},
		{http.MethodGet, "/api/v1/sessions/nope/charts/bar.svg", ""},
		{http.MethodGet, "/api/v1/sessions/nope/export.xlsx", ""},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := do(t, mux, p.method, p.path, p.body)
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
			}
			var e utils.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&e); err != nil || e.Message != "session not found" {
				t.Errorf("error body = %+v (%v)", e, err)
			}
		})
	}
}

func Test_handleClick(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createSession(t, mux)
	base := "/api/v1/sessions/" + id

	t.Run("country opens drilldown", func(t *testing.T) {
		v := decodeView(t, do(t, mux, http.MethodPost, base+"/click", `{"points":[{"label":"France"}]}`))
		if v.State != session.StateCountryDrilldown || v.Country != "France" || !v.ChartsVisible {
			t.Errorf("view = %+v", v)
		}
		if v.Status != "↓ Statistics for selected country: France ↓" {
			t.Errorf("Status = %q", v.Status)
		}
	})

	t.Run("region selects without charts", func(t *testing.T) {
		v := decodeView(t, do(t, mux, http.MethodPost, base+"/click", `{"points":[{"label":"Europe"}]}`))
		if v.State != session.StateOverview || v.Region != "Europe" || v.ChartsVisible {
			t.Errorf("view = %+v", v)
		}
		if v.Status != "Selected Region: Europe" {
			t.Errorf("Status = %q", v.Status)
		}
	})

	t.Run("malformed body clears selection", func(t *testing.T) {
		do(t, mux, http.MethodPost, base+"/click", `{"points":[{"label":"France"}]}`)
		rec := do(t, mux, http.MethodPost, base+"/click", `not json`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		v := decodeView(t, rec)
		if v.State != session.StateOverview || v.Country != "" || v.Status != "" || v.ChartsVisible {
			t.Errorf("view = %+v", v)
		}
	})

	t.Run("missing label clears selection", func(t *testing.T) {
		v := decodeView(t, do(t, mux, http.MethodPost, base+"/click", `{"points":[{}]}`))
		if v.Status != "" || v.ChartsVisible {
			t.Errorf("view = %+v", v)
		}
	})
}

func Test_handleYears(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createSession(t, mux)
	path := "/api/v1/sessions/" + id + "/years"

	t.Run("reversed range is normalized", func(t *testing.T) {
		rec := do(t, mux, http.MethodPost, path, `{"min":2021,"max":2020}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		v := decodeView(t, rec)
		if v.SelectedYears != (types.YearRange{Min: 2020, Max: 2021}) {
			t.Errorf("SelectedYears = %+v", v.SelectedYears)
		}
		if v.YearText != "Selected Year Range: 2020 - 2021" {
			t.Errorf("YearText = %q", v.YearText)
		}
	})

	t.Run("single year", func(t *testing.T) {
		v := decodeView(t, do(t, mux, http.MethodPost, path, `{"min":2021,"max":2021}`))
		if v.YearText != "Selected Year Range: 2021 - 2021" {
			t.Errorf("YearText = %q", v.YearText)
		}
	})

	t.Run("extreme range is clamped to data", func(t *testing.T) {
		rec := do(t, mux, http.MethodPost, path, `{"min":-9223372036854775808,"max":9223372036854775807}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if v := decodeView(t, rec); v.SelectedYears != (types.YearRange{Min: 2020, Max: 2021}) {
			t.Errorf("SelectedYears = %+v; want data bounds", v.SelectedYears)
		}
		if v := decodeView(t, do(t, mux, http.MethodGet, "/api/v1/sessions/"+id, "")); v.YearText != "Selected Year Range: 2020 - 2021" {
			t.Errorf("YearText = %q", v.YearText)
		}
	})

	t.Run("range outside data keeps an empty treemap", func(t *testing.T) {
		v := decodeView(t, do(t, mux, http.MethodPost, path, `{"min":1,"max":1000}`))
		if v.SelectedYears != (types.YearRange{Min: 1, Max: 1000}) || !v.Treemap.IsEmpty() {
			t.Errorf("view = %+v", v)
		}
	})

	for name, body := range map[string]string{
		"missing max": `{"min":2020}`,
		"bad json":    `{"min":`,
		"empty":       ``,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, path, body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d; want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func Test_handleFeature(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createSession(t, mux)
	path := "/api/v1/sessions/" + id + "/feature"

	t.Run("known feature", func(t *testing.T) {
		v := decodeView(t, do(t, mux, http.MethodPost, path, `{"feature":"imports"}`))
		if v.SelectedFeature != dataset.FeatureImports {
			t.Errorf("SelectedFeature = %q", v.SelectedFeature)
		}
	})

	t.Run("unknown feature is rejected", func(t *testing.T) {
		rec := do(t, mux, http.MethodPost, path, `{"feature":"sunshine"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_handleSearch(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createSession(t, mux)

	v := decodeView(t, do(t, mux, http.MethodPost, "/api/v1/sessions/"+id+"/search", `{"country":" Chad "}`))
	if v.Searched != "Chad" {
		t.Errorf("Searched = %q; want Chad", v.Searched)
	}
	if v.ChartsVisible {
		t.Error("search must not show charts")
	}
	if len(v.Treemap.Regions) != 1 || v.Treemap.Regions[0].Name != "Africa" {
		t.Errorf("treemap = %+v; want only Africa", v.Treemap.Regions)
	}
}

func Test_handleChart(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createSession(t, mux)
	base := "/api/v1/sessions/" + id

	t.Run("hidden until a country is selected", func(t *testing.T) {
		rec := do(t, mux, http.MethodGet, base+"/charts/bar.svg", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})

	do(t, mux, http.MethodPost, base+"/click", `{"points":[{"label":"France"}]}`)

	for _, kind := range []string{"bar", "line", "pie"} {
		t.Run(kind, func(t *testing.T) {
			rec := do(t, mux, http.MethodGet, base+"/charts/"+kind+".svg", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d; want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(rec.Body.String(), "<svg") {
				t.Error("body is not SVG")
			}
		})
	}

	for _, file := range []string{"area.svg", "bar.png", "bar"} {
		t.Run("unknown "+file, func(t *testing.T) {
			rec := do(t, mux, http.MethodGet, base+"/charts/"+file, "")
			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
			}
		})
	}

	t.Run("country without series data", func(t *testing.T) {
		do(t, mux, http.MethodPost, base+"/click", `{"points":[{"label":"Chad"}]}`)
		rec := do(t, mux, http.MethodGet, base+"/charts/bar.svg", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_handleExport(t *testing.T) {
	mux, _ := newTestMux(t)
	id := createSession(t, mux)
	base := "/api/v1/sessions/" + id
	do(t, mux, http.MethodPost, base+"/click", `{"points":[{"label":"France"}]}`)

	rec := do(t, mux, http.MethodGet, base+"/export.xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "electricity.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if idx, err := f.GetSheetIndex(export.SheetAggregate); err != nil || idx < 0 {
		t.Errorf("Aggregate sheet missing: idx=%d err=%v", idx, err)
	}
}

func Test_handleDeleteSession(t *testing.T) {
	mux, store := newTestMux(t)
	id := createSession(t, mux)

	rec := do(t, mux, http.MethodDelete, "/api/v1/sessions/"+id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusNoContent)
	}
	if store.Len() != 0 {
		t.Errorf("store.Len() = %d; want 0", store.Len())
	}
	if rec := do(t, mux, http.MethodGet, "/api/v1/sessions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func Test_parseChartFile(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"bar.svg", chartBar, true},
		{"line.svg", chartLine, true},
		{"pie.svg", chartPie, true},
		{"pie", "", false},
		{".svg", "", false},
		{"treemap.svg", "", false},
	}
	for _, tt := range tests {
		got, ok := parseChartFile(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseChartFile(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
