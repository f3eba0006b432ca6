package controller

import (
	"log/slog"
	"net/http"

	"powerstats-server/internal/modules/electricity/session"
)

// AppInfo is shown in the page header.
type AppInfo struct {
	Name    string
	Version string
}

type ElectricityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type electricityControllerImpl struct {
	store  *session.Store
	logger *slog.Logger
	app    AppInfo
}

func NewElectricityController(store *session.Store, logger *slog.Logger, app AppInfo) ElectricityController {
	if logger == nil {
		logger = slog.Default()
	}
	return &electricityControllerImpl{store: store, logger: logger, app: app}
}

func (c *electricityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /api/v1/meta", c.handleMeta)
	mux.HandleFunc("POST /api/v1/sessions", c.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", c.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", c.handleDeleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/years", c.handleYears)
	mux.HandleFunc("POST /api/v1/sessions/{id}/feature", c.handleFeature)
	mux.HandleFunc("POST /api/v1/sessions/{id}/search", c.handleSearch)
	mux.HandleFunc("POST /api/v1/sessions/{id}/click", c.handleClick)
	mux.HandleFunc("GET /api/v1/sessions/{id}/charts/{file}", c.handleChart)
	mux.HandleFunc("GET /api/v1/sessions/{id}/export.xlsx", c.handleExport)
}
