package controller

import (
	"bytes"
	"errors"
	"net/http"

	"powerstats-server/internal/modules/electricity/export"
	"powerstats-server/internal/modules/electricity/render"
	"powerstats-server/internal/modules/electricity/session"
	"powerstats-server/internal/modules/electricity/views"
	"powerstats-server/internal/utils"
)

func (c *electricityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := &views.DashboardData{
		Title:   "Global Electricity Statistics",
		AppName: c.app.Name,
		Version: c.app.Version,
		Meta:    c.store.Dashboard().Meta(),
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		c.logger.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("dashboard: write response failed", "error", err)
	}
}

func (c *electricityControllerImpl) handleMeta(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.store.Dashboard().Meta())
}

func (c *electricityControllerImpl) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := c.store.Create()
	c.logger.Debug("session created", "session_id", s.ID())
	utils.WriteJSON(w, http.StatusCreated, createResponse{ID: s.ID(), View: s.View()})
}

func (c *electricityControllerImpl) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := c.session(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, s.View())
}

func (c *electricityControllerImpl) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	c.store.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (c *electricityControllerImpl) handleYears(w http.ResponseWriter, r *http.Request) {
	s, ok := c.session(w, r)
	if !ok {
		return
	}
	var req yearsRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	years, err := req.toRange()
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, s.SetYears(years))
}

func (c *electricityControllerImpl) handleFeature(w http.ResponseWriter, r *http.Request) {
	s, ok := c.session(w, r)
	if !ok {
		return
	}
	var req featureRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.SetFeature(req.Feature)
	if err != nil {
		if errors.Is(err, session.ErrUnknownFeature) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (c *electricityControllerImpl) handleSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := c.session(w, r)
	if !ok {
		return
	}
	var req searchRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, s.Search(req.Country))
}

// handleClick never rejects a payload: anything unreadable clears the
// selection, the same as a click outside the treemap.
func (c *electricityControllerImpl) handleClick(w http.ResponseWriter, r *http.Request) {
	s, ok := c.session(w, r)
	if !ok {
		return
	}
	payload := &session.ClickPayload{}
	if err := utils.DecodeJSON(w, r, payload); err != nil {
		c.logger.Debug("click: unreadable payload", "session_id", s.ID(), "error", err)
		payload = nil
	}
	utils.WriteJSON(w, http.StatusOK, s.Click(payload))
}

func (c *electricityControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	s, ok := c.session(w, r)
	if !ok {
		return
	}
	kind, ok := parseChartFile(r.PathValue("file"))
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown chart")
		return
	}
	view := s.View()
	if !view.ChartsVisible {
		utils.WriteError(w, http.StatusNotFound, "no country selected")
		return
	}

	var buf bytes.Buffer
	var err error
	switch kind {
	case chartBar:
		err = render.Bar(&buf, view.Bar)
	case chartLine:
		err = render.Line(&buf, view.Line)
	case chartPie:
		err = render.Pie(&buf, view.Pie)
	}
	if err != nil {
		if errors.Is(err, render.ErrEmptyDataset) {
			utils.WriteError(w, http.StatusNotFound, "no data for selected country")
			return
		}
		c.logger.Error("chart render failed", "session_id", s.ID(), "kind", kind, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("chart: write response failed", "error", err)
	}
}

func (c *electricityControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	s, ok := c.session(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, s.View(), s.Aggregate()); err != nil {
		c.logger.Error("export failed", "session_id", s.ID(), "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="electricity.xlsx"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("export: write response failed", "error", err)
	}
}

func (c *electricityControllerImpl) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing session id")
		return nil, false
	}
	s, err := c.store.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return s, true
}
