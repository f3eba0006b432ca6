package controller

import (
	"errors"
	"strings"

	"powerstats-server/internal/modules/electricity/types"
)

const (
	chartBar  = "bar"
	chartLine = "line"
	chartPie  = "pie"
)

type yearsRequest struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

func (r yearsRequest) toRange() (types.YearRange, error) {
	if r.Min == nil || r.Max == nil {
		return types.YearRange{}, errors.New("'min' and 'max' are required")
	}
	return types.YearRange{Min: *r.Min, Max: *r.Max}.Normalized(), nil
}

type featureRequest struct {
	Feature string `json:"feature"`
}

type searchRequest struct {
	Country string `json:"country"`
}

type createResponse struct {
	ID   string              `json:"id"`
	View types.DashboardView `json:"view"`
}

// parseChartFile maps "bar.svg" and friends to a chart kind.
func parseChartFile(file string) (string, bool) {
	kind, ok := strings.CutSuffix(file, ".svg")
	if !ok {
		return "", false
	}
	switch kind {
	case chartBar, chartLine, chartPie:
		return kind, true
	}
	return "", false
}
