// Package session holds the per-visitor interaction state of the dashboard.
// A Session moves between the overview and a country drilldown in response to
// year, feature, search and treemap click events; View renders the datasets
// for its current state.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"powerstats-server/internal/modules/electricity/types"
)

const (
	StateOverview         = "overview"
	StateCountryDrilldown = "country_drilldown"
)

var ErrUnknownFeature = errors.New("unknown feature")

func YearText(r types.YearRange) string {
	return fmt.Sprintf("Selected Year Range: %d - %d", r.Min, r.Max)
}

func CountryStatus(country string) string {
	return fmt.Sprintf("↓ Statistics for selected country: %s ↓", country)
}

func RegionStatus(label string) string {
	return "Selected Region: " + label
}

type Session struct {
	id       string
	dash     *Dashboard
	onSelect func(types.SelectionEvent)

	mu            sync.Mutex
	state         string
	years         types.YearRange
	feature       string
	searched      string
	country       string
	region        string
	status        string
	chartsVisible bool
	aggregate     []types.AggregateRow
	lastSeen      time.Time
}

func newSession(id string, dash *Dashboard, now time.Time, onSelect func(types.SelectionEvent)) *Session {
	bounds := dash.Bounds()
	return &Session{
		id:        id,
		dash:      dash,
		onSelect:  onSelect,
		state:     StateOverview,
		years:     bounds,
		feature:   dash.Vocabulary().DefaultFeature,
		aggregate: dash.Aggregate(bounds),
		lastSeen:  now,
	}
}

func (s *Session) ID() string { return s.id }

// SetYears clamps r to the data bounds and recomputes the aggregate. State,
// country and chart visibility are kept; charts pick up the new years on the
// next View.
func (s *Session) SetYears(r types.YearRange) types.DashboardView {
	r = s.dash.Clamp(r)
	agg := s.dash.Aggregate(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.years = r
	s.aggregate = agg
	return s.viewLocked()
}

func (s *Session) SetFeature(feature string) (types.DashboardView, error) {
	feature = strings.TrimSpace(feature)
	if !s.dash.Vocabulary().HasOption(feature) {
		return types.DashboardView{}, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feature = feature
	return s.viewLocked(), nil
}

// Search records the search text. It only narrows the treemap when it names a
// known country and never touches the country charts.
func (s *Session) Search(text string) types.DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searched = strings.TrimSpace(text)
	return s.viewLocked()
}

// Click handles a treemap click. A known country opens the drilldown, any
// other label selects a region and an unreadable payload clears the selection.
func (s *Session) Click(p *ClickPayload) types.DashboardView {
	label, ok := ExtractLabel(p)

	s.mu.Lock()
	switch {
	case !ok:
		s.state = StateOverview
		s.country, s.region, s.status = "", "", ""
		s.chartsVisible = false
	case s.dash.Table().IsCountry(label):
		s.state = StateCountryDrilldown
		s.country, s.region = label, ""
		s.status = CountryStatus(label)
		s.chartsVisible = true
	default:
		s.state = StateOverview
		s.country, s.region = "", label
		s.status = RegionStatus(label)
		s.chartsVisible = false
	}
	view := s.viewLocked()
	var event *types.SelectionEvent
	if s.state == StateCountryDrilldown {
		event = &types.SelectionEvent{
			SessionID: s.id,
			Country:   s.country,
			Feature:   s.feature,
			Years:     s.years,
			Timestamp: time.Now().UTC(),
		}
	}
	s.mu.Unlock()

	if event != nil && s.onSelect != nil {
		s.onSelect(*event)
	}
	return view
}

func (s *Session) View() types.DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Aggregate returns the aggregate for the session's current years.
func (s *Session) Aggregate() []types.AggregateRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregate
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) viewLocked() types.DashboardView {
	sel := s.dash.selector
	table := s.dash.Table()

	v := types.DashboardView{
		SessionID:       s.id,
		State:           s.state,
		SelectedYears:   s.years,
		SelectedFeature: s.feature,
		Searched:        s.searched,
		Country:         s.country,
		Region:          s.region,
		YearText:        YearText(s.years),
		Status:          s.status,
		Treemap:         sel.Treemap(s.aggregate, s.feature, s.searched, table),
		ChartsVisible:   s.chartsVisible,
	}

	country := ""
	if s.chartsVisible {
		country = s.country
	}
	v.Bar = sel.Bar(table, country, s.years)
	v.Line = sel.Line(table, country, s.years)
	v.Pie = sel.Pie(table, country, s.years)
	return v
}
