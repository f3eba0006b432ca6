package session

import "strings"

// ClickPayload is the treemap click event sent by the dashboard.
type ClickPayload struct {
	Points []ClickPoint `json:"points"`
}

type ClickPoint struct {
	Label *string `json:"label"`
}

// ExtractLabel returns the label of the first clicked point. ok is false for a
// nil payload, no points, an absent label or a blank one.
func ExtractLabel(p *ClickPayload) (string, bool) {
	if p == nil || len(p.Points) == 0 || p.Points[0].Label == nil {
		return "", false
	}
	label := strings.TrimSpace(*p.Points[0].Label)
	if label == "" {
		return "", false
	}
	return label, true
}
