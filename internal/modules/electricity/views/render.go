package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"

	"powerstats-server/internal/modules/electricity/types"
)

var dashboardTmpl *template.Template

// loadTemplatesFromFS parses the layout, pages and partials found under dir.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call it once at startup and do
// not serve requests if it fails.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type DashboardData struct {
	Title   string
	AppName string
	Version string
	Meta    types.Meta
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}
