package httpapi

import (
	"database/sql"
	"net/http"
)

const healthzPath = "/healthz"

// NewMux registers the health check and then every feature's routes.
func NewMux(db *sql.DB, features ...func(*http.ServeMux)) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	for _, register := range features {
		register(mux)
	}
	return mux
}
