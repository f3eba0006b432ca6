package electricity

import (
	"log/slog"
	"net/http"

	"powerstats-server/internal/modules/electricity/controller"
	"powerstats-server/internal/modules/electricity/session"
)

func RegisterFeature(store *session.Store, logger *slog.Logger, app controller.AppInfo) func(*http.ServeMux) {
	electricityController := controller.NewElectricityController(store, logger, app)
	return electricityController.RegisterRoutes
}
