package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"powerstats-server/internal/config"
)

func NewServer(cfg config.Config, handler http.Handler, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.HTTPRateRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.HTTPRateRPS), cfg.HTTPRateBurst)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(logger, rateLimit(limiter, handler)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
