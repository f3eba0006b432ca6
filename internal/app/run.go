package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"powerstats-server/internal/config"
	db "powerstats-server/internal/db"
	httpapi "powerstats-server/internal/httpapi"
	"powerstats-server/internal/migrate"
	"powerstats-server/internal/modules/electricity"
	"powerstats-server/internal/modules/electricity/controller"
	"powerstats-server/internal/modules/electricity/dataset"
	"powerstats-server/internal/modules/electricity/repository"
	"powerstats-server/internal/modules/electricity/service"
	"powerstats-server/internal/modules/electricity/session"
	"powerstats-server/internal/modules/electricity/views"
	"powerstats-server/internal/mqtt"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// Info identifies the running binary.
type Info struct {
	Name    string
	Version string
}

func Run(ctx context.Context, cfg config.Config, info Info, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataPath", cfg.DataPath,
		"vocabularyPath", cfg.VocabularyPath,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sessionTTL", cfg.SessionTTL,
		"sessionMax", cfg.SessionMax,
		"httpRateRPS", cfg.HTTPRateRPS,
		"mqttBroker", cfg.MQTTBroker,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(dbConn)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "count", applied)

	datasetService := service.NewDatasetService(repository.NewRepository(dbConn), logger)
	table, imp, err := datasetService.Load(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	vocab, err := dataset.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		return err
	}
	dash, err := session.NewDashboard(table, vocab, imp)
	if err != nil {
		return err
	}
	bounds := dash.Bounds()
	logger.Info("dataset ready",
		"source", imp.Source,
		"rows", table.Len(),
		"countries", len(table.Countries()),
		"yearMin", bounds.Min,
		"yearMax", bounds.Max,
	)

	storeOpts := []session.Option{session.WithLogger(logger), session.WithMaxSessions(cfg.SessionMax)}
	var publisher *mqtt.Publisher
	if cfg.MQTTEnabled() {
		publisher = mqtt.NewPublisher(cfg, logger)
		storeOpts = append(storeOpts, session.WithSelectionHook(publisher.Hook()))
		go func() {
			// Startup does not wait on the broker; paho keeps retrying.
			connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
			defer cancel()
			if err := publisher.Connect(connectCtx); err != nil {
				logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
			}
		}()
	}
	store := session.NewStore(dash, cfg.SessionTTL, storeOpts...)
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go store.Run(janitorCtx, janitorInterval(cfg.SessionTTL))

	if err := views.LoadTemplates(); err != nil {
		return err
	}
	mux := httpapi.NewMux(dbConn,
		electricity.RegisterFeature(store, logger, controller.AppInfo{Name: info.Name, Version: info.Version}),
	)
	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if publisher != nil {
		logger.Info("mqtt disconnecting")
		publisher.Disconnect()
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func janitorInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return min(max(ttl/4, time.Second), time.Minute)
}
