package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// DataPath is the CSV or XLSX file imported into the store at startup.
	DataPath string
	// VocabularyPath optionally points to a YAML file overriding the feature vocabulary.
	VocabularyPath string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogSQL          bool

	SessionTTL    time.Duration
	SessionMax    int
	HTTPRateRPS   float64
	HTTPRateBurst int

	// MQTTBroker empty disables selection event publishing.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")

	dataPath := envOr("DATA_PATH", "data/global_electricity_statistics.csv")
	dataPath, err = filepath.Abs(dataPath)
	if err != nil {
		return Config{}, fmt.Errorf("DATA_PATH %q: %w", dataPath, err)
	}

	vocabularyPath := strings.TrimSpace(os.Getenv("VOCABULARY_PATH"))

	driver := envOr("DB_DRIVER", "sqlite3")
	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	path := envOr("SQLITE_PATH", "../dev/sqlite/powerstats.db")

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", "1")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", "0s")
	if err != nil {
		return Config{}, err
	}
	logSQL, err := envBool("DB_LOG_SQL", "false")
	if err != nil {
		return Config{}, err
	}

	sessionTTL, err := envDuration("SESSION_TTL", "30m")
	if err != nil {
		return Config{}, err
	}
	if sessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be > 0")
	}
	sessionMax, err := envInt("SESSION_MAX", "10000")
	if err != nil {
		return Config{}, err
	}
	if sessionMax <= 0 {
		return Config{}, fmt.Errorf("SESSION_MAX must be > 0")
	}

	rateRPSStr := envOr("HTTP_RATE_RPS", "20")
	rateRPS, err := strconv.ParseFloat(rateRPSStr, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid HTTP_RATE_RPS %q: %w", rateRPSStr, err)
	}
	if rateRPS < 0 {
		return Config{}, fmt.Errorf("HTTP_RATE_RPS must be >= 0")
	}
	rateBurst, err := envInt("HTTP_RATE_BURST", "40")
	if err != nil {
		return Config{}, err
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	mqttPort, err := envInt("MQTT_PORT", "1883")
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}
	mqttTopic := envOr("MQTT_TOPIC", "powerstats/selections")
	mqttClientID := envOr("MQTT_CLIENT_ID", "powerstats-server")

	return Config{
		AppEnv:                appEnv,
		LogLevel:              level,
		HTTPAddr:              httpAddr,
		DataPath:              dataPath,
		VocabularyPath:        vocabularyPath,
		SQLiteDriver:          driver,
		SQLiteDSN:             dsn,
		SQLitePath:            path,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogSQL:          logSQL,
		SessionTTL:            sessionTTL,
		SessionMax:            sessionMax,
		HTTPRateRPS:           rateRPS,
		HTTPRateBurst:         rateBurst,
		MQTTBroker:            mqttBroker,
		MQTTPort:              mqttPort,
		MQTTTopic:             mqttTopic,
		MQTTClientID:          mqttClientID,
	}, nil
}

// MQTTEnabled reports whether a broker is configured.
func (c Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key, def string) (int, error) {
	s := envOr(key, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key, def string) (time.Duration, error) {
	s := envOr(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envBool(key, def string) (bool, error) {
	s := envOr(key, def)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
