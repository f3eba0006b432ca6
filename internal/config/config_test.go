package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "DATA_PATH", "VOCABULARY_PATH",
	"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"DB_CONN_MAX_LIFETIME", "DB_LOG_SQL", "SESSION_TTL", "SESSION_MAX", "HTTP_RATE_RPS",
	"HTTP_RATE_BURST", "MQTT_BROKER", "MQTT_PORT", "MQTT_TOPIC", "MQTT_CLIENT_ID",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if !filepath.IsAbs(got.DataPath) || filepath.Base(got.DataPath) != "global_electricity_statistics.csv" {
		t.Errorf("DataPath = %q, want absolute path to global_electricity_statistics.csv", got.DataPath)
	}
	if got.SQLiteDriver != "sqlite3" {
		t.Errorf("SQLiteDriver = %q, want sqlite3", got.SQLiteDriver)
	}
	if got.SQLiteMaxOpenConns != 1 || got.SQLiteMaxIdleConns != 1 {
		t.Errorf("conns = %d/%d, want 1/1", got.SQLiteMaxOpenConns, got.SQLiteMaxIdleConns)
	}
	if got.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", got.SessionTTL)
	}
	if got.SessionMax != 10000 {
		t.Errorf("SessionMax = %d, want 10000", got.SessionMax)
	}
	if got.HTTPRateRPS != 20 || got.HTTPRateBurst != 40 {
		t.Errorf("rate = %v/%d, want 20/40", got.HTTPRateRPS, got.HTTPRateBurst)
	}
	if got.MQTTEnabled() {
		t.Error("MQTTEnabled() = true, want false without MQTT_BROKER")
	}
	if got.MQTTTopic != "powerstats/selections" {
		t.Errorf("MQTTTopic = %q, want powerstats/selections", got.MQTTTopic)
	}
}

func TestLoadFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "app env", key: "APP_ENV", value: "staging"},
		{name: "uppercase app env", key: "APP_ENV", value: "DEV"},
		{name: "log level", key: "LOG_LEVEL", value: "loud"},
		{name: "max open conns", key: "DB_MAX_OPEN_CONNS", value: "many"},
		{name: "conn lifetime", key: "DB_CONN_MAX_LIFETIME", value: "forever"},
		{name: "log sql", key: "DB_LOG_SQL", value: "maybe"},
		{name: "session ttl", key: "SESSION_TTL", value: "soon"},
		{name: "zero session ttl", key: "SESSION_TTL", value: "0s"},
		{name: "session max", key: "SESSION_MAX", value: "lots"},
		{name: "zero session max", key: "SESSION_MAX", value: "0"},
		{name: "rate rps", key: "HTTP_RATE_RPS", value: "fast"},
		{name: "negative rate rps", key: "HTTP_RATE_RPS", value: "-1"},
		{name: "mqtt port", key: "MQTT_PORT", value: "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "  :9090  ")
	t.Setenv("DB_LOG_SQL", "true")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("SESSION_MAX", "50")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_PORT", "1884")
	t.Setenv("VOCABULARY_PATH", "vocab.yaml")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", got.HTTPAddr)
	}
	if !got.SQLiteLogSQL {
		t.Error("SQLiteLogSQL = false, want true")
	}
	if got.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %v, want 5m", got.SessionTTL)
	}
	if got.SessionMax != 50 {
		t.Errorf("SessionMax = %d, want 50", got.SessionMax)
	}
	if !got.MQTTEnabled() || got.MQTTBroker != "broker.local" || got.MQTTPort != 1884 {
		t.Errorf("mqtt = %q:%d enabled=%v", got.MQTTBroker, got.MQTTPort, got.MQTTEnabled())
	}
	if got.VocabularyPath != "vocab.yaml" {
		t.Errorf("VocabularyPath = %q, want vocab.yaml", got.VocabularyPath)
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		t.Run(in, func(t *testing.T) {
			got, err := parseLogLevel(in)
			if err == nil {
				t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
			}
			if got != slog.LevelInfo {
				t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
			}
		})
	}
}
