// Package config loads the server's environment-variable configuration
// surface. Grounded on the teacher's getEnv/getEnvInt helpers in
// cmd/server/main.go, extended with a .env loader the way
// zfogg-sidechain's and yousefabdallah171-POSS's cmd/server entry
// points do, so local development doesn't require exporting vars by
// hand.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full environment-variable surface for cmd/server.
type Config struct {
	ListenAddr    string
	MetricsAddr   string
	PostgresDSN   string
	SQLitePath    string
	JWTSecret     string
	AnonymousAuth bool

	MaxDocumentSize     int
	BroadcastBufferSize int
	WSReadTimeout       time.Duration
	WSWriteTimeout      time.Duration

	IdleCleanupInterval time.Duration
	IdleDocumentTTL     time.Duration

	LogLevel string
	LogFile  string
}

// Load reads a .env file if present (missing is not an error, mirroring
// godotenv.Load's own convention in the pack) and then populates Config
// from the process environment, applying the teacher's defaults where a
// variable is unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":3030"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		SQLitePath:    os.Getenv("SQLITE_URI"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AnonymousAuth: getEnvBool("ANONYMOUS_AUTH", false),

		MaxDocumentSize:     getEnvInt("MAX_DOCUMENT_SIZE_KB", 256) * 1024,
		BroadcastBufferSize: getEnvInt("BROADCAST_BUFFER_SIZE", 16),
		WSReadTimeout:       time.Duration(getEnvInt("WS_READ_TIMEOUT_MINUTES", 30)) * time.Minute,
		WSWriteTimeout:      time.Duration(getEnvInt("WS_WRITE_TIMEOUT_SECONDS", 10)) * time.Second,

		IdleCleanupInterval: time.Duration(getEnvInt("IDLE_CLEANUP_INTERVAL_MINUTES", 5)) * time.Minute,
		IdleDocumentTTL:     time.Duration(getEnvInt("IDLE_DOCUMENT_TTL_MINUTES", 30)) * time.Minute,

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}

	if !cfg.AnonymousAuth && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET must be set unless ANONYMOUS_AUTH=true")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
