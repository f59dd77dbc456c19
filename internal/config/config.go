// Package config loads runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the HTTP listen address
	Addr string

	// DataDir holds the SQLite database file
	DataDir string

	// StaticDir holds the built frontend; empty disables static serving
	StaticDir string

	// SessionSecret signs session tokens
	SessionSecret string

	// SessionTTL is how long a sign-in stays valid
	SessionTTL time.Duration

	// Host account ensured at startup
	HostMail     string
	HostPassword string
	HostName     string

	CORSOrigins []string

	LogLevel  string
	LogFormat string

	// DefaultSyncIntervalMin applies to calendar subscriptions without an interval
	DefaultSyncIntervalMin int

	// FeedTimeout bounds a single iCal feed download
	FeedTimeout time.Duration
}

// Load reads a .env file when present, then builds the configuration from
// environment variables.
func Load(files ...string) Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load(files...)
	return DefaultConfig()
}

// DefaultConfig returns the configuration read from environment variables.
func DefaultConfig() Config {
	return Config{
		Addr:                   getEnv("ADDR", ":8099"),
		DataDir:                getEnv("DATA_DIR", "/data"),
		StaticDir:              getEnv("STATIC_DIR", "./static"),
		SessionSecret:          getEnv("SESSION_SECRET", ""),
		SessionTTL:             time.Duration(getEnvInt("SESSION_TTL_HOURS", 24*7)) * time.Hour,
		HostMail:               getEnv("HOST_MAIL", ""),
		HostPassword:           getEnv("HOST_PASSWORD", ""),
		HostName:               getEnv("HOST_NAME", "Host"),
		CORSOrigins:            splitList(getEnv("CORS_ORIGINS", "")),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "text"),
		DefaultSyncIntervalMin: getEnvInt("DEFAULT_SYNC_INTERVAL_MIN", 15),
		FeedTimeout:            time.Duration(getEnvInt("FEED_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// HasHostAccount returns true if credentials for the host account are set.
func (c Config) HasHostAccount() bool {
	return c.HostMail != "" && c.HostPassword != ""
}

// getEnv returns an environment variable value or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
