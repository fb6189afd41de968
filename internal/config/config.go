// Package config loads service configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the service configuration. All values come from STUDYLOOP_*
// environment variables.
type Config struct {
	// HTTPAddr is the listen address of the API server.
	HTTPAddr string

	// DBPath is the SQLite database file. Empty means the default XDG
	// location.
	DBPath string

	// AuthSecret signs student access tokens. Required for serving.
	AuthSecret string

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	// CORSOrigins are the allowed browser origins. "*" during development.
	CORSOrigins []string

	// IdleTTL is how long an inactive session survives before eviction.
	IdleTTL time.Duration

	// SweepInterval is how often the session janitor runs.
	SweepInterval time.Duration
}

// FromEnv loads configuration. A .env file in the working directory is
// read first when present; real environment variables win.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:      getenv("STUDYLOOP_ADDR", ":8080"),
		DBPath:        os.Getenv("STUDYLOOP_DB"),
		AuthSecret:    os.Getenv("STUDYLOOP_AUTH_SECRET"),
		TokenTTL:      getduration("STUDYLOOP_TOKEN_TTL", 8*time.Hour),
		CORSOrigins:   getlist("STUDYLOOP_CORS_ORIGINS", []string{"*"}),
		IdleTTL:       getduration("STUDYLOOP_SESSION_IDLE_TTL", 24*time.Hour),
		SweepInterval: getduration("STUDYLOOP_SWEEP_INTERVAL", 10*time.Minute),
	}
}

// Validate checks the fields required to serve traffic.
func (c Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("STUDYLOOP_AUTH_SECRET is required")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
