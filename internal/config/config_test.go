package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 8*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.IdleTTL)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STUDYLOOP_ADDR", "127.0.0.1:9999")
	t.Setenv("STUDYLOOP_TOKEN_TTL", "30m")
	t.Setenv("STUDYLOOP_CORS_ORIGINS", "https://app.example.com, https://staging.example.com")
	t.Setenv("STUDYLOOP_SESSION_IDLE_TTL", "not-a-duration")

	cfg := FromEnv()

	assert.Equal(t, "127.0.0.1:9999", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.CORSOrigins)
	// Malformed durations fall back to the default.
	assert.Equal(t, 24*time.Hour, cfg.IdleTTL)
}

func TestValidate(t *testing.T) {
	t.Setenv("STUDYLOOP_AUTH_SECRET", "")
	cfg := FromEnv()
	require.Error(t, cfg.Validate())

	cfg.AuthSecret = "secret"
	require.NoError(t, cfg.Validate())
}
