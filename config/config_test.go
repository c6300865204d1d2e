package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/inmatch?sslmode=disable")
	t.Setenv("JWT_SECRET_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "Africa/Lagos", cfg.MatchTimezone)
	assert.Equal(t, 60*time.Second, cfg.KickoffPollInterval)
	assert.Equal(t, 48*time.Hour, cfg.MatchRetention)
	assert.Equal(t, 5*time.Minute, cfg.RetentionSweepInterval)
	assert.Equal(t, 48*time.Hour, cfg.VideoOrphanAge)
	assert.Equal(t, 60*time.Second, cfg.UploadTimeout)
	assert.Equal(t, 3, cfg.UploadConcurrency)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET_KEY", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	assert.ErrorContains(t, err, "SERVER_PORT")
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KICKOFF_POLL_INTERVAL", "15s")
	t.Setenv("MATCH_RETENTION", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://www.inmatch.com.ng, ,https://admin.inmatch.com.ng")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.KickoffPollInterval)
	assert.Equal(t, time.Hour, cfg.MatchRetention)
	assert.Equal(t, []string{"https://www.inmatch.com.ng", "https://admin.inmatch.com.ng"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPLOAD_TIMEOUT", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "UPLOAD_TIMEOUT")
}

func TestLoad_InvalidTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MATCH_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.ErrorContains(t, err, "MATCH_TIMEZONE")
}
