package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8001", cfg.App.Addr())
	assert.Equal(t, devSecretKey, cfg.Auth.SecretKey)
	assert.Equal(t, "hmac", cfg.Auth.TokenScheme)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginWindow())
	assert.Equal(t, 5*time.Second, cfg.Postgres.QueryTimeout())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_SECRET_KEY", "prod-secret")
	t.Setenv("AUTH_TOKEN_SCHEME", "LEGACY")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "2")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod-secret", cfg.Auth.SecretKey)
	assert.Equal(t, "legacy", cfg.Auth.TokenScheme)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL())
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}

func TestLoadRejectsMissingSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_SECRET_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_SECRET_KEY")
}

func TestLoadRejectsUnknownScheme(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_TOKEN_SCHEME", "md5")

	_, err := Load()
	assert.ErrorContains(t, err, "AUTH_TOKEN_SCHEME")
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_DB")
}
