package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/skolara/skolara/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "config-test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "skolara", cfg.JWTIssuer)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, time.Hour, cfg.AccessTTL())
	assert.Equal(t, 14*24*time.Hour, cfg.RefreshTTL())
	assert.True(t, cfg.RevocationEnabled)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "config-test-secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_TTL", "15")
	t.Setenv("JWT_REFRESH_TTL", "1440")
	t.Setenv("JWT_LEEWAY", "30s")
	t.Setenv("LOGIN_RATE_LIMIT", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 30*time.Second, cfg.JWTLeeway)
	assert.Equal(t, 3, cfg.LoginRateLimit)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", "config-test-secret")
	t.Setenv("JWT_TTL", "0")

	_, err := LoadConfig()
	assert.Error(t, err)
}
