package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/app/auth"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/authgate_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.ServerPort)
	assert.Equal(t, auth.StrategyToken, cfg.Strategy)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenLifetime())
	assert.False(t, cfg.IsProduction())
	assert.NotNil(t, Validate)
}

func TestLoadMissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/authgate_test")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadStrategy(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/authgate_test")
	t.Setenv("AUTH_STRATEGY", "session")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, auth.StrategySession, cfg.Strategy)
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/authgate_test")
	t.Setenv("AUTH_STRATEGY", "oauth")

	_, err := Load()
	assert.Error(t, err)
}
