package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef-test")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("JWT_EXPIRATION", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, LimitPolicyWarn, cfg.LimitPolicy)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Contains(t, cfg.Database.DSN(), "dbname=pharmacy_pos_db")
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "short")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownLimitPolicy(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef-test")
	t.Setenv("USAGE_LIMIT_POLICY", "Explode")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("USAGE_LIMIT_POLICY", "BLOCK")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LimitPolicyBlock, cfg.LimitPolicy)
}
