package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, time.Minute, cfg.StatsCacheTTL)
	assert.True(t, cfg.AuditAsync)
	assert.Equal(t, "0 3 * * *", cfg.DiagnosticsCron)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigProductionNeedsSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TOKEN_SECRET", "too-short")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsShortSecretOutsideProduction(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("TOKEN_SECRET", "too-short")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_SECRET")

	t.Setenv("TOKEN_SECRET", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.TokenSecret)
}

func TestLoadConfigProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TOKEN_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())
	t.Setenv(TestModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestTestModeFlagValues(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "TRUE": true, " 1 ": true, "0": false, "no": false, "": false} {
		assert.Equal(t, want, parseFlag(raw), raw)
	}
}
