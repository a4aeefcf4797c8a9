package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "Tally", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.InDelta(t, 0.15, cfg.Billing.VATRate, 1e-9)
	assert.Equal(t, "./exports", cfg.Export.Dir)
	assert.Equal(t, "postgres://postgres:@localhost:5432/tally?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VAT_RATE", "0.23")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.23, cfg.Billing.VATRate, 1e-9)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_RejectsVATRateOutOfRange(t *testing.T) {
	t.Setenv("VAT_RATE", "1.5")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("SERVER_TIMEOUT", "0s")

	_, err := config.Load()
	assert.ErrorContains(t, err, "SERVER_TIMEOUT")
}
