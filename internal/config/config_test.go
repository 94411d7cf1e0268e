package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10", cfg.Pricing.ServiceVATRate)
	assert.Equal(t, "21", cfg.Pricing.FoodVATRate)
	assert.Equal(t, "0 */15 * * * *", cfg.Jobs.RecalculationCron)
	assert.Equal(t, 100, cfg.Jobs.RecalculationBatchSize)
	assert.Equal(t, 8080, cfg.App.Port)
}

func TestLoad_EnvironmentOverridesRates(t *testing.T) {
	t.Setenv("PRICING_FOODVATRATE", "19.5")

	cfg, err := Load()
	require.NoError(t, err)

	table, err := cfg.Pricing.RateTable(nil)
	require.NoError(t, err)
	rate, err := table.VATRate("food")
	require.NoError(t, err)
	assert.Equal(t, "19.5", rate.String())
}

func TestLoad_RejectsInvalidRate(t *testing.T) {
	t.Setenv("PRICING_SERVICEVATRATE", "150")

	_, err := Load()
	assert.Error(t, err)
}

func TestJobsConfig_Durations(t *testing.T) {
	j := JobsConfig{RecalculationStaleAfter: 30, RecalculationTimeout: 45}
	assert.Equal(t, "30m0s", j.StaleAfterDuration().String())
	assert.Equal(t, "45s", j.TimeoutDuration().String())
}

func TestLoadWithSecrets_EnvironmentSourceInDevelopment(t *testing.T) {
	t.Setenv("USE_AZURE_KEY_VAULT", "")
	t.Setenv("JWT_SECRET", "signing-secret-from-env")
	t.Setenv("DATABASE_HOST", "pricing-db.internal")
	t.Setenv("DEFAULT_DATABASE", "pricing_test")

	cfg, err := LoadWithSecrets(context.Background(), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "signing-secret-from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "pricing-db.internal", cfg.Database.Host)
	assert.Equal(t, "pricing_test", cfg.Database.Name)
	// unresolved secrets keep their configured values
	assert.Equal(t, "proposals_user", cfg.Database.User)
}
