package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "zero weeks per year",
			mutate: func(c *Config) { c.Simulation.WeeksPerYear = 0 },
			want:   "weeks_per_year",
		},
		{
			name:   "efficiency above one",
			mutate: func(c *Config) { c.Extraction.AnnualEfficiency = 1.3 },
			want:   "annual_efficiency",
		},
		{
			name:   "wage initial outside bounds",
			mutate: func(c *Config) { c.Wages.InitialRate = 2.0 },
			want:   "initial_rate",
		},
		{
			name:   "inverted wage bounds",
			mutate: func(c *Config) { c.Wages.MinRate, c.Wages.MaxRate = 0.9, 0.1 },
			want:   "min_rate",
		},
		{
			name:   "pool ratios out of order",
			mutate: func(c *Config) { c.Pool.LowRatio = 0.05 },
			want:   "pool ratios",
		},
		{
			name:   "negative subsidy cap",
			mutate: func(c *Config) { c.Subsidy.DefaultCap = -1 },
			want:   "default_cap",
		},
		{
			name:   "split fractions not summing to one",
			mutate: func(c *Config) { c.Decomposition.EnforcerFraction = 0.5 },
			want:   "sum to 1",
		},
		{
			name:   "zero control capacity",
			mutate: func(c *Config) { c.Control.CapacityPerEnforcer = 0 },
			want:   "capacity_per_enforcer",
		},
		{
			name:   "zero default repression",
			mutate: func(c *Config) { c.Defaults.RepressionFaced = 0 },
			want:   "repression_faced",
		},
		{
			name:   "negative accumulation rate",
			mutate: func(c *Config) { c.Contradiction.AccumulationRate = -0.01 },
			want:   "accumulation_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsAllProblemsAtOnce(t *testing.T) {
	cfg := Default()
	cfg.Simulation.WeeksPerYear = -1
	cfg.Extraction.AnnualEfficiency = 2
	cfg.Survival.SigmoidSteepness = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weeks_per_year")
	assert.Contains(t, err.Error(), "annual_efficiency")
	assert.Contains(t, err.Error(), "sigmoid_steepness")
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := `
extraction:
  annual_efficiency: 0.5
pool:
  initial: 2500
subsidy:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Extraction.AnnualEfficiency)
	assert.Equal(t, 2500.0, cfg.Pool.Initial)
	assert.False(t, cfg.Subsidy.Enabled)

	// Untouched keys keep their defaults.
	assert.Equal(t, 52.0, cfg.Simulation.WeeksPerYear)
	assert.Equal(t, 0.2, cfg.Tribute.CompradorCut)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wages:\n  initial_rate: 99\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial_rate")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
