package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/strategy"
)

func TestDecode_OverridesOnlyPresentKeys(t *testing.T) {
	cfg := Default()
	doc := `
workers: 8
strategy:
  max_holding_days: 30
  stagnation_enabled: false
  ladder_sell_pricing: close
`
	require.NoError(t, Decode(strings.NewReader(doc), &cfg))

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 30, cfg.Strategy.MaxHoldingDays)
	assert.False(t, cfg.Strategy.StagnationEnabled)
	assert.Equal(t, domain.SellPricingClose, cfg.Strategy.LadderSellPricing)

	// Untouched keys keep their defaults
	def := domain.DefaultStrategyConfig()
	assert.Equal(t, def.InitialCash, cfg.Strategy.InitialCash)
	assert.Equal(t, def.StopLossPct, cfg.Strategy.StopLossPct)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("strategy:\n  stop_los_pct: 0.1\n"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_los_pct")
}

func TestDecode_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, Decode(strings.NewReader("  \n"), &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPostgresDSN:   "postgres://u:p@localhost/db",
		EnvClickhouseDSN: "clickhouse://localhost:9000/bars",
		EnvWorkers:       " 2 ",
	}
	cfg := Default()
	require.NoError(t, applyEnv(&cfg, func(k string) string { return env[k] }))

	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.HasDatabases())
	assert.Equal(t, ":8080", cfg.HTTPAddr)

	env[EnvWorkers] = "many"
	err := applyEnv(&cfg, func(k string) string { return env[k] })
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Strategy.LadderSellPricing = "vwap"
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.True(t, errors.Is(err, strategy.ErrUnknownSellPricing))
}

func TestLoad_File(t *testing.T) {
	t.Setenv(EnvWorkers, "")
	t.Setenv(EnvOutputDir, "")

	path := filepath.Join(t.TempDir(), "backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: reports\nstrategy:\n  initial_cash: 50000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.Equal(t, 50000.0, cfg.Strategy.InitialCash)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
