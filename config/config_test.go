package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/dualbot/internal/domain"
	"github.com/alejandrodnm/dualbot/internal/indicators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "ETH/USDT", cfg.Backtest.Symbol)
	assert.Equal(t, "1m", cfg.Backtest.SourceInterval)
	assert.Equal(t, "3m", cfg.Backtest.BarInterval)
	assert.Equal(t, 168*time.Hour, cfg.Lookback())
	assert.Equal(t, 20, cfg.Backtest.WarmupBars)
	assert.Equal(t, 10_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, domain.DefaultStrategyParams(), cfg.Strategy)
	assert.Equal(t, indicators.DefaultConfig(), cfg.Indicators)
	assert.Equal(t, "https://api.binance.com", cfg.API.BinanceBase)
	assert.Equal(t, "dualbot.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParse_PartialStrategyKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("strategy:\n  adx_threshold: 0\n  stop_atr_mult: 1.5\n"))
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.Strategy.ADXThreshold, "explicit zero is kept")
	assert.Equal(t, 1.5, cfg.Strategy.StopATRMult)
	assert.Equal(t, 30.0, cfg.Strategy.RSIOversold)
	assert.Equal(t, 2.5, cfg.Strategy.TargetATRMult)
}

func TestParse_InvalidStrategy(t *testing.T) {
	_, err := Parse([]byte("strategy:\n  rsi_oversold: 80\n  rsi_overbought: 70\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DUALBOT_SYMBOL", "BTCUSDT")
	t.Setenv("BINANCE_BASE", "http://localhost:9999")
	t.Setenv("DUALBOT_DB", ":memory:")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte("backtest:\n  symbol: ETH/USDT\n"))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", cfg.Backtest.Symbol)
	assert.Equal(t, "http://localhost:9999", cfg.API.BinanceBase)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.Len(t, cfg.Sweep.Grid.ADXThreshold, 4)
	assert.Equal(t, ".cache/bars", cfg.Storage.CacheDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_BadYAML(t *testing.T) {
	_, err := Parse([]byte("backtest: [unclosed"))
	assert.Error(t, err)
}
