package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalGenerator/internal/adapters/logger"
)

func setCredentials(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")
}

func TestFromEnv_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.StrategyEnabled)
	assert.Equal(t, "gex_recoil", cfg.ActiveStrategy)
	assert.Equal(t, "GEX_LT_RECOIL", cfg.StrategyID)
	assert.Equal(t, "NQH6", cfg.TradingSymbol)
	assert.Equal(t, "NQ", cfg.CandleSymbol)
	assert.Equal(t, 1.0, cfg.DefaultQuantity)
	assert.Equal(t, 15*time.Minute, cfg.EvalTimeframe)
	assert.Equal(t, 18, cfg.SessionStartHour)
	assert.Equal(t, 16, cfg.SessionEndHour)
	assert.Equal(t, "America/New_York", cfg.SessionLocation.String())
	assert.Equal(t, 3, cfg.OrderTimeoutCandles)
	assert.False(t, cfg.EarlyExitEnabled)
	assert.Equal(t, 2, cfg.EarlyExitBreakevenThreshold)
	assert.Equal(t, 15*time.Minute, cfg.EarlyExitCheckInterval)
	assert.Equal(t, 0.5, cfg.EarlyExitNoiseThreshold)
	assert.Equal(t, 300*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 60*time.Second, cfg.StatusInterval)
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, 3, cfg.StartupSyncTries)
	assert.Equal(t, 5*time.Second, cfg.StartupSyncDelay)
	assert.Equal(t, CandleSourceBus, cfg.CandleSource)
	assert.Equal(t, "127.0.0.1:3015", cfg.HTTPAddr)
	assert.Equal(t, "./data/signal_generator.db", cfg.DBPath)
	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, "BTCUSDT", cfg.BinanceSymbol)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 10, cfg.MaxReconnectAttempts)
	assert.Equal(t, 25.0, cfg.TargetPoints)
	assert.Equal(t, 10.0, cfg.StopBuffer)
	assert.Equal(t, 30.0, cfg.MaxRisk)
	assert.True(t, cfg.UseTrailingStop)
	assert.Equal(t, 3, cfg.MaxLTLevelsBelow)
	assert.Equal(t, 15*time.Minute, cfg.SignalCooldown)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("EVAL_TIMEFRAME", "5")
	t.Setenv("ACTIVE_STRATEGY", "MA_TREND")
	t.Setenv("SESSION_TIMEZONE", "UTC")
	t.Setenv("TIME_BASED_TRAILING", "3,10,breakeven|6,20,trail:8")
	t.Setenv("CANDLE_SOURCE", "binance")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.EvalTimeframe)
	assert.Equal(t, "ma_trend", cfg.ActiveStrategy)
	assert.Equal(t, time.UTC, cfg.SessionLocation)
	assert.Equal(t, "3,10,breakeven|6,20,trail:8", cfg.TimeBasedTrailing)
	assert.Equal(t, CandleSourceBinance, cfg.CandleSource)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)

	t.Setenv("EVAL_TIMEFRAME", "1h")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.EvalTimeframe)
}

func TestFromEnv_CollectsErrors(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("ACTIVE_STRATEGY", "martingale")
	t.Setenv("EVAL_TIMEFRAME", "90s")
	t.Setenv("SESSION_TIMEZONE", "Mars/Olympus")
	t.Setenv("DEFAULT_QUANTITY", "abc")
	t.Setenv("SESSION_START_HOUR", "25")

	_, err := FromEnv()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "ACTIVE_STRATEGY")
	assert.Contains(t, msg, "EVAL_TIMEFRAME")
	assert.Contains(t, msg, "SESSION_TIMEZONE")
	assert.Contains(t, msg, "DEFAULT_QUANTITY")
	assert.Contains(t, msg, "SESSION_START_HOUR")
	assert.Contains(t, msg, "BINANCE_API_KEY")
}
