package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"signalGenerator/internal/adapters/logger"
)

// Candle sources.
const (
	CandleSourceBus     = "bus"
	CandleSourceBinance = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Strategy selection
	StrategyEnabled bool
	ActiveStrategy  string // gex_recoil | ma_trend
	StrategyID      string

	// Instrument
	TradingSymbol   string
	CandleSymbol    string
	AccountID       string
	DefaultQuantity float64
	MaxQuantity     float64 // 0 disables the entry quantity cap

	// Engine
	EvalTimeframe       time.Duration
	SessionStartHour    int
	SessionEndHour      int
	SessionLocation     *time.Location
	OrderTimeoutCandles int
	TimeBasedTrailing   string // raw rule list, parsed by the risk package

	// Early exit
	EarlyExitEnabled            bool
	EarlyExitBreakevenThreshold int
	EarlyExitCheckInterval      time.Duration
	EarlyExitNoiseThreshold     float64

	// Loop cadences
	ReconcileInterval time.Duration
	StatusInterval    time.Duration
	TickInterval      time.Duration
	StartupSyncTries  int
	StartupSyncDelay  time.Duration

	// Infrastructure
	CandleSource  string
	Broker        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	HTTPAddr      string
	DBPath        string

	// Binance API
	APIKey               string
	SecretKey            string
	IsTestnet            bool
	BinanceSymbol        string // exchange symbol reported as TradingSymbol
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int

	// Strategy Parameters
	TargetPoints       float64
	StopBuffer         float64
	MaxRisk            float64
	UseTrailingStop    bool
	TrailingTrigger    float64
	TrailingOffset     float64
	UseLiquidityFilter bool
	MaxLTLevelsBelow   int
	SignalCooldown     time.Duration
	UseBreakevenStop   bool
	BreakevenTrigger   float64
	BreakevenOffset    float64

	StrategyShortMAPeriod int     // e.g., 20
	StrategyLongMAPeriod  int     // e.g., 50
	StrategyEMAPeriod     int     // e.g., 20
	StrategyRSIPeriod     int     // e.g., 14
	StrategyRSIOverbought float64 // e.g., 70.0
	MATrendRequireIV      bool

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	positiveFloat := func(key string, def float64, allowZero bool) float64 {
		v, err := getEnvAsFloatRequired(key, def)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
			return def
		}
		if v < 0 || (v == 0 && !allowZero) {
			errs = append(errs, key+" must be positive")
		}
		return v
	}
	seconds := func(key string, def int) time.Duration {
		v, err := getEnvAsIntRequired(key, def)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
			return time.Duration(def) * time.Second
		}
		if v <= 0 {
			errs = append(errs, key+" must be positive")
		}
		return time.Duration(v) * time.Second
	}

	// Strategy selection
	cfg.StrategyEnabled = getEnvAsBool("STRATEGY_ENABLED", true)
	cfg.ActiveStrategy = strings.ToLower(getEnv("ACTIVE_STRATEGY", "gex_recoil"))
	if cfg.ActiveStrategy != "gex_recoil" && cfg.ActiveStrategy != "ma_trend" {
		errs = append(errs, "ACTIVE_STRATEGY must be gex_recoil or ma_trend")
	}
	cfg.StrategyID = getEnv("STRATEGY_ID", "GEX_LT_RECOIL")

	// Instrument
	cfg.TradingSymbol = getEnv("TRADING_SYMBOL", "NQH6")
	cfg.CandleSymbol = getEnv("CANDLE_SYMBOL", "NQ")
	cfg.AccountID = getEnv("ACCOUNT_ID", "")
	cfg.DefaultQuantity = positiveFloat("DEFAULT_QUANTITY", 1, false)
	cfg.MaxQuantity = positiveFloat("MAX_QUANTITY", 0, true)

	// Engine
	cfg.EvalTimeframe, err = getEnvAsDuration("EVAL_TIMEFRAME", 15*time.Minute)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid EVAL_TIMEFRAME: %v", err))
	} else if cfg.EvalTimeframe < time.Minute || cfg.EvalTimeframe%time.Minute != 0 {
		errs = append(errs, "EVAL_TIMEFRAME must be a whole number of minutes")
	}

	cfg.SessionStartHour = getEnvAsInt("SESSION_START_HOUR", 18)
	cfg.SessionEndHour = getEnvAsInt("SESSION_END_HOUR", 16)
	if cfg.SessionStartHour < 0 || cfg.SessionStartHour > 23 || cfg.SessionEndHour < 0 || cfg.SessionEndHour > 23 {
		errs = append(errs, "SESSION_START_HOUR and SESSION_END_HOUR must be between 0 and 23")
	}
	tz := getEnv("SESSION_TIMEZONE", "America/New_York")
	if cfg.SessionLocation, err = time.LoadLocation(tz); err != nil {
		errs = append(errs, fmt.Sprintf("invalid SESSION_TIMEZONE %q: %v", tz, err))
	}

	cfg.OrderTimeoutCandles, err = getEnvAsIntRequired("ORDER_TIMEOUT_CANDLES", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ORDER_TIMEOUT_CANDLES: %v", err))
	} else if cfg.OrderTimeoutCandles < 0 {
		errs = append(errs, "ORDER_TIMEOUT_CANDLES cannot be negative")
	}
	cfg.TimeBasedTrailing = getEnv("TIME_BASED_TRAILING", "")

	// Early exit
	cfg.EarlyExitEnabled = getEnvAsBool("EARLY_EXIT_ENABLED", false)
	cfg.EarlyExitBreakevenThreshold = getEnvAsInt("EARLY_EXIT_BREAKEVEN_THRESHOLD", 2)
	if cfg.EarlyExitBreakevenThreshold <= 0 {
		errs = append(errs, "EARLY_EXIT_BREAKEVEN_THRESHOLD must be positive")
	}
	cfg.EarlyExitCheckInterval = time.Duration(getEnvAsInt("EARLY_EXIT_CHECK_INTERVAL_MINUTES", 15)) * time.Minute
	if cfg.EarlyExitCheckInterval <= 0 {
		errs = append(errs, "EARLY_EXIT_CHECK_INTERVAL_MINUTES must be positive")
	}
	cfg.EarlyExitNoiseThreshold = positiveFloat("EARLY_EXIT_NOISE_THRESHOLD", 0.5, true)

	// Loop cadences
	cfg.ReconcileInterval = seconds("RECONCILE_INTERVAL_SECONDS", 300)
	cfg.StatusInterval = seconds("STATUS_INTERVAL_SECONDS", 60)
	cfg.TickInterval = seconds("TICK_INTERVAL_SECONDS", 30)
	cfg.StartupSyncTries = getEnvAsInt("STARTUP_SYNC_ATTEMPTS", 3)
	if cfg.StartupSyncTries <= 0 {
		errs = append(errs, "STARTUP_SYNC_ATTEMPTS must be positive")
	}
	cfg.StartupSyncDelay = seconds("STARTUP_SYNC_DELAY_SECONDS", 5)

	// Infrastructure
	cfg.CandleSource = strings.ToLower(getEnv("CANDLE_SOURCE", CandleSourceBus))
	if cfg.CandleSource != CandleSourceBus && cfg.CandleSource != CandleSourceBinance {
		errs = append(errs, "CANDLE_SOURCE must be bus or binance")
	}
	cfg.Broker = strings.ToLower(getEnv("BROKER", "binance"))
	if cfg.Broker != "binance" {
		errs = append(errs, "BROKER must be binance")
	}
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", "127.0.0.1:3015")
	cfg.DBPath = getEnv("DB_PATH", "./data/signal_generator.db")

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET must be set")
	}
	cfg.BinanceSymbol = strings.ToUpper(getEnv("BINANCE_SYMBOL", "BTCUSDT"))
	cfg.ReconnectDelay = seconds("WS_RECONNECT_DELAY_SECONDS", 1)
	cfg.MaxReconnectAttempts = getEnvAsInt("WS_MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts <= 0 {
		errs = append(errs, "WS_MAX_RECONNECT_ATTEMPTS must be positive")
	}

	// Strategy Parameters
	cfg.TargetPoints = positiveFloat("TARGET_POINTS", 25, false)
	cfg.StopBuffer = positiveFloat("STOP_BUFFER", 10, true)
	cfg.MaxRisk = positiveFloat("MAX_RISK", 30, false)
	cfg.UseTrailingStop = getEnvAsBool("USE_TRAILING_STOP", true)
	cfg.TrailingTrigger = positiveFloat("TRAILING_TRIGGER", 15, false)
	cfg.TrailingOffset = positiveFloat("TRAILING_OFFSET", 10, false)
	cfg.UseLiquidityFilter = getEnvAsBool("USE_LIQUIDITY_FILTER", true)
	cfg.MaxLTLevelsBelow = getEnvAsInt("MAX_LT_LEVELS_BELOW", 3)
	cfg.SignalCooldown = time.Duration(getEnvAsInt("SIGNAL_COOLDOWN_MINUTES", 15)) * time.Minute
	if cfg.SignalCooldown < 0 {
		errs = append(errs, "SIGNAL_COOLDOWN_MINUTES cannot be negative")
	}
	cfg.UseBreakevenStop = getEnvAsBool("USE_BREAKEVEN_STOP", false)
	cfg.BreakevenTrigger = positiveFloat("BREAKEVEN_TRIGGER", 10, false)
	cfg.BreakevenOffset = getEnvAsFloat("BREAKEVEN_OFFSET", 0)

	cfg.StrategyShortMAPeriod = getEnvAsInt("STRATEGY_SHORT_MA_PERIOD", 20)
	cfg.StrategyLongMAPeriod = getEnvAsInt("STRATEGY_LONG_MA_PERIOD", 50)
	cfg.StrategyEMAPeriod = getEnvAsInt("STRATEGY_EMA_PERIOD", 20)
	cfg.StrategyRSIPeriod = getEnvAsInt("STRATEGY_RSI_PERIOD", 14)
	cfg.StrategyRSIOverbought = getEnvAsFloat("STRATEGY_RSI_OVERBOUGHT", 70.0)
	cfg.MATrendRequireIV = getEnvAsBool("MA_TREND_REQUIRE_IV", false)

	// Validate strategy periods
	if cfg.StrategyShortMAPeriod <= 0 || cfg.StrategyLongMAPeriod <= 0 || cfg.StrategyEMAPeriod <= 0 || cfg.StrategyRSIPeriod <= 0 {
		errs = append(errs, "strategy periods (MA, EMA, RSI) must be positive")
	}
	if cfg.StrategyShortMAPeriod >= cfg.StrategyLongMAPeriod {
		errs = append(errs, "STRATEGY_SHORT_MA_PERIOD must be less than STRATEGY_LONG_MA_PERIOD")
	}
	if cfg.StrategyRSIOverbought <= 50 || cfg.StrategyRSIOverbought > 100 {
		errs = append(errs, "STRATEGY_RSI_OVERBOUGHT must be between 50 and 100")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := getEnvAsIntRequired(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := getEnvAsFloatRequired(key, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(valueStr), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("15m") and bare minute counts ("15").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue, nil
	}
	if n, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value '%s' for key %s: %w", valueStr, key, err)
	}
	return d, nil
}
