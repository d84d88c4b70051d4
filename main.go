package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // session time zones on hosts without zoneinfo

	"github.com/gin-gonic/gin"

	"signalGenerator/config"
	"signalGenerator/internal/adapters/binanceclient"
	"signalGenerator/internal/adapters/httpapi"
	"signalGenerator/internal/adapters/levels"
	"signalGenerator/internal/adapters/logger"
	"signalGenerator/internal/adapters/redisbus"
	"signalGenerator/internal/adapters/sqlite"
	"signalGenerator/internal/app"
	"signalGenerator/internal/engine"
	"signalGenerator/internal/ports"
	"signalGenerator/internal/risk"
	"signalGenerator/internal/strategy"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Message Bus (Redis Adapter)
	bus, err := redisbus.New(ctx, redisbus.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Logger:   appLogger.Named("redis"),
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to connect to Redis")
		log.Fatalf("FATAL: Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing Redis bus")
		}
	}()
	appLogger.Info(ctx, "Redis bus connected", map[string]interface{}{"addr": cfg.RedisAddr})

	// 4. Initialize Market Level Store
	levelStore := levels.NewStore(appLogger.Named("levels"))
	if err := levelStore.Seed(ctx, bus.Client()); err != nil {
		appLogger.Warn(ctx, "Could not seed GEX levels from cache", map[string]interface{}{"error": err.Error()})
	}
	if err := levelStore.Subscribe(ctx, bus); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to subscribe to market level channels")
		log.Fatalf("FATAL: Failed to subscribe to market level channels: %v", err)
	}

	// 5. Initialize Journal (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger.Named("journal"),
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal journal")
		log.Fatalf("FATAL: Failed to initialize signal journal: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing signal journal")
		}
	}()
	appLogger.Info(ctx, "Signal journal initialized", map[string]interface{}{"path": cfg.DBPath})

	// 6. Initialize Broker Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger.Named("binance"),
		Symbol:               cfg.BinanceSymbol,
		Instrument:           cfg.TradingSymbol,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	if err := binanceClient.Ping(ctx); err != nil {
		appLogger.Warn(ctx, "Binance ping failed, startup sync will retry", map[string]interface{}{"error": err.Error()})
	}

	// 7. Initialize Strategy
	strat, err := strategy.New(cfg.ActiveStrategy, strategy.Params{
		TargetPoints:       cfg.TargetPoints,
		StopBuffer:         cfg.StopBuffer,
		MaxRisk:            cfg.MaxRisk,
		UseTrailingStop:    cfg.UseTrailingStop,
		TrailingTrigger:    cfg.TrailingTrigger,
		TrailingOffset:     cfg.TrailingOffset,
		UseLiquidityFilter: cfg.UseLiquidityFilter,
		MaxLTLevelsBelow:   cfg.MaxLTLevelsBelow,
		Cooldown:           cfg.SignalCooldown,
		UseBreakevenStop:   cfg.UseBreakevenStop,
		BreakevenTrigger:   cfg.BreakevenTrigger,
		BreakevenOffset:    cfg.BreakevenOffset,
	}, strategy.MATrendConfig{
		ShortTermMAPeriod: cfg.StrategyShortMAPeriod,
		LongTermMAPeriod:  cfg.StrategyLongMAPeriod,
		EMAPeriod:         cfg.StrategyEMAPeriod,
		RSIPeriod:         cfg.StrategyRSIPeriod,
		RSIOverbought:     cfg.StrategyRSIOverbought,
		RequireIV:         cfg.MATrendRequireIV,
	}, appLogger.Named("strategy"))
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading strategy")
		log.Fatalf("FATAL: Failed to initialize trading strategy: %v", err)
	}
	appLogger.Info(ctx, "Trading strategy initialized", map[string]interface{}{"strategy": strat.Name()})

	// 8. Initialize Engine
	rules, ruleErrs := risk.ParseTrailingRules(cfg.TimeBasedTrailing)
	for _, e := range ruleErrs {
		appLogger.Warn(ctx, "Ignoring invalid time-based trailing rule", map[string]interface{}{"error": e.Error()})
	}
	eng, err := engine.New(engine.Config{
		Symbol:        cfg.TradingSymbol,
		CandleSymbol:  cfg.CandleSymbol,
		StrategyID:    cfg.StrategyID,
		Quantity:      cfg.DefaultQuantity,
		EvalTimeframe: cfg.EvalTimeframe,
		Session: engine.SessionWindow{
			StartHour: cfg.SessionStartHour,
			EndHour:   cfg.SessionEndHour,
			Location:  cfg.SessionLocation,
		},
		OrderTimeoutCandles: cfg.OrderTimeoutCandles,
		TrailingRules:       rules,
		EarlyExitEnabled:    cfg.EarlyExitEnabled,
		EarlyExit: risk.EarlyExitConfig{
			CheckInterval:      cfg.EarlyExitCheckInterval,
			NoiseThreshold:     cfg.EarlyExitNoiseThreshold,
			BreakevenThreshold: cfg.EarlyExitBreakevenThreshold,
		},
		EntryLimits: risk.EntryLimits{
			MaxQuantity:   cfg.MaxQuantity,
			MaxRiskPoints: cfg.MaxRisk,
		},
		Enabled: cfg.StrategyEnabled,
	}, appLogger.Named("engine"), strat, levelStore)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize engine")
		log.Fatalf("FATAL: Failed to initialize engine: %v", err)
	}

	// 9. Initialize Application Service
	var candles ports.CandleStream
	candleSymbol := cfg.CandleSymbol
	if cfg.CandleSource == config.CandleSourceBinance {
		candles = binanceClient
		candleSymbol = cfg.BinanceSymbol
	}
	service, err := app.NewService(app.Config{
		AccountID:           cfg.AccountID,
		CandleSymbol:        candleSymbol,
		TickInterval:        cfg.TickInterval,
		ReconcileInterval:   cfg.ReconcileInterval,
		StatusInterval:      cfg.StatusInterval,
		StartupSyncAttempts: cfg.StartupSyncTries,
		StartupSyncDelay:    cfg.StartupSyncDelay,
	}, appLogger.Named("service"), eng, bus, binanceClient, repo, candles)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize signal service")
		log.Fatalf("FATAL: Failed to initialize signal service: %v", err)
	}

	// 10. Start the HTTP status server
	gin.SetMode(gin.ReleaseMode)
	httpServer := httpapi.NewServer(cfg.HTTPAddr, service, appLogger.Named("http"))
	go func() {
		if err := httpServer.Start(ctx); err != nil {
			appLogger.Error(ctx, err, "HTTP server stopped with error")
			stop()
		}
	}()

	// 11. Run until interrupted
	if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error(context.Background(), err, "Signal service exited with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "HTTP server shutdown failed")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
