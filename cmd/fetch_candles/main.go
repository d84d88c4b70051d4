// Command fetch_candles downloads 1-minute Binance futures candles into a CSV
// file that cmd/replay can feed through the engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"signalGenerator/config"
	"signalGenerator/internal/adapters/binanceclient"
	"signalGenerator/internal/adapters/logger"
	"signalGenerator/internal/utils"
)

func main() {
	days := flag.Int("days", 7, "number of days to fetch, ending now")
	out := flag.String("out", "", "output file (default data/<symbol>_1m_<start>_to_<end>.csv)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger.Named("binance"),
		Symbol:               cfg.BinanceSymbol,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	end := time.Now().UTC().Truncate(time.Minute)
	start := end.AddDate(0, 0, -*days)

	appLogger.Info(ctx, "Fetching candles", map[string]interface{}{
		"symbol": cfg.BinanceSymbol, "start": start, "end": end,
	})
	candles, err := binanceClient.GetCandlesRange(ctx, cfg.BinanceSymbol, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching candles")
		log.Fatalf("Error fetching candles: %v", err)
	}
	appLogger.Info(ctx, "Fetched candles", map[string]interface{}{"count": len(candles)})

	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("data/%s_1m_%s_to_%s.csv", cfg.BinanceSymbol, start.Format("20060102"), end.Format("20060102"))
	}
	if err := utils.WriteCandlesToCSV(candles, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved candles", map[string]interface{}{"filename": filename})
}
