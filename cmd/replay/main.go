// Command replay feeds recorded 1-minute candles through the signal service
// over an in-process bus and prints every signal it would publish.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"signalGenerator/internal/adapters/levels"
	"signalGenerator/internal/adapters/logger"
	"signalGenerator/internal/adapters/membus"
	"signalGenerator/internal/app"
	"signalGenerator/internal/domain"
	"signalGenerator/internal/engine"
	"signalGenerator/internal/risk"
	"signalGenerator/internal/strategy"
	"signalGenerator/internal/utils"
)

// flatBroker reports no open positions.
type flatBroker struct{}

func (flatBroker) GetOpenPositions(ctx context.Context, account string) ([]domain.BrokerPosition, error) {
	return nil, nil
}

func main() {
	file := flag.String("file", "", "candle CSV written by fetch_candles (required)")
	gexFile := flag.String("gex", "", "JSON file with a GEX levels snapshot (required for evaluation)")
	ltFile := flag.String("lt", "", "JSON file with liquidity trigger levels")
	strategyName := flag.String("strategy", strategy.GexRecoilName, "gex_recoil or ma_trend")
	timeframe := flag.Duration("timeframe", 15*time.Minute, "evaluation timeframe")
	symbol := flag.String("symbol", "NQH6", "contract symbol stamped on signals")
	sessionStart := flag.Int("session-start", 0, "session start hour")
	sessionEnd := flag.Int("session-end", 0, "session end hour (equal to start means all day)")
	tz := flag.String("tz", "America/New_York", "session time zone")
	trailing := flag.String("trailing", "", "time-based trailing rules, bars,mfe,action|...")
	logLevel := flag.String("log-level", "WARN", "log level")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	appLogger := logger.NewWriterLogger(os.Stderr, logger.ParseLevel(*logLevel))
	ctx := context.Background()

	candles, err := utils.ReadCandlesFromCSV(*file)
	if err != nil {
		log.Fatalf("FATAL: Failed to read candles: %v", err)
	}

	store := levels.NewStore(appLogger.Named("levels"))
	if *gexFile != "" {
		g := &domain.GexLevels{}
		if err := readJSON(*gexFile, g); err != nil {
			log.Fatalf("FATAL: Failed to read GEX levels: %v", err)
		}
		store.SetGex(g)
	}
	if *ltFile != "" {
		l := &domain.LTLevels{}
		if err := readJSON(*ltFile, l); err != nil {
			log.Fatalf("FATAL: Failed to read LT levels: %v", err)
		}
		store.SetLT(l)
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatalf("FATAL: Invalid time zone %q: %v", *tz, err)
	}
	params := strategy.DefaultParams()
	strat, err := strategy.New(*strategyName, params, strategy.MATrendConfig{
		ShortTermMAPeriod: 20,
		LongTermMAPeriod:  50,
		EMAPeriod:         20,
		RSIPeriod:         14,
		RSIOverbought:     70,
	}, appLogger.Named("strategy"))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize strategy: %v", err)
	}
	rules, ruleErrs := risk.ParseTrailingRules(*trailing)
	for _, e := range ruleErrs {
		appLogger.Warn(ctx, "Ignoring invalid time-based trailing rule", map[string]interface{}{"error": e.Error()})
	}

	eng, err := engine.New(engine.Config{
		Symbol:              *symbol,
		StrategyID:          strat.Name(),
		Quantity:            1,
		EvalTimeframe:       *timeframe,
		Session:             engine.SessionWindow{StartHour: *sessionStart, EndHour: *sessionEnd, Location: loc},
		OrderTimeoutCandles: 3,
		TrailingRules:       rules,
		EntryLimits:         risk.EntryLimits{MaxRiskPoints: params.MaxRisk},
		Enabled:             true,
	}, appLogger.Named("engine"), strat, store)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize engine: %v", err)
	}

	bus := membus.New()
	svc, err := app.NewService(app.Config{}, appLogger.Named("service"), eng, bus, flatBroker{}, nil, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize service: %v", err)
	}
	var clock time.Time
	svc.SetClock(func() time.Time { return clock })
	if err := svc.Subscribe(ctx); err != nil {
		log.Fatalf("FATAL: Failed to subscribe: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if err := bus.Subscribe(ctx, app.ChannelTradeSignal, func(ctx context.Context, channel string, payload []byte) {
		var sig domain.Signal
		if err := json.Unmarshal(payload, &sig); err != nil {
			appLogger.Error(ctx, err, "Undecodable signal")
			return
		}
		_ = enc.Encode(sig)
	}); err != nil {
		log.Fatalf("FATAL: Failed to subscribe to signals: %v", err)
	}

	for _, c := range candles {
		clock = c.Timestamp.Add(time.Minute)
		if err := bus.Publish(ctx, app.ChannelCandleClose, c); err != nil {
			log.Fatalf("FATAL: Failed to publish candle: %v", err)
		}
		svc.RunOnce(ctx)
	}

	st := svc.Status()
	fmt.Fprintf(os.Stderr, "candles=%d processed=%d evaluations=%d signals=%v skips=%v\n",
		st.Stats.CandlesReceived, st.Stats.CandlesProcessed, st.Stats.Evaluations, st.Stats.SignalsEmitted, st.Stats.Skips)
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
