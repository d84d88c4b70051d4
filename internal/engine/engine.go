// Package engine is the live strategy coordination core. It decides when the
// strategy is asked for a signal and protects the open position over time.
//
// Engine is not safe for concurrent use; callers serialize every method call.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"signalGenerator/internal/aggregation"
	"signalGenerator/internal/domain"
	"signalGenerator/internal/orders"
	"signalGenerator/internal/ports"
	"signalGenerator/internal/risk"
)

const defaultHistorySize = 500

// Config is fixed at construction.
type Config struct {
	Symbol              string // broker contract, e.g. NQH6
	CandleSymbol        string // candle root, e.g. NQ; empty accepts any candle
	StrategyID          string
	Quantity            float64
	EvalTimeframe       time.Duration
	Session             SessionWindow
	OrderTimeoutCandles int
	TrailingRules       []domain.TrailingRule
	EarlyExitEnabled    bool
	EarlyExit           risk.EarlyExitConfig
	EntryLimits         risk.EntryLimits
	HistorySize         int
	Enabled             bool
}

// Engine owns all coordination state for one instrument.
type Engine struct {
	cfg      Config
	logger   ports.Logger
	strategy ports.Strategy
	levels   ports.LevelProvider
	riskMgr  *risk.Manager
	newID    func() string

	enabled   bool
	position  *domain.Position
	tracker   *orders.Tracker
	trailing  *risk.TrailingController
	earlyExit *risk.EarlyExitController
	aggKey    string
	agg       *aggregation.State
	history   []domain.Candle

	lastCandle  time.Time
	session     sessionState
	reconcile   reconcileState
	positionGen uint64
	stats       Stats
}

// New validates cfg and builds an engine.
func New(cfg Config, logger ports.Logger, strat ports.Strategy, levels ports.LevelProvider) (*Engine, error) {
	if logger == nil || strat == nil || levels == nil {
		return nil, fmt.Errorf("missing required dependencies for Engine")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("engine symbol must be set")
	}
	if cfg.StrategyID == "" {
		cfg.StrategyID = strat.Name()
	}
	if cfg.Quantity <= 0 {
		return nil, fmt.Errorf("engine quantity must be positive")
	}
	if cfg.EvalTimeframe == 0 {
		cfg.EvalTimeframe = aggregation.NativeInterval
	}
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}

	agg, err := aggregation.NewState(cfg.EvalTimeframe)
	if err != nil {
		return nil, fmt.Errorf("invalid evaluation timeframe: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		strategy: strat,
		levels:   levels,
		riskMgr:  risk.NewManager(cfg.EntryLimits),
		newID:    uuid.NewString,
		enabled:  cfg.Enabled,
		tracker:  orders.NewTracker(cfg.OrderTimeoutCandles),
		trailing: risk.NewTrailingController(cfg.TrailingRules),
		aggKey:   fmt.Sprintf("%s:%s", cfg.StrategyID, cfg.EvalTimeframe),
		agg:      agg,
		stats:    newStats(),
	}
	if cfg.EarlyExitEnabled {
		ee, err := risk.NewEarlyExitController(cfg.EarlyExit)
		if err != nil {
			return nil, err
		}
		e.earlyExit = ee
	}
	return e, nil
}

// SetEnabled turns strategy evaluation on or off.
func (e *Engine) SetEnabled(ctx context.Context, enabled bool) {
	if e.enabled != enabled {
		e.logger.Info(ctx, "Strategy enabled flag changed", map[string]interface{}{"enabled": enabled, "strategy": e.cfg.StrategyID})
		if enabled {
			// Candles were not folded while disabled.
			e.agg.Resync()
		}
	}
	e.enabled = enabled
}

// Enabled reports the enabled flag.
func (e *Engine) Enabled() bool {
	return e.enabled
}

// Position returns a copy of the current position, or nil when flat.
func (e *Engine) Position() *domain.Position {
	if e.position == nil {
		return nil
	}
	cp := *e.position
	return &cp
}

// PositionGeneration changes whenever a position is opened, updated or
// closed.
func (e *Engine) PositionGeneration() uint64 {
	return e.positionGen
}

// InPosition reports whether a position is held.
func (e *Engine) InPosition() bool {
	return e.position != nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// matchesInstrument accepts the configured contract or any contract of the
// configured candle root.
func (e *Engine) matchesInstrument(symbol string) bool {
	if strings.EqualFold(symbol, e.cfg.Symbol) {
		return true
	}
	root := e.cfg.CandleSymbol
	return root != "" && strings.HasPrefix(strings.ToUpper(symbol), strings.ToUpper(root))
}

func (e *Engine) gammaFlip() (float64, bool) {
	gex := e.levels.GexLevels()
	if gex == nil || gex.GammaFlip == 0 {
		return 0, false
	}
	return gex.GammaFlip, true
}
