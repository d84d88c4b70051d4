package engine

import (
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/risk"
)

// Stats are counters kept for the status surface.
type Stats struct {
	CandlesReceived  int64            `json:"candlesReceived"`
	CandlesProcessed int64            `json:"candlesProcessed"`
	Evaluations      int64            `json:"evaluations"`
	LastEvaluation   time.Time        `json:"lastEvaluation"`
	SessionResets    int64            `json:"sessionResets"`
	Skips            map[string]int64 `json:"skips"`
	SignalsEmitted   map[string]int64 `json:"signalsEmitted"`
}

func newStats() Stats {
	return Stats{
		Skips:          make(map[string]int64),
		SignalsEmitted: make(map[string]int64),
	}
}

// ReconcileStatus summarizes broker reconciliation health.
type ReconcileStatus struct {
	LastAt              time.Time        `json:"lastAt"`
	LastOutcome         ReconcileOutcome `json:"lastOutcome"`
	LastError           string           `json:"lastError,omitempty"`
	ConsecutiveFailures int              `json:"consecutiveFailures"`
	StaleCount          int              `json:"staleCount"`
	StartupSynced       bool             `json:"startupSynced"`
	StartupDegraded     bool             `json:"startupDegraded"`
}

// Status is a point-in-time snapshot of the engine.
type Status struct {
	Strategy            string                `json:"strategy"`
	Symbol              string                `json:"symbol"`
	Timeframe           string                `json:"timeframe"`
	AggregationKey      string                `json:"aggregationKey"`
	Enabled             bool                  `json:"enabled"`
	InSession           bool                  `json:"inSession"`
	InPosition          bool                  `json:"inPosition"`
	Position            *domain.Position      `json:"position,omitempty"`
	PendingOrders       []domain.PendingOrder `json:"pendingOrders"`
	Trailing            *risk.TrailingState   `json:"trailing,omitempty"`
	EarlyExit           *risk.GFTrackingState `json:"earlyExit,omitempty"`
	LastEvaluatedPeriod *int64                `json:"lastEvaluatedPeriod,omitempty"`
	LastCandle          time.Time             `json:"lastCandle"`
	CooldownStart       time.Time             `json:"cooldownStart"`
	GexAvailable        bool                  `json:"gexAvailable"`
	Reconcile           ReconcileStatus       `json:"reconcile"`
	Stats               Stats                 `json:"stats"`
	Degraded            []string              `json:"degraded"`
	Timestamp           time.Time             `json:"timestamp"`
}

// Status builds a snapshot. Maps and slices are copies.
func (e *Engine) Status(now time.Time) Status {
	st := Status{
		Strategy:       e.cfg.StrategyID,
		Symbol:         e.cfg.Symbol,
		Timeframe:      e.cfg.EvalTimeframe.String(),
		AggregationKey: e.aggKey,
		Enabled:        e.enabled,
		InSession:      e.session.inSession,
		InPosition:     e.position != nil,
		Position:       e.Position(),
		PendingOrders:  e.tracker.Pending(),
		Trailing:       e.trailing.State(),
		LastCandle:     e.lastCandle,
		CooldownStart:  e.strategy.LastSignalTime(),
		GexAvailable:   e.levels.GexLevels() != nil,
		Reconcile: ReconcileStatus{
			LastAt:              e.reconcile.lastAt,
			LastOutcome:         e.reconcile.lastOutcome,
			LastError:           e.reconcile.lastError,
			ConsecutiveFailures: e.reconcile.consecutiveFailures,
			StaleCount:          e.reconcile.staleCount,
			StartupSynced:       e.reconcile.startupSynced,
			StartupDegraded:     e.reconcile.startupDegraded,
		},
		Stats:     e.copyStats(),
		Timestamp: now,
	}
	if e.earlyExit != nil {
		st.EarlyExit = e.earlyExit.State()
	}
	if id, ok := e.agg.LastEvaluatedPeriod(); ok {
		st.LastEvaluatedPeriod = &id
	}
	st.Degraded = e.degraded(st)
	return st
}

func (e *Engine) copyStats() Stats {
	cp := e.stats
	cp.Skips = make(map[string]int64, len(e.stats.Skips))
	for k, v := range e.stats.Skips {
		cp.Skips[k] = v
	}
	cp.SignalsEmitted = make(map[string]int64, len(e.stats.SignalsEmitted))
	for k, v := range e.stats.SignalsEmitted {
		cp.SignalsEmitted[k] = v
	}
	return cp
}

// degraded lists conditions an operator should notice without reading logs.
func (e *Engine) degraded(st Status) []string {
	out := []string{}
	if st.Reconcile.StartupDegraded {
		out = append(out, "startup_sync_failed")
	}
	if st.Reconcile.ConsecutiveFailures > 0 {
		out = append(out, "reconcile_failing")
	}
	if st.Reconcile.StaleCount > 0 {
		out = append(out, "stale_positions_detected")
	}
	if !st.GexAvailable {
		out = append(out, "no_gex_levels")
	}
	if st.Stats.Skips[SkipNoIVData] > 0 {
		out = append(out, "iv_data_missing")
	}
	return out
}
