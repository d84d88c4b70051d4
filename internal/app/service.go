// Package app wires the engine to the bus, the broker and the journal. The
// Service is the single serialization point: every engine call happens under
// its mutex, and all I/O happens outside it.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/engine"
	"signalGenerator/internal/metrics"
	"signalGenerator/internal/ports"
)

// Bus channels.
const (
	ChannelTradeSignal    = "trade.signal"
	ChannelServiceHealth  = "service.health"
	ChannelCandleClose    = "candle.close"
	ChannelOrderPlaced    = "order.placed"
	ChannelOrderFilled    = "order.filled"
	ChannelOrderCancelled = "order.cancelled"
	ChannelPositionUpdate = "position.update"
	ChannelPositionClosed = "position.closed"
)

const serviceName = "signal-generator"

// Config holds the loop cadences and collaborators' parameters.
type Config struct {
	AccountID           string
	CandleSymbol        string
	TickInterval        time.Duration
	ReconcileInterval   time.Duration
	StatusInterval      time.Duration
	StartupSyncAttempts int
	StartupSyncDelay    time.Duration
}

// Service orchestrates the engine's inputs and outputs.
type Service struct {
	cfg       Config
	logger    ports.Logger
	engine    *engine.Engine
	bus       ports.MessageBus
	positions ports.PositionSource
	journal   ports.JournalRepository // optional
	candles   ports.CandleStream      // optional; nil means candle.close on the bus

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex // guards engine and the fields below
	lastReconcile time.Time
	lastStatus    time.Time

	publishFailures atomic.Int64
}

// NewService validates dependencies and builds a Service.
func NewService(
	cfg Config,
	logger ports.Logger,
	eng *engine.Engine,
	bus ports.MessageBus,
	positions ports.PositionSource,
	journal ports.JournalRepository,
	candles ports.CandleStream,
) (*Service, error) {
	if logger == nil || eng == nil || bus == nil || positions == nil {
		return nil, fmt.Errorf("missing required dependencies for Service")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 5 * time.Minute
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = time.Minute
	}
	if cfg.StartupSyncAttempts <= 0 {
		cfg.StartupSyncAttempts = 3
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		engine:    eng,
		bus:       bus,
		positions: positions,
		journal:   journal,
		candles:   candles,
		now:       time.Now,
		sleep:     sleepCtx,
	}, nil
}

// SetClock replaces the wall clock, for replaying recorded candles.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start subscribes to the bus, syncs the broker position, starts the candle
// feed and runs the periodic loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting signal service...", map[string]interface{}{
		"strategy": s.engine.Config().StrategyID,
		"symbol":   s.engine.Config().Symbol,
	})

	if err := s.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	s.StartupSync(ctx)

	var feedDone <-chan struct{}
	if s.candles != nil {
		done, err := s.candles.StreamCandles(ctx, s.cfg.CandleSymbol, func(c domain.Candle) {
			s.HandleCandle(ctx, c)
		})
		if err != nil {
			return fmt.Errorf("failed to start candle stream: %w", err)
		}
		feedDone = done
	}

	s.publishStatus(ctx, s.now())
	s.Run(ctx, feedDone)
	s.logger.Info(ctx, "Signal service stopped.")
	return nil
}

// Run ticks every TickInterval until ctx is done or feedDone closes.
func (s *Service) Run(ctx context.Context, feedDone <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-feedDone:
			s.logger.Error(ctx, fmt.Errorf("%w: candle stream stopped", ports.ErrConnectionFailed), "Candle feed closed, stopping loop")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one periodic pass: session check, protective tick, and
// reconciliation and status publishing when due.
func (s *Service) RunOnce(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	s.engine.CheckSession(ctx, now)
	sigs := s.engine.Tick(ctx, now)
	reconcileDue := now.Sub(s.lastReconcile) >= s.cfg.ReconcileInterval
	if reconcileDue {
		s.lastReconcile = now
	}
	statusDue := now.Sub(s.lastStatus) >= s.cfg.StatusInterval
	s.mu.Unlock()

	s.emit(ctx, sigs)
	if reconcileDue {
		s.Reconcile(ctx)
	}
	if statusDue {
		s.publishStatus(ctx, now)
	}
}

// Subscribe registers the inbound bus handlers.
func (s *Service) Subscribe(ctx context.Context) error {
	handlers := map[string]ports.Handler{
		ChannelOrderPlaced:    s.onOrderEvent,
		ChannelOrderFilled:    s.onOrderEvent,
		ChannelOrderCancelled: s.onOrderEvent,
		ChannelPositionUpdate: s.onPositionEvent,
		ChannelPositionClosed: s.onPositionEvent,
	}
	if s.candles == nil {
		handlers[ChannelCandleClose] = s.onCandle
	}
	for _, ch := range []string{
		ChannelCandleClose, ChannelOrderPlaced, ChannelOrderFilled, ChannelOrderCancelled,
		ChannelPositionUpdate, ChannelPositionClosed,
	} {
		h, ok := handlers[ch]
		if !ok {
			continue
		}
		if err := s.bus.Subscribe(ctx, ch, h); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) decodeFailed(ctx context.Context, channel string, err error) {
	s.logger.Warn(ctx, "Dropping undecodable bus message", map[string]interface{}{
		"channel": channel,
		"error":   fmt.Errorf("%w: %w", ports.ErrDecodeFailed, err).Error(),
	})
}

func (s *Service) onCandle(ctx context.Context, channel string, payload []byte) {
	var c domain.Candle
	if err := json.Unmarshal(payload, &c); err != nil {
		s.decodeFailed(ctx, channel, err)
		return
	}
	s.HandleCandle(ctx, c)
}

func (s *Service) onOrderEvent(ctx context.Context, channel string, payload []byte) {
	var ev domain.OrderEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.decodeFailed(ctx, channel, err)
		return
	}
	s.HandleOrderEvent(ctx, channel, ev)
}

func (s *Service) onPositionEvent(ctx context.Context, channel string, payload []byte) {
	var ev domain.PositionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.decodeFailed(ctx, channel, err)
		return
	}
	if channel == ChannelPositionClosed {
		ev.Closed = true
	}
	s.HandlePositionEvent(ctx, ev)
}

// HandleCandle feeds one closed 1-minute candle to the engine.
func (s *Service) HandleCandle(ctx context.Context, c domain.Candle) {
	s.mu.Lock()
	sigs := s.engine.OnCandle(ctx, c)
	s.mu.Unlock()
	s.emit(ctx, sigs)
}

// HandleOrderEvent applies an order lifecycle event; channel selects the kind.
func (s *Service) HandleOrderEvent(ctx context.Context, channel string, ev domain.OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch channel {
	case ChannelOrderPlaced:
		s.engine.ApplyOrderPlaced(ctx, ev, s.now())
	case ChannelOrderFilled:
		s.engine.ApplyOrderFilled(ctx, ev)
	case ChannelOrderCancelled:
		s.engine.ApplyOrderCancelled(ctx, ev)
	}
}

// HandlePositionEvent applies a position update or close.
func (s *Service) HandlePositionEvent(ctx context.Context, ev domain.PositionEvent) {
	s.mu.Lock()
	tr := s.engine.ApplyPositionEvent(ctx, ev, s.now())
	metrics.SetInPosition(s.engine.InPosition())
	s.mu.Unlock()
	s.journalTransition(ctx, tr)
}

// StartupSync adopts the broker's position before the first evaluation,
// retrying a few times. On failure the service continues flat, degraded.
func (s *Service) StartupSync(ctx context.Context) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.StartupSyncAttempts; attempt++ {
		external, err := s.positions.GetOpenPositions(ctx, s.cfg.AccountID)
		if err == nil {
			s.mu.Lock()
			outcome, tr := s.engine.SyncStartup(ctx, external, s.now())
			metrics.SetInPosition(s.engine.InPosition())
			s.lastReconcile = s.now()
			s.mu.Unlock()
			s.logger.Info(ctx, "Startup position sync complete", map[string]interface{}{"outcome": outcome, "attempt": attempt})
			s.journalTransition(ctx, tr)
			return
		}
		lastErr = err
		s.logger.Warn(ctx, "Startup position sync attempt failed", map[string]interface{}{
			"attempt": attempt, "maxAttempts": s.cfg.StartupSyncAttempts, "error": err.Error(),
		})
		if attempt < s.cfg.StartupSyncAttempts {
			if err := s.sleep(ctx, s.cfg.StartupSyncDelay); err != nil {
				lastErr = err
				break
			}
		}
	}
	s.mu.Lock()
	s.engine.StartupSyncFailed(ctx, fmt.Errorf("%w: %w", ports.ErrBrokerUnavailable, lastErr))
	s.mu.Unlock()
}

// Reconcile fetches broker positions and converges the engine onto them. The
// fetch runs without holding the lock; if a position event lands meanwhile the
// snapshot is discarded and the next cycle retries.
func (s *Service) Reconcile(ctx context.Context) engine.ReconcileOutcome {
	s.mu.Lock()
	gen := s.engine.PositionGeneration()
	s.mu.Unlock()

	external, err := s.positions.GetOpenPositions(ctx, s.cfg.AccountID)

	s.mu.Lock()
	now := s.now()
	if gen != s.engine.PositionGeneration() {
		s.mu.Unlock()
		s.logger.Info(ctx, "Position changed during reconciliation fetch, skipping")
		return engine.ReconcileSkipped
	}
	if err != nil {
		s.engine.ReconcileError(ctx, err, now)
		s.mu.Unlock()
		return engine.ReconcileFailed
	}
	outcome, tr := s.engine.Reconcile(ctx, external, now)
	metrics.SetInPosition(s.engine.InPosition())
	s.mu.Unlock()

	s.journalTransition(ctx, tr)
	return outcome
}

// SetEnabled switches strategy evaluation on or off.
func (s *Service) SetEnabled(ctx context.Context, enabled bool) {
	s.mu.Lock()
	s.engine.SetEnabled(ctx, enabled)
	s.mu.Unlock()
	s.publishStatus(ctx, s.now())
}

// Status is the engine snapshot plus service-level counters.
type Status struct {
	engine.Status
	Service         string `json:"service"`
	PublishFailures int64  `json:"publishFailures"`
}

// Status returns a snapshot.
func (s *Service) Status() Status {
	s.mu.Lock()
	st := s.engine.Status(s.now())
	s.mu.Unlock()
	return Status{Status: st, Service: serviceName, PublishFailures: s.publishFailures.Load()}
}

// RecentSignals reads the journal; it is empty without one.
func (s *Service) RecentSignals(ctx context.Context, limit int) ([]*domain.Signal, error) {
	if s.journal == nil {
		return []*domain.Signal{}, nil
	}
	return s.journal.RecentSignals(ctx, limit)
}

// emit publishes signals in order. Failures are logged and counted; engine
// state is never rolled back.
func (s *Service) emit(ctx context.Context, sigs []domain.Signal) {
	for i := range sigs {
		sig := &sigs[i]
		if err := s.publish(ctx, ChannelTradeSignal, sig); err != nil {
			s.logger.Error(ctx, err, "Failed to publish trade signal", map[string]interface{}{
				"signalID": sig.ID, "action": sig.Action,
			})
		} else {
			s.logger.Info(ctx, "Trade signal published", map[string]interface{}{
				"signalID": sig.ID, "action": sig.Action, "side": sig.Side, "price": sig.Price,
			})
			s.publish(ctx, ChannelServiceHealth, notice{
				Type:   "signal_generated", Service: serviceName, SignalID: sig.ID,
				Action: sig.Action, Symbol: sig.Symbol, Timestamp: s.now(),
			})
		}
		if s.journal != nil {
			if _, err := s.journal.SaveSignal(ctx, sig); err != nil {
				s.logger.Error(ctx, err, "Failed to journal signal", map[string]interface{}{"signalID": sig.ID})
			}
		}
	}
}

type notice struct {
	Type      string              `json:"type"`
	Service   string              `json:"service"`
	SignalID  string              `json:"signalId,omitempty"`
	Action    domain.SignalAction `json:"action,omitempty"`
	Symbol    string              `json:"symbol,omitempty"`
	Status    *Status             `json:"status,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func (s *Service) publish(ctx context.Context, channel string, payload interface{}) error {
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.publishFailures.Add(1)
		metrics.RecordPublishFailure(channel)
		if channel != ChannelTradeSignal {
			s.logger.Warn(ctx, "Publish failed", map[string]interface{}{"channel": channel, "error": err.Error()})
		}
		return err
	}
	return nil
}

func (s *Service) publishStatus(ctx context.Context, now time.Time) {
	st := s.Status()
	s.mu.Lock()
	s.lastStatus = now
	s.mu.Unlock()
	s.publish(ctx, ChannelServiceHealth, notice{Type: "status", Service: serviceName, Status: &st, Timestamp: now})
}

func (s *Service) journalTransition(ctx context.Context, tr *engine.Transition) {
	if tr == nil || s.journal == nil {
		return
	}
	change := &ports.PositionChange{
		Kind:       string(tr.Kind),
		Origin:     string(tr.Origin),
		Reason:     string(tr.Reason),
		Symbol:     tr.Position.Symbol,
		Side:       tr.Position.Side,
		EntryPrice: tr.Position.EntryPrice,
		Quantity:   tr.Position.Quantity,
		StrategyID: tr.Position.StrategyID,
		At:         tr.At,
	}
	if _, err := s.journal.SavePositionChange(ctx, change); err != nil {
		s.logger.Error(ctx, err, "Failed to journal position change", map[string]interface{}{"kind": change.Kind})
	}
}
