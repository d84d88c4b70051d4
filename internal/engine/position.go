package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/metrics"
)

// TransitionKind says whether a position appeared or disappeared.
type TransitionKind string

const (
	TransitionOpened TransitionKind = "OPENED"
	TransitionClosed TransitionKind = "CLOSED"
)

// Transition describes a change of the position, for journaling.
type Transition struct {
	Kind     TransitionKind
	Position domain.Position
	Origin   domain.PositionOrigin
	Reason   domain.CloseReason
	At       time.Time
}

// ReconcileOutcome is the result of comparing internal and broker state.
type ReconcileOutcome string

const (
	ReconcileConfirmedFlat ReconcileOutcome = "confirmed_flat"
	ReconcileConfirmedOpen ReconcileOutcome = "confirmed_open"
	ReconcileStale         ReconcileOutcome = "stale"
	ReconcileAdopted       ReconcileOutcome = "adopted"
	ReconcileReplaced      ReconcileOutcome = "replaced"
	ReconcileFailed        ReconcileOutcome = "failed"
	ReconcileSkipped       ReconcileOutcome = "skipped"
)

type reconcileState struct {
	lastAt              time.Time
	lastOutcome         ReconcileOutcome
	lastError           string
	consecutiveFailures int
	staleCount          int
	confirmedKey        string
	startupSynced       bool
	startupDegraded     bool
}

// ApplyPositionEvent folds a position update or close into the engine.
func (e *Engine) ApplyPositionEvent(ctx context.Context, ev domain.PositionEvent, now time.Time) *Transition {
	if ev.Symbol != "" && !e.matchesInstrument(ev.Symbol) {
		return nil
	}
	if ev.Strategy != "" && ev.Strategy != e.cfg.StrategyID {
		e.logger.Debug(ctx, "Ignoring position event for another strategy", map[string]interface{}{"strategy": ev.Strategy})
		return nil
	}

	if ev.NetSize == 0 || ev.Closed {
		reason := domain.CloseReasonFlatUpdate
		if ev.Closed {
			reason = domain.CloseReasonClosedEvent
		}
		return e.closePosition(ctx, reason, now)
	}

	if ev.Strategy == "" {
		e.logger.Debug(ctx, "Ignoring untagged position update", map[string]interface{}{"symbol": ev.Symbol})
		return nil
	}

	side := ev.Side
	if !side.Valid() {
		side = domain.SideLong
		if ev.NetSize < 0 {
			side = domain.SideShort
		}
	}
	symbol := ev.Symbol
	if symbol == "" {
		symbol = e.cfg.Symbol
	}
	at := ev.Timestamp
	if at.IsZero() {
		at = now
	}
	pos := &domain.Position{
		Symbol:          symbol,
		Side:            side,
		EntryPrice:      ev.EntryPrice,
		EntryTime:       at,
		StrategyID:      e.cfg.StrategyID,
		Quantity:        math.Abs(ev.NetSize),
		OrderStrategyID: ev.OrderStrategyID,
		StopOrderID:     ev.StopOrderID,
		StopPrice:       ev.StopPrice,
		Origin:          domain.OriginEvent,
	}
	return e.openPosition(ctx, pos, now)
}

// openPosition installs pos. An update for the same side refreshes the
// position in place and keeps protective state.
func (e *Engine) openPosition(ctx context.Context, pos *domain.Position, now time.Time) *Transition {
	e.positionGen++
	if cur := e.position; cur != nil && cur.Side == pos.Side {
		cur.Quantity = pos.Quantity
		if pos.EntryPrice > 0 {
			cur.EntryPrice = pos.EntryPrice
		}
		if pos.OrderStrategyID != "" {
			cur.OrderStrategyID = pos.OrderStrategyID
		}
		if pos.StopOrderID != "" {
			cur.StopOrderID = pos.StopOrderID
		}
		if pos.StopPrice > 0 && e.tighterStop(pos.StopPrice) {
			cur.StopPrice = pos.StopPrice
			e.trailing.TightenTo(pos.StopPrice)
		}
		return nil
	}

	e.position = pos
	e.trailing.OnPositionOpened(pos)
	if e.earlyExit != nil {
		level, ok := e.gammaFlip()
		e.earlyExit.OnPositionOpened(pos, level, ok, now)
	}
	e.reconcile.confirmedKey = ""
	metrics.SetInPosition(true)

	e.logger.Info(ctx, "Position opened", map[string]interface{}{
		"symbol":     pos.Symbol,
		"side":       pos.Side,
		"entryPrice": pos.EntryPrice,
		"quantity":   pos.Quantity,
		"origin":     pos.Origin,
	})
	return &Transition{Kind: TransitionOpened, Position: *pos, Origin: pos.Origin, At: now}
}

// closePosition drops the position and everything that protects it. The
// strategy cooldown is reset so the next opportunity is eligible at once.
func (e *Engine) closePosition(ctx context.Context, reason domain.CloseReason, now time.Time) *Transition {
	e.strategy.ResetCooldown()
	if e.position == nil {
		return nil
	}
	prev := *e.position
	e.position = nil
	e.positionGen++
	e.trailing.Reset()
	if e.earlyExit != nil {
		e.earlyExit.Reset()
	}
	e.reconcile.confirmedKey = ""
	metrics.SetInPosition(false)

	e.logger.Info(ctx, "Position closed", map[string]interface{}{
		"symbol": prev.Symbol,
		"side":   prev.Side,
		"reason": reason,
	})
	return &Transition{Kind: TransitionClosed, Position: prev, Origin: prev.Origin, Reason: reason, At: now}
}

// ApplyOrderPlaced starts tracking a limit order placed for this strategy.
func (e *Engine) ApplyOrderPlaced(ctx context.Context, ev domain.OrderEvent, now time.Time) bool {
	if ev.OrderID == "" || ev.Strategy != e.cfg.StrategyID {
		return false
	}
	at := ev.Timestamp
	if at.IsZero() {
		at = now
	}
	e.tracker.OnOrderPlaced(domain.PendingOrder{
		OrderID:    ev.OrderID,
		Symbol:     ev.Symbol,
		Side:       ev.Side,
		Price:      ev.Price,
		PlacedAt:   at,
		StrategyID: ev.Strategy,
	})
	e.logger.Info(ctx, "Tracking pending order", map[string]interface{}{"orderId": ev.OrderID, "price": ev.Price})
	return true
}

// ApplyOrderFilled stops tracking a filled order.
func (e *Engine) ApplyOrderFilled(ctx context.Context, ev domain.OrderEvent) bool {
	_, ok := e.tracker.OnOrderFilled(ev.OrderID)
	if ok {
		e.logger.Info(ctx, "Pending order filled", map[string]interface{}{"orderId": ev.OrderID})
	}
	return ok
}

// ApplyOrderCancelled stops tracking a cancelled order.
func (e *Engine) ApplyOrderCancelled(ctx context.Context, ev domain.OrderEvent) bool {
	_, ok := e.tracker.OnOrderCancelled(ev.OrderID)
	if ok {
		e.logger.Info(ctx, "Pending order cancelled", map[string]interface{}{"orderId": ev.OrderID})
	}
	return ok
}

// PendingOrders returns the tracked orders, oldest first.
func (e *Engine) PendingOrders() []domain.PendingOrder {
	return e.tracker.Pending()
}

// Reconcile makes internal position state equal to the broker's.
func (e *Engine) Reconcile(ctx context.Context, external []domain.BrokerPosition, now time.Time) (ReconcileOutcome, *Transition) {
	return e.reconcileWith(ctx, external, now, domain.OriginReconcile)
}

// SyncStartup adopts a broker position found at boot.
func (e *Engine) SyncStartup(ctx context.Context, external []domain.BrokerPosition, now time.Time) (ReconcileOutcome, *Transition) {
	outcome, tr := e.reconcileWith(ctx, external, now, domain.OriginStartup)
	e.reconcile.startupSynced = true
	e.reconcile.startupDegraded = false
	return outcome, tr
}

// StartupSyncFailed records that boot proceeded flat without broker data.
func (e *Engine) StartupSyncFailed(ctx context.Context, err error) {
	e.reconcile.startupSynced = false
	e.reconcile.startupDegraded = true
	e.reconcile.lastError = err.Error()
	e.logger.Warn(ctx, "Startup sync failed, continuing flat in degraded mode", map[string]interface{}{"error": err.Error()})
}

// ReconcileError records a failed broker fetch. The next interval retries.
func (e *Engine) ReconcileError(ctx context.Context, err error, now time.Time) {
	e.reconcile.lastAt = now
	e.reconcile.lastOutcome = ReconcileFailed
	e.reconcile.lastError = err.Error()
	e.reconcile.consecutiveFailures++
	metrics.RecordReconcile(string(ReconcileFailed))
	e.logger.Warn(ctx, "Position reconciliation failed, will retry next interval", map[string]interface{}{
		"error":               err.Error(),
		"consecutiveFailures": e.reconcile.consecutiveFailures,
	})
}

func (e *Engine) findExternal(external []domain.BrokerPosition) *domain.BrokerPosition {
	for i := range external {
		if external[i].NetSize != 0 && e.matchesInstrument(external[i].Symbol) {
			return &external[i]
		}
	}
	return nil
}

func (e *Engine) reconcileWith(ctx context.Context, external []domain.BrokerPosition, now time.Time, origin domain.PositionOrigin) (ReconcileOutcome, *Transition) {
	ext := e.findExternal(external)
	e.reconcile.lastAt = now
	e.reconcile.lastError = ""
	e.reconcile.consecutiveFailures = 0

	var (
		outcome ReconcileOutcome
		tr      *Transition
	)
	switch {
	case e.position != nil && ext == nil:
		e.reconcile.staleCount++
		e.logger.Warn(ctx, "Stale position: broker reports flat, clearing internal position", map[string]interface{}{
			"symbol":     e.position.Symbol,
			"entryPrice": e.position.EntryPrice,
			"staleCount": e.reconcile.staleCount,
		})
		outcome = ReconcileStale
		tr = e.closePosition(ctx, domain.CloseReasonReconcileStale, now)

	case e.position == nil && ext != nil:
		e.logger.Warn(ctx, "Missed open: adopting broker position", map[string]interface{}{
			"symbol":  ext.Symbol,
			"netSize": ext.NetSize,
			"origin":  origin,
		})
		outcome = ReconcileAdopted
		tr = e.openPosition(ctx, e.positionFromBroker(ext, origin, now), now)

	case e.position != nil && ext != nil:
		if sideOf(ext.NetSize) != e.position.Side {
			e.logger.Warn(ctx, "Broker position side differs, adopting broker position", map[string]interface{}{
				"internal": e.position.Side,
				"external": sideOf(ext.NetSize),
			})
			e.closePosition(ctx, domain.CloseReasonReconcileStale, now)
			outcome = ReconcileReplaced
			tr = e.openPosition(ctx, e.positionFromBroker(ext, origin, now), now)
			break
		}
		outcome = ReconcileConfirmedOpen
		if key := fmt.Sprintf("%s:%s:%g", ext.Symbol, e.position.Side, math.Abs(ext.NetSize)); key != e.reconcile.confirmedKey {
			e.reconcile.confirmedKey = key
			e.logger.Info(ctx, "Position confirmed with broker", map[string]interface{}{"symbol": ext.Symbol, "netSize": ext.NetSize})
		}

	default:
		outcome = ReconcileConfirmedFlat
		if e.reconcile.confirmedKey != "flat" {
			e.reconcile.confirmedKey = "flat"
			e.logger.Info(ctx, "Flat state confirmed with broker")
		}
	}

	e.reconcile.lastOutcome = outcome
	metrics.RecordReconcile(string(outcome))
	return outcome, tr
}

func (e *Engine) positionFromBroker(ext *domain.BrokerPosition, origin domain.PositionOrigin, now time.Time) *domain.Position {
	return &domain.Position{
		Symbol:          ext.Symbol,
		Side:            sideOf(ext.NetSize),
		EntryPrice:      ext.EntryPrice,
		EntryTime:       now,
		StrategyID:      e.cfg.StrategyID,
		Quantity:        math.Abs(ext.NetSize),
		OrderStrategyID: ext.OrderStrategyID,
		Origin:          origin,
	}
}

func sideOf(netSize float64) domain.Side {
	if netSize < 0 {
		return domain.SideShort
	}
	return domain.SideLong
}
