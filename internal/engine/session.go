package engine

import (
	"context"
	"fmt"
	"time"

	"signalGenerator/internal/metrics"
)

// SessionWindow is a trading window in whole hours of a time zone.
// Start > End wraps past midnight; Start == End means all day.
type SessionWindow struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Validate checks hour ranges.
func (w SessionWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return fmt.Errorf("session hours must be within 0-23, got %d-%d", w.StartHour, w.EndHour)
	}
	return nil
}

// Contains reports whether t falls inside the window.
func (w SessionWindow) Contains(t time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	switch {
	case w.StartHour == w.EndHour:
		return true
	case w.StartHour < w.EndHour:
		return h >= w.StartHour && h < w.EndHour
	default:
		return h >= w.StartHour || h < w.EndHour
	}
}

type sessionState struct {
	known        bool
	inSession    bool
	lastObserved time.Time
	lastReset    time.Time
}

// CheckSession records whether now is in session and performs the session
// start reset on a transition into the window. It returns true on reset.
// Observations older than the latest one are ignored, so a late candle cannot
// flip the state back after the timer has moved past a boundary.
func (e *Engine) CheckSession(ctx context.Context, now time.Time) bool {
	if e.session.known && now.Before(e.session.lastObserved) {
		return false
	}
	in := e.cfg.Session.Contains(now)
	prev := e.session
	e.session.inSession = in
	e.session.known = true
	e.session.lastObserved = now
	if !prev.known {
		e.logger.Info(ctx, "Initial session state", map[string]interface{}{"inSession": in})
		return false
	}
	if in && !prev.inSession {
		e.logger.Info(ctx, "Trading session started", map[string]interface{}{"at": now})
		e.ResetSession(ctx, now)
		return true
	}
	if !in && prev.inSession {
		e.logger.Info(ctx, "Trading session ended", map[string]interface{}{"at": now})
	}
	return false
}

// InSession reports the last observed session state.
func (e *Engine) InSession() bool {
	return e.session.inSession
}

// ResetSession clears per-session state. The position is never touched.
func (e *Engine) ResetSession(ctx context.Context, now time.Time) {
	dropped := e.tracker.Len()
	e.tracker.Reset()
	e.trailing.Reset()
	if e.earlyExit != nil {
		e.earlyExit.Reset()
	}
	e.agg.Reset()
	e.history = nil
	e.strategy.ResetCooldown()
	e.session.lastReset = now
	e.stats.SessionResets++
	metrics.RecordSessionReset()

	e.logger.Info(ctx, "Session state reset", map[string]interface{}{
		"droppedPendingOrders": dropped,
		"inPosition":           e.position != nil,
	})
}
