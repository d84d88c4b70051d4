package risk

import (
	"fmt"
	"math"
	"time"

	"signalGenerator/internal/domain"
)

// EarlyExitConfig tunes the gamma-flip drift check.
type EarlyExitConfig struct {
	CheckInterval      time.Duration // wall-clock aligned, default 15m
	NoiseThreshold     float64       // minimum |delta| that counts, default 0.5
	BreakevenThreshold int           // consecutive adverse checks, default 2
}

// DefaultEarlyExitConfig returns the standard thresholds.
func DefaultEarlyExitConfig() EarlyExitConfig {
	return EarlyExitConfig{
		CheckInterval:      15 * time.Minute,
		NoiseThreshold:     0.5,
		BreakevenThreshold: 2,
	}
}

// GFTrackingState follows the reference level for the open position.
type GFTrackingState struct {
	Side               domain.Side
	EntryPrice         float64
	EntryLevel         float64
	LastLevel          float64
	HasLevel           bool
	LastCheckedPeriod  int64
	ConsecutiveAdverse int
	BreakevenTriggered bool
}

// BreakevenRequest is emitted once when drift has been adverse long enough.
type BreakevenRequest struct {
	StopPrice          float64
	EntryLevel         float64
	CurrentLevel       float64
	ConsecutiveAdverse int
	Period             int64
}

// EarlyExitController moves the stop to breakeven after sustained adverse
// drift of a reference level.
type EarlyExitController struct {
	cfg   EarlyExitConfig
	state *GFTrackingState
}

// NewEarlyExitController validates cfg.
func NewEarlyExitController(cfg EarlyExitConfig) (*EarlyExitController, error) {
	if cfg.CheckInterval < time.Millisecond {
		return nil, fmt.Errorf("early exit check interval must be positive, got %s", cfg.CheckInterval)
	}
	if cfg.BreakevenThreshold <= 0 {
		return nil, fmt.Errorf("early exit breakeven threshold must be positive, got %d", cfg.BreakevenThreshold)
	}
	if cfg.NoiseThreshold < 0 {
		return nil, fmt.Errorf("early exit noise threshold cannot be negative, got %f", cfg.NoiseThreshold)
	}
	return &EarlyExitController{cfg: cfg}, nil
}

func (c *EarlyExitController) period(now time.Time) int64 {
	return now.UnixMilli() / c.cfg.CheckInterval.Milliseconds()
}

// OnPositionOpened starts tracking pos. When level is unavailable the entry
// level is captured on the first tick that has one.
func (c *EarlyExitController) OnPositionOpened(pos *domain.Position, level float64, hasLevel bool, now time.Time) {
	if pos == nil {
		c.state = nil
		return
	}
	c.state = &GFTrackingState{
		Side:              pos.Side,
		EntryPrice:        pos.EntryPrice,
		EntryLevel:        level,
		LastLevel:         level,
		HasLevel:          hasLevel,
		LastCheckedPeriod: c.period(now),
	}
}

// Tick runs at most one check per crossed period boundary. level is only
// called when a boundary has been crossed; if it reports no data the check is
// skipped and retried on the next tick.
func (c *EarlyExitController) Tick(now time.Time, level func() (float64, bool)) *BreakevenRequest {
	st := c.state
	if st == nil {
		return nil
	}
	p := c.period(now)
	if p <= st.LastCheckedPeriod {
		return nil
	}
	current, ok := level()
	if !ok {
		return nil
	}
	if !st.HasLevel {
		st.EntryLevel = current
		st.LastLevel = current
		st.HasLevel = true
		st.LastCheckedPeriod = p
		return nil
	}

	delta := current - st.LastLevel
	if math.Abs(delta) > c.cfg.NoiseThreshold {
		adverse := (st.Side == domain.SideLong && delta < 0) || (st.Side == domain.SideShort && delta > 0)
		if adverse {
			st.ConsecutiveAdverse++
		} else {
			st.ConsecutiveAdverse = 0
		}
	}
	st.LastLevel = current
	st.LastCheckedPeriod = p

	if st.ConsecutiveAdverse >= c.cfg.BreakevenThreshold && !st.BreakevenTriggered {
		st.BreakevenTriggered = true
		return &BreakevenRequest{
			StopPrice:          st.EntryPrice,
			EntryLevel:         st.EntryLevel,
			CurrentLevel:       current,
			ConsecutiveAdverse: st.ConsecutiveAdverse,
			Period:             p,
		}
	}
	return nil
}

// State returns a copy of the tracking state, or nil.
func (c *EarlyExitController) State() *GFTrackingState {
	if c.state == nil {
		return nil
	}
	cp := *c.state
	return &cp
}

// Reset drops the per-position state.
func (c *EarlyExitController) Reset() {
	c.state = nil
}
