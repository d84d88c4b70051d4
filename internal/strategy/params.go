package strategy

import (
	"fmt"
	"sync"
	"time"

	"signalGenerator/internal/domain"
)

// Params holds the entry and exit parameters shared by the strategies.
type Params struct {
	TargetPoints       float64
	StopBuffer         float64
	MaxRisk            float64
	UseTrailingStop    bool
	TrailingTrigger    float64
	TrailingOffset     float64
	UseLiquidityFilter bool
	MaxLTLevelsBelow   int
	Cooldown           time.Duration
	UseBreakevenStop   bool
	BreakevenTrigger   float64
	BreakevenOffset    float64
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		TargetPoints:       25,
		StopBuffer:         10,
		MaxRisk:            30,
		UseTrailingStop:    true,
		TrailingTrigger:    15,
		TrailingOffset:     10,
		UseLiquidityFilter: true,
		MaxLTLevelsBelow:   3,
		Cooldown:           15 * time.Minute,
		BreakevenTrigger:   10,
	}
}

// Validate checks the parameters for obvious mistakes.
func (p Params) Validate() error {
	if p.TargetPoints <= 0 {
		return fmt.Errorf("target points must be positive, got %v", p.TargetPoints)
	}
	if p.MaxRisk <= 0 {
		return fmt.Errorf("max risk must be positive, got %v", p.MaxRisk)
	}
	if p.StopBuffer < 0 {
		return fmt.Errorf("stop buffer cannot be negative, got %v", p.StopBuffer)
	}
	if p.Cooldown < 0 {
		return fmt.Errorf("cooldown cannot be negative, got %v", p.Cooldown)
	}
	if p.UseTrailingStop && (p.TrailingTrigger <= 0 || p.TrailingOffset <= 0) {
		return fmt.Errorf("trailing trigger and offset must be positive when trailing is enabled")
	}
	return nil
}

// exits fills the protective fields of a long entry at price with the given stop.
func (p Params) exits(sig *domain.Signal, stop float64) {
	sig.StopLoss = stop
	sig.TakeProfit = sig.Price + p.TargetPoints
	if p.UseTrailingStop {
		sig.TrailingStop = &domain.TrailingStop{Trigger: p.TrailingTrigger, Offset: p.TrailingOffset}
	}
}

// BreakevenParams implements ports.BreakevenProvider.
func (p Params) BreakevenParams() (*domain.BreakevenStop, bool) {
	if !p.UseBreakevenStop {
		return nil, false
	}
	return &domain.BreakevenStop{Trigger: p.BreakevenTrigger, Offset: p.BreakevenOffset}, true
}

// cooldown gates signals by candle time. The engine resets it on position
// close and session reset.
type cooldown struct {
	mu     sync.Mutex
	period time.Duration
	last   time.Time
}

func (c *cooldown) active(at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.last.IsZero() && at.Sub(c.last) < c.period
}

func (c *cooldown) start(at time.Time) {
	c.mu.Lock()
	c.last = at
	c.mu.Unlock()
}

// ResetCooldown clears the cooldown.
func (c *cooldown) ResetCooldown() {
	c.mu.Lock()
	c.last = time.Time{}
	c.mu.Unlock()
}

// LastSignalTime returns the start of the current cooldown.
func (c *cooldown) LastSignalTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
