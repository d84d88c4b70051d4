package risk

import (
	"signalGenerator/internal/domain"
)

// TrailingState is the per-position bookkeeping of the time-based trailing controller.
type TrailingState struct {
	Side             domain.Side
	EntryPrice       float64
	BarsInTrade      int
	MFE              float64
	PeakPrice        float64
	CurrentStopPrice float64
	HasStop          bool
	RulesFired       map[int]bool
}

// StopUpdate is a stop move produced by a trailing rule.
type StopUpdate struct {
	RuleIndex    int
	Rule         domain.TrailingRule
	StopPrice    float64
	PreviousStop float64
	HadStop      bool
	BarsInTrade  int
	MFE          float64
	PeakPrice    float64
	EntryPrice   float64
	PositionSide domain.Side
}

// TrailingController ratchets the stop of an open position using bars in
// trade and maximum favourable excursion.
type TrailingController struct {
	rules []domain.TrailingRule
	state *TrailingState
}

// NewTrailingController copies and sorts rules.
func NewTrailingController(rules []domain.TrailingRule) *TrailingController {
	own := append([]domain.TrailingRule(nil), rules...)
	SortRules(own)
	return &TrailingController{rules: own}
}

// Enabled reports whether any rules are configured.
func (c *TrailingController) Enabled() bool {
	return len(c.rules) > 0
}

// Rules returns the sorted rule list.
func (c *TrailingController) Rules() []domain.TrailingRule {
	return append([]domain.TrailingRule(nil), c.rules...)
}

// OnPositionOpened creates fresh state for pos. A known protective stop seeds
// the current stop so that no rule can loosen it.
func (c *TrailingController) OnPositionOpened(pos *domain.Position) {
	if !c.Enabled() || pos == nil {
		c.state = nil
		return
	}
	c.state = &TrailingState{
		Side:             pos.Side,
		EntryPrice:       pos.EntryPrice,
		PeakPrice:        pos.EntryPrice,
		CurrentStopPrice: pos.StopPrice,
		HasStop:          pos.StopPrice > 0,
		RulesFired:       make(map[int]bool),
	}
}

// OnCandle advances the state by one bar and returns the stop moves to apply.
func (c *TrailingController) OnCandle(candle domain.Candle) []StopUpdate {
	st := c.state
	if st == nil {
		return nil
	}
	st.BarsInTrade++

	if st.Side == domain.SideShort {
		if candle.Low < st.PeakPrice {
			st.PeakPrice = candle.Low
		}
		if mfe := st.EntryPrice - st.PeakPrice; mfe > st.MFE {
			st.MFE = mfe
		}
	} else {
		if candle.High > st.PeakPrice {
			st.PeakPrice = candle.High
		}
		if mfe := st.PeakPrice - st.EntryPrice; mfe > st.MFE {
			st.MFE = mfe
		}
	}

	var updates []StopUpdate
	for i, rule := range c.rules {
		if st.RulesFired[i] {
			continue
		}
		if st.BarsInTrade < rule.AfterBars || st.MFE < rule.IfMFE {
			continue
		}
		st.RulesFired[i] = true

		candidate := st.EntryPrice
		if rule.Action == domain.TrailActionTrail {
			if st.Side == domain.SideShort {
				candidate = st.PeakPrice + rule.TrailDistance
			} else {
				candidate = st.PeakPrice - rule.TrailDistance
			}
		}
		if !Tighter(st.Side, candidate, st.CurrentStopPrice, st.HasStop) {
			continue
		}

		updates = append(updates, StopUpdate{
			RuleIndex:    i,
			Rule:         rule,
			StopPrice:    candidate,
			PreviousStop: st.CurrentStopPrice,
			HadStop:      st.HasStop,
			BarsInTrade:  st.BarsInTrade,
			MFE:          st.MFE,
			PeakPrice:    st.PeakPrice,
			EntryPrice:   st.EntryPrice,
			PositionSide: st.Side,
		})
		st.CurrentStopPrice = candidate
		st.HasStop = true
	}
	return updates
}

// TightenTo records a stop applied outside the rules. It only ever tightens.
func (c *TrailingController) TightenTo(price float64) bool {
	st := c.state
	if st == nil || !Tighter(st.Side, price, st.CurrentStopPrice, st.HasStop) {
		return false
	}
	st.CurrentStopPrice = price
	st.HasStop = true
	return true
}

// State returns a copy of the current state, or nil when no position is tracked.
func (c *TrailingController) State() *TrailingState {
	if c.state == nil {
		return nil
	}
	cp := *c.state
	cp.RulesFired = make(map[int]bool, len(c.state.RulesFired))
	for k, v := range c.state.RulesFired {
		cp.RulesFired[k] = v
	}
	return &cp
}

// Reset drops the per-position state.
func (c *TrailingController) Reset() {
	c.state = nil
}
