package domain

import "time"

// Position is the engine's belief about the single open trade.
type Position struct {
	Symbol          string    // Broker contract symbol
	Side            Side      // long or short
	EntryPrice      float64   // Average fill price
	EntryTime       time.Time // When the fill or adoption happened
	StrategyID      string    // Strategy that owns the trade
	Quantity        float64   // Absolute size
	OrderStrategyID string    // Broker bracket/strategy id, if any
	StopOrderID     string    // Protective stop order id, if any
	StopPrice       float64   // Last known protective stop, 0 if unknown

	Origin PositionOrigin
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool {
	return p.Side == SideLong
}

// Favorable returns how far price has moved in the position's favour.
func (p *Position) Favorable(price float64) float64 {
	if p.IsLong() {
		return price - p.EntryPrice
	}
	return p.EntryPrice - price
}
