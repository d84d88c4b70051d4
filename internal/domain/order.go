package domain

import "time"

// PendingOrder is a working limit order that has not been filled or cancelled yet.
type PendingOrder struct {
	OrderID     string
	Symbol      string
	Side        OrderSide
	Price       float64
	CandleCount int
	PlacedAt    time.Time
	StrategyID  string
}
