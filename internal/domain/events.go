package domain

import "time"

// PositionEvent is a position update or close pushed by the order router.
// NetSize is signed: positive long, negative short.
type PositionEvent struct {
	Symbol          string    `json:"symbol"`
	Side            Side      `json:"side,omitempty"`
	NetSize         float64   `json:"netPos"`
	EntryPrice      float64   `json:"entryPrice"`
	Strategy        string    `json:"strategy"`
	OrderStrategyID string    `json:"orderStrategyId,omitempty"`
	StopOrderID     string    `json:"stopOrderId,omitempty"`
	StopPrice       float64   `json:"stopPrice,omitempty"`
	Closed          bool      `json:"closed,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// OrderEvent reports a limit order being placed, filled or cancelled.
type OrderEvent struct {
	OrderID   string    `json:"orderId"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Price     float64   `json:"price"`
	Strategy  string    `json:"strategy"`
	Timestamp time.Time `json:"timestamp"`
}

// BrokerPosition is one open position as reported by the broker of record.
type BrokerPosition struct {
	Account         string
	Symbol          string
	NetSize         float64
	EntryPrice      float64
	OrderStrategyID string
}
