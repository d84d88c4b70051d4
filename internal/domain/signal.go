package domain

import "time"

// WebhookTypeTradeSignal is the envelope type downstream order routers expect.
const WebhookTypeTradeSignal = "trade_signal"

// TrailingStop carries broker-side trailing parameters proposed by a strategy.
type TrailingStop struct {
	Trigger float64 `json:"trigger"`
	Offset  float64 `json:"offset"`
}

// BreakevenStop carries breakeven parameters for strategies that manage them.
type BreakevenStop struct {
	Trigger float64 `json:"trigger"`
	Offset  float64 `json:"offset"`
}

// Signal is an outbound order or order-modification request.
type Signal struct {
	ID           string                 `json:"id"`
	WebhookType  string                 `json:"webhook_type"`
	Action       SignalAction           `json:"action"`
	Side         OrderSide              `json:"side"`
	Symbol       string                 `json:"symbol"`
	Quantity     float64                `json:"quantity"`
	Price        float64                `json:"price"`
	StopLoss     float64                `json:"stopLoss,omitempty"`
	TakeProfit   float64                `json:"takeProfit,omitempty"`
	Strategy     string                 `json:"strategy"`
	OrderID      string                 `json:"orderId,omitempty"`
	StopOrderID  string                 `json:"stopOrderId,omitempty"`
	TrailingStop *TrailingStop          `json:"trailingStop,omitempty"`
	Breakeven    *BreakevenStop         `json:"breakevenStop,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// SetMeta stores a metadata value, allocating the bag on first use.
func (s *Signal) SetMeta(key string, value interface{}) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]interface{})
	}
	s.Metadata[key] = value
}
