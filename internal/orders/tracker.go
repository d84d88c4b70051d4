// Package orders tracks working limit orders until they fill, cancel or time out.
package orders

import (
	"sort"

	"signalGenerator/internal/domain"
)

// Tracker holds pending orders keyed by order id.
type Tracker struct {
	timeout int // candles; 0 disables timeouts
	orders  map[string]*domain.PendingOrder
}

// NewTracker creates a tracker that times orders out after timeout native candles.
func NewTracker(timeout int) *Tracker {
	if timeout < 0 {
		timeout = 0
	}
	return &Tracker{
		timeout: timeout,
		orders:  make(map[string]*domain.PendingOrder),
	}
}

// OnOrderPlaced starts tracking an order. Re-placing a known id restarts its count.
func (t *Tracker) OnOrderPlaced(order domain.PendingOrder) {
	order.CandleCount = 0
	t.orders[order.OrderID] = &order
}

// OnOrderFilled stops tracking an order and returns it. Unknown ids are a no-op.
func (t *Tracker) OnOrderFilled(orderID string) (domain.PendingOrder, bool) {
	return t.remove(orderID)
}

// OnOrderCancelled stops tracking an order. Unknown ids are a no-op.
func (t *Tracker) OnOrderCancelled(orderID string) (domain.PendingOrder, bool) {
	return t.remove(orderID)
}

func (t *Tracker) remove(orderID string) (domain.PendingOrder, bool) {
	o, ok := t.orders[orderID]
	if !ok {
		return domain.PendingOrder{}, false
	}
	delete(t.orders, orderID)
	return *o, true
}

// OnCandleClose ages every order by one candle and returns, oldest first, the
// orders that reached the timeout. Those orders are no longer tracked.
func (t *Tracker) OnCandleClose() []domain.PendingOrder {
	var expired []domain.PendingOrder
	for id, o := range t.orders {
		o.CandleCount++
		if t.timeout > 0 && o.CandleCount >= t.timeout {
			expired = append(expired, *o)
			delete(t.orders, id)
		}
	}
	sortOrders(expired)
	return expired
}

// Pending returns a snapshot of the tracked orders, oldest first.
func (t *Tracker) Pending() []domain.PendingOrder {
	out := make([]domain.PendingOrder, 0, len(t.orders))
	for _, o := range t.orders {
		out = append(out, *o)
	}
	sortOrders(out)
	return out
}

// Len returns the number of tracked orders.
func (t *Tracker) Len() int {
	return len(t.orders)
}

// Reset drops every tracked order.
func (t *Tracker) Reset() {
	t.orders = make(map[string]*domain.PendingOrder)
}

func sortOrders(o []domain.PendingOrder) {
	sort.Slice(o, func(i, j int) bool {
		if o[i].PlacedAt.Equal(o[j].PlacedAt) {
			return o[i].OrderID < o[j].OrderID
		}
		return o[i].PlacedAt.Before(o[j].PlacedAt)
	})
}
