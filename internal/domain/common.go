package domain

// Side is the direction of an open position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Valid reports whether s is one of the known sides.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// OrderSide returns the order side that opens a position in this direction.
func (s Side) OrderSide() OrderSide {
	if s == SideShort {
		return Sell
	}
	return Buy
}

// OrderSide represents the side of an order as it travels on the bus.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// PositionSide maps an order side onto the resulting position direction.
func (o OrderSide) PositionSide() Side {
	if o == Sell {
		return SideShort
	}
	return SideLong
}

// SignalAction is the webhook-style action tag attached to every outbound signal.
type SignalAction string

const (
	ActionPlaceLimit  SignalAction = "place_limit"
	ActionModifyStop  SignalAction = "modify_stop"
	ActionCancelLimit SignalAction = "cancel_limit"
)

// CloseReason indicates why the engine dropped its position.
type CloseReason string

const (
	CloseReasonClosedEvent    CloseReason = "POSITION_CLOSED"
	CloseReasonFlatUpdate     CloseReason = "NET_SIZE_ZERO"
	CloseReasonReconcileStale CloseReason = "RECONCILE_STALE"
)

// PositionOrigin records how a position came to be known to the engine.
type PositionOrigin string

const (
	OriginEvent     PositionOrigin = "EVENT"
	OriginReconcile PositionOrigin = "RECONCILE"
	OriginStartup   PositionOrigin = "STARTUP_SYNC"
)
