package domain

// TrailAction selects how a time-based trailing rule computes its stop.
type TrailAction string

const (
	TrailActionBreakeven TrailAction = "breakeven"
	TrailActionTrail     TrailAction = "trail"
)

// TrailingRule moves the stop once a trade is old enough and far enough in profit.
type TrailingRule struct {
	AfterBars     int
	IfMFE         float64
	Action        TrailAction
	TrailDistance float64 // only used by TrailActionTrail
}
