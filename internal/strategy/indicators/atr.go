package indicators

import (
	"fmt"
	"math"

	"signalGenerator/internal/domain"
)

// ATR is the Average True Range with Wilder's smoothing.
type ATR struct {
	Period
}

// NewATR returns an ATR over period candles.
func NewATR(period int) *ATR {
	return &ATR{Period: Period{N: period}}
}

// Name returns "ATR".
func (a *ATR) Name() string {
	return "ATR"
}

// RequiredDataPoints needs one extra candle for the first previous close.
func (a *ATR) RequiredDataPoints() int {
	return a.N + 1
}

// Calculate returns the latest ATR.
func (a *ATR) Calculate(candles []domain.Candle) (float64, error) {
	if a.N <= 0 {
		return 0, fmt.Errorf("ATR period must be positive")
	}
	if len(candles) < a.N+1 {
		return 0, fmt.Errorf("not enough data points for ATR calculation: need %d, got %d", a.N+1, len(candles))
	}

	tr := func(i int) float64 {
		if i == 0 {
			return candles[0].Range()
		}
		prev := candles[i-1].Close
		return math.Max(candles[i].Range(), math.Max(math.Abs(candles[i].High-prev), math.Abs(candles[i].Low-prev)))
	}

	atr := 0.0
	for i := 0; i < a.N; i++ {
		atr += tr(i)
	}
	atr /= float64(a.N)
	for i := a.N; i < len(candles); i++ {
		atr = (atr*float64(a.N-1) + tr(i)) / float64(a.N)
	}
	return atr, nil
}
