package indicators

import (
	"fmt"

	"signalGenerator/internal/domain"
)

// RSI is the Relative Strength Index with Wilder's smoothing.
type RSI struct {
	Period
	Overbought float64
	Oversold   float64
}

// NewRSI returns an RSI over period changes.
func NewRSI(period int, overbought, oversold float64) *RSI {
	return &RSI{Period: Period{N: period}, Overbought: overbought, Oversold: oversold}
}

// Name returns "RSI".
func (r *RSI) Name() string {
	return "RSI"
}

// RequiredDataPoints is one more than the period since RSI works on changes.
func (r *RSI) RequiredDataPoints() int {
	return r.N + 1
}

// Calculate returns the latest RSI in [0, 100].
func (r *RSI) Calculate(candles []domain.Candle) (float64, error) {
	if r.N <= 0 {
		return 0, fmt.Errorf("RSI period must be positive")
	}
	if len(candles) <= r.N {
		return 0, fmt.Errorf("not enough data (%d) to calculate RSI for period %d", len(candles), r.N)
	}
	n := float64(r.N)

	var avgGain, avgLoss float64
	for i := 1; i <= r.N; i++ {
		if ch := candles[i].Close - candles[i-1].Close; ch > 0 {
			avgGain += ch
		} else {
			avgLoss -= ch
		}
	}
	avgGain /= n
	avgLoss /= n

	for i := r.N + 1; i < len(candles); i++ {
		ch := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if ch > 0 {
			gain = ch
		} else {
			loss = -ch
		}
		avgGain = (avgGain*(n-1) + gain) / n
		avgLoss = (avgLoss*(n-1) + loss) / n
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}
	return 100 - 100/(1+avgGain/avgLoss), nil
}

// IsOverbought reports value >= the overbought threshold.
func (r *RSI) IsOverbought(value float64) bool {
	return value >= r.Overbought
}

// IsOversold reports value <= the oversold threshold.
func (r *RSI) IsOversold(value float64) bool {
	return value <= r.Oversold
}
