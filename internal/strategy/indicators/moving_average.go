package indicators

import (
	"fmt"

	"signalGenerator/internal/domain"
)

// MovingAverageType selects SMA or EMA.
type MovingAverageType string

const (
	SimpleMovingAverage      MovingAverageType = "SMA"
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverage averages closing prices.
type MovingAverage struct {
	Period
	Type MovingAverageType
}

// NewMovingAverage returns an SMA or EMA over period candles.
func NewMovingAverage(typ MovingAverageType, period int) *MovingAverage {
	return &MovingAverage{Period: Period{N: period}, Type: typ}
}

// Name returns SMA or EMA.
func (m *MovingAverage) Name() string {
	return string(m.Type)
}

// Calculate returns the latest average.
func (m *MovingAverage) Calculate(candles []domain.Candle) (float64, error) {
	if m.N <= 0 {
		return 0, fmt.Errorf("%s period must be positive", m.Type)
	}
	if len(candles) < m.N {
		return 0, fmt.Errorf("not enough data (%d) to calculate %s for period %d", len(candles), m.Type, m.N)
	}
	switch m.Type {
	case SimpleMovingAverage:
		return sma(candles[len(candles)-m.N:]), nil
	case ExponentialMovingAverage:
		k := 2.0 / float64(m.N+1)
		ema := sma(candles[:m.N])
		for _, c := range candles[m.N:] {
			ema = (c.Close-ema)*k + ema
		}
		return ema, nil
	default:
		return 0, fmt.Errorf("unsupported moving average type: %s", m.Type)
	}
}

func sma(candles []domain.Candle) float64 {
	total := 0.0
	for _, c := range candles {
		total += c.Close
	}
	return total / float64(len(candles))
}
