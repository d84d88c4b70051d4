// Package indicators computes technical indicators over closed candles.
package indicators

import (
	"signalGenerator/internal/domain"
)

// Indicator computes one value from a candle series, oldest first.
type Indicator interface {
	Calculate(candles []domain.Candle) (float64, error)
	RequiredDataPoints() int
	Name() string
}

// Period is embedded by indicators that look back a fixed number of candles.
type Period struct {
	N int
}

// RequiredDataPoints returns the look-back length.
func (p Period) RequiredDataPoints() int {
	return p.N
}
