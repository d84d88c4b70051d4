package ports

import (
	"context"

	"signalGenerator/internal/domain"
)

// PositionSource is the broker of record for open positions.
type PositionSource interface {
	// GetOpenPositions lists open positions for account (empty means all).
	GetOpenPositions(ctx context.Context, account string) ([]domain.BrokerPosition, error)
}

// LevelProvider offers synchronous getters for the latest market snapshots.
// Each getter returns nil when the data is not available yet.
type LevelProvider interface {
	GexLevels() *domain.GexLevels
	LTLevels() *domain.LTLevels
	IVSkew() *domain.IVSkew
}

// CandleStream pushes closed 1-minute candles to handler until ctx is done.
type CandleStream interface {
	StreamCandles(ctx context.Context, symbol string, handler func(domain.Candle)) (doneCh <-chan struct{}, err error)
}
