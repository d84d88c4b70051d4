package ports

import (
	"context"
	"time"

	"signalGenerator/internal/domain"
)

// Strategy is a pluggable entry-signal generator.
type Strategy interface {
	// Name returns the strategy identifier used on the bus.
	Name() string

	// EvaluateSignal inspects the just-completed candle and returns an entry
	// proposal, or nil when there is nothing to do.
	EvaluateSignal(ctx context.Context, candle, prev *domain.Candle, market domain.MarketContext) *domain.Signal

	// ResetCooldown makes the next opportunity immediately eligible.
	ResetCooldown()

	// LastSignalTime is the start of the current cooldown; zero if none.
	LastSignalTime() time.Time
}

// IVConsumer is implemented by strategies that need implied-volatility data.
type IVConsumer interface {
	RequiresIV() bool
	SetIVData(iv *domain.IVSkew)
}

// BreakevenProvider is implemented by strategies that manage breakeven stops.
type BreakevenProvider interface {
	BreakevenParams() (*domain.BreakevenStop, bool)
}
