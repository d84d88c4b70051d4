package ports

import (
	"context"
	"time"

	"signalGenerator/internal/domain"
)

// PositionChange is one entry in the position journal.
type PositionChange struct {
	ID         int64
	Kind       string // OPENED or CLOSED
	Origin     string
	Reason     string
	Symbol     string
	Side       domain.Side
	EntryPrice float64
	Quantity   float64
	StrategyID string
	At         time.Time
}

// JournalRepository persists emitted signals and position changes for audit.
type JournalRepository interface {
	// SaveSignal stores an emitted signal and returns its row id.
	SaveSignal(ctx context.Context, sig *domain.Signal) (int64, error)
	// RecentSignals returns up to limit signals, newest first.
	RecentSignals(ctx context.Context, limit int) ([]*domain.Signal, error)
	// SavePositionChange stores an open or close transition.
	SavePositionChange(ctx context.Context, change *PositionChange) (int64, error)
	// RecentPositionChanges returns up to limit changes, newest first.
	RecentPositionChanges(ctx context.Context, limit int) ([]*PositionChange, error)
}
