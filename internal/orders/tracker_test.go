package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalGenerator/internal/domain"
)

func placed(id string, at time.Time) domain.PendingOrder {
	return domain.PendingOrder{OrderID: id, Symbol: "NQH6", Side: domain.Buy, Price: 18000, PlacedAt: at, StrategyID: "GEX_LT_RECOIL"}
}

func TestTracker_TimeoutAfterConfiguredCandles(t *testing.T) {
	tr := NewTracker(3)
	tr.OnOrderPlaced(placed("A", time.Unix(0, 0)))

	assert.Empty(t, tr.OnCandleClose())
	assert.Empty(t, tr.OnCandleClose())
	expired := tr.OnCandleClose()
	require.Len(t, expired, 1)
	assert.Equal(t, "A", expired[0].OrderID)
	assert.Equal(t, 3, expired[0].CandleCount)
	assert.Equal(t, 0, tr.Len())

	// A late cancel for the same id is harmless.
	_, ok := tr.OnOrderCancelled("A")
	assert.False(t, ok)
}

func TestTracker_IndependentOrders(t *testing.T) {
	tr := NewTracker(2)
	base := time.Unix(1000, 0)
	tr.OnOrderPlaced(placed("A", base))
	tr.OnCandleClose()
	tr.OnOrderPlaced(placed("B", base.Add(time.Minute)))

	expired := tr.OnCandleClose()
	require.Len(t, expired, 1)
	assert.Equal(t, "A", expired[0].OrderID)

	pending := tr.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "B", pending[0].OrderID)
	assert.Equal(t, 1, pending[0].CandleCount)
}

func TestTracker_FillAndCancelAreIdempotent(t *testing.T) {
	tr := NewTracker(3)
	tr.OnOrderPlaced(placed("A", time.Unix(0, 0)))

	o, ok := tr.OnOrderFilled("A")
	assert.True(t, ok)
	assert.Equal(t, "A", o.OrderID)

	_, ok = tr.OnOrderFilled("A")
	assert.False(t, ok)
	_, ok = tr.OnOrderCancelled("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_ZeroTimeoutNeverExpires(t *testing.T) {
	tr := NewTracker(0)
	tr.OnOrderPlaced(placed("A", time.Unix(0, 0)))
	for i := 0; i < 100; i++ {
		assert.Empty(t, tr.OnCandleClose())
	}
	assert.Equal(t, 100, tr.Pending()[0].CandleCount)
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(3)
	tr.OnOrderPlaced(placed("A", time.Unix(0, 0)))
	tr.OnOrderPlaced(placed("B", time.Unix(1, 0)))
	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}
