package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalGenerator/internal/adapters/membus"
	"signalGenerator/internal/domain"
	"signalGenerator/internal/engine"
	"signalGenerator/internal/ports"
	"signalGenerator/internal/risk"
)

var t0 = time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	bus       *membus.Bus
	strategy  *mockStrategy
	positions *mockPositions
	journal   *mockJournal
	logger    *mockLogger
	clock     *time.Time
	sleeps    []time.Duration
}

func newFixture(t *testing.T, stream ports.CandleStream) *fixture {
	t.Helper()
	f := &fixture{
		bus:       membus.New(),
		strategy:  &mockStrategy{},
		positions: &mockPositions{},
		journal:   &mockJournal{},
		logger:    &mockLogger{},
	}
	eng, err := engine.New(engine.Config{
		Symbol:              "NQH6",
		CandleSymbol:        "NQ",
		StrategyID:          "GEX_LT_RECOIL",
		Quantity:            1,
		EvalTimeframe:       15 * time.Minute,
		Session:             engine.SessionWindow{Location: time.UTC},
		OrderTimeoutCandles: 3,
		EarlyExit:           risk.DefaultEarlyExitConfig(),
		Enabled:             true,
	}, f.logger, f.strategy, &mockLevels{gex: &domain.GexLevels{PutWall: 17990, GammaFlip: 18100}})
	require.NoError(t, err)

	f.svc, err = NewService(Config{
		CandleSymbol:        "NQ",
		TickInterval:        time.Second,
		ReconcileInterval:   5 * time.Minute,
		StatusInterval:      time.Minute,
		StartupSyncAttempts: 3,
		StartupSyncDelay:    5 * time.Second,
	}, f.logger, eng, f.bus, f.positions, f.journal, stream)
	require.NoError(t, err)

	now := t0
	f.clock = &now
	f.svc.SetClock(func() time.Time { return *f.clock })
	f.svc.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func candleJSON(t *testing.T, m int, price float64) []byte {
	t.Helper()
	b, err := json.Marshal(domain.Candle{
		Timestamp: t0.Add(time.Duration(m) * time.Minute),
		Open:      price,
		High:      price + 1,
		Low:       price - 1,
		Close:     price,
		Volume:    1,
		Symbol:    "NQ",
	})
	require.NoError(t, err)
	return b
}

func decodeSignals(t *testing.T, msgs []membus.Message) []domain.Signal {
	t.Helper()
	out := make([]domain.Signal, len(msgs))
	for i, m := range msgs {
		require.NoError(t, json.Unmarshal(m.Payload, &out[i]))
	}
	return out
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(Config{}, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestService_CandleOverBusEmitsOneEntry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.strategy.signal = &domain.Signal{Side: domain.Buy, Price: 18000, StopLoss: 17985, TakeProfit: 18025}
	require.NoError(t, f.svc.Subscribe(ctx))
	assert.True(t, f.bus.Subscribed(ChannelCandleClose))

	for m := 0; m < 16; m++ {
		f.bus.Deliver(ctx, ChannelCandleClose, candleJSON(t, m, 18000))
	}

	assert.Equal(t, 1, f.strategy.calls)
	sigs := decodeSignals(t, f.bus.Published(ChannelTradeSignal))
	require.Len(t, sigs, 1)
	assert.Equal(t, domain.ActionPlaceLimit, sigs[0].Action)
	assert.Equal(t, "NQH6", sigs[0].Symbol)
	assert.Equal(t, "GEX_LT_RECOIL", sigs[0].Strategy)
	assert.NotEmpty(t, sigs[0].ID)

	health := f.bus.Published(ChannelServiceHealth)
	require.Len(t, health, 1)
	var n map[string]interface{}
	require.NoError(t, json.Unmarshal(health[0].Payload, &n))
	assert.Equal(t, "signal_generated", n["type"])
	assert.Equal(t, sigs[0].ID, n["signalId"])

	require.Len(t, f.journal.signals, 1)
	assert.Equal(t, sigs[0].ID, f.journal.signals[0].ID)

	f.bus.Deliver(ctx, ChannelCandleClose, []byte(`{"symbol":"NQ"}`))
	assert.Contains(t, f.logger.warnMsgs, "Dropping undecodable bus message")
}

func TestService_PublishFailureIsCountedNotRolledBack(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.strategy.signal = &domain.Signal{Side: domain.Buy, Price: 18000, StopLoss: 17985, TakeProfit: 18025}
	f.bus.FailPublish(ChannelTradeSignal, errBroker)

	for m := 0; m < 15; m++ {
		f.svc.HandleCandle(ctx, domain.Candle{Timestamp: t0.Add(time.Duration(m) * time.Minute), Open: 18000, High: 18001, Low: 17999, Close: 18000, Symbol: "NQ"})
	}

	assert.Empty(t, f.bus.Published(""))
	assert.Contains(t, f.logger.errorMsgs, "Failed to publish trade signal")
	st := f.svc.Status()
	assert.Equal(t, int64(1), st.PublishFailures)
	assert.Equal(t, int64(1), st.Stats.SignalsEmitted[string(domain.ActionPlaceLimit)])
	assert.Len(t, f.journal.signals, 1)
}

func TestService_PositionEventsJournal(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.svc.Subscribe(ctx))

	f.bus.Deliver(ctx, ChannelPositionUpdate, []byte(`{"symbol":"NQH6","netPos":1,"entryPrice":18000,"strategy":"GEX_LT_RECOIL"}`))
	assert.True(t, f.svc.Status().InPosition)

	f.advance(10 * time.Minute)
	f.bus.Deliver(ctx, ChannelPositionClosed, []byte(`{"symbol":"NQH6","netPos":1,"strategy":"GEX_LT_RECOIL"}`))
	assert.False(t, f.svc.Status().InPosition)

	require.Len(t, f.journal.changes, 2)
	assert.Equal(t, "OPENED", f.journal.changes[0].Kind)
	assert.Equal(t, domain.SideLong, f.journal.changes[0].Side)
	assert.Equal(t, "CLOSED", f.journal.changes[1].Kind)
	assert.Equal(t, string(domain.CloseReasonClosedEvent), f.journal.changes[1].Reason)
	assert.Equal(t, t0.Add(10*time.Minute), f.journal.changes[1].At)
}

func TestService_OrderEvents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.svc.Subscribe(ctx))

	f.bus.Deliver(ctx, ChannelOrderPlaced, []byte(`{"orderId":"o-1","symbol":"NQH6","side":"buy","price":18000,"strategy":"GEX_LT_RECOIL"}`))
	require.Len(t, f.svc.Status().PendingOrders, 1)

	f.bus.Deliver(ctx, ChannelOrderFilled, []byte(`{"orderId":"o-1","strategy":"GEX_LT_RECOIL"}`))
	assert.Empty(t, f.svc.Status().PendingOrders)

	f.bus.Deliver(ctx, ChannelOrderPlaced, []byte(`{"orderId":"o-2","symbol":"NQH6","side":"buy","price":18000,"strategy":"GEX_LT_RECOIL"}`))
	for m := 0; m < 3; m++ {
		f.bus.Deliver(ctx, ChannelCandleClose, candleJSON(t, m, 18010))
	}
	sigs := decodeSignals(t, f.bus.Published(ChannelTradeSignal))
	require.Len(t, sigs, 1)
	assert.Equal(t, domain.ActionCancelLimit, sigs[0].Action)
	assert.Equal(t, "o-2", sigs[0].OrderID)
}

func TestService_StartupSyncRetriesThenAdopts(t *testing.T) {
	f := newFixture(t, nil)
	f.positions.results = []positionsResult{
		{err: errBroker},
		{err: errBroker},
		{positions: []domain.BrokerPosition{{Symbol: "NQH6", NetSize: -2, EntryPrice: 18050}}},
	}

	f.svc.StartupSync(context.Background())

	assert.Equal(t, 3, f.positions.Calls())
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, f.sleeps)
	st := f.svc.Status()
	require.NotNil(t, st.Position)
	assert.Equal(t, domain.SideShort, st.Position.Side)
	assert.Equal(t, domain.OriginStartup, st.Position.Origin)
	assert.True(t, st.Reconcile.StartupSynced)
	require.Len(t, f.journal.changes, 1)
	assert.Equal(t, string(domain.OriginStartup), f.journal.changes[0].Origin)
}

func TestService_StartupSyncFailureDegrades(t *testing.T) {
	f := newFixture(t, nil)
	f.positions.results = []positionsResult{{err: errBroker}}

	f.svc.StartupSync(context.Background())

	assert.Equal(t, 3, f.positions.Calls())
	st := f.svc.Status()
	assert.False(t, st.InPosition)
	assert.True(t, st.Reconcile.StartupDegraded)
	assert.Contains(t, st.Degraded, "startup_sync_failed")
}

func TestService_RunOnceThrottlesReconcileAndStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.positions.results = []positionsResult{{positions: nil}}

	f.svc.RunOnce(ctx)
	assert.Equal(t, 1, f.positions.Calls())
	assert.Len(t, f.bus.Published(ChannelServiceHealth), 1)

	f.advance(30 * time.Second)
	f.svc.RunOnce(ctx)
	assert.Equal(t, 1, f.positions.Calls())
	assert.Len(t, f.bus.Published(ChannelServiceHealth), 1)

	f.advance(time.Minute)
	f.svc.RunOnce(ctx)
	assert.Equal(t, 1, f.positions.Calls())
	assert.Len(t, f.bus.Published(ChannelServiceHealth), 2)

	f.advance(5 * time.Minute)
	f.svc.RunOnce(ctx)
	assert.Equal(t, 2, f.positions.Calls())
	assert.Equal(t, engine.ReconcileConfirmedFlat, f.svc.Status().Reconcile.LastOutcome)
}

func TestService_ReconcileConvergesAndRecordsFailures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.positions.results = []positionsResult{{err: errBroker}}
	assert.Equal(t, engine.ReconcileFailed, f.svc.Reconcile(ctx))
	st := f.svc.Status()
	assert.Equal(t, 1, st.Reconcile.ConsecutiveFailures)
	assert.Contains(t, st.Degraded, "reconcile_failing")

	f.positions.results = []positionsResult{{positions: []domain.BrokerPosition{{Symbol: "NQH6", NetSize: 1, EntryPrice: 18000}}}}
	f.positions.calls = 0
	assert.Equal(t, engine.ReconcileAdopted, f.svc.Reconcile(ctx))
	assert.True(t, f.svc.Status().InPosition)

	f.positions.results = []positionsResult{{positions: nil}}
	f.positions.calls = 0
	assert.Equal(t, engine.ReconcileStale, f.svc.Reconcile(ctx))
	assert.False(t, f.svc.Status().InPosition)
	require.Len(t, f.journal.changes, 2)
	assert.Equal(t, string(domain.CloseReasonReconcileStale), f.journal.changes[1].Reason)
}

func TestService_ReconcileDiscardsSnapshotWhenPositionChangesDuringFetch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// The broker snapshot is flat, but a fill arrives while it is in flight.
	f.positions.results = []positionsResult{{positions: nil}}
	f.positions.onFetch = func() {
		f.svc.HandlePositionEvent(ctx, domain.PositionEvent{
			Symbol: "NQH6", NetSize: 1, EntryPrice: 18000, Strategy: "GEX_LT_RECOIL",
		})
	}

	assert.Equal(t, engine.ReconcileSkipped, f.svc.Reconcile(ctx))
	st := f.svc.Status()
	require.True(t, st.InPosition)
	assert.Equal(t, 18000.0, st.Position.EntryPrice)
	require.Len(t, f.journal.changes, 1)
	assert.Equal(t, "OPENED", f.journal.changes[0].Kind)

	// The next cycle sees a fetch without interference and converges.
	f.positions.onFetch = nil
	f.positions.results = []positionsResult{{positions: []domain.BrokerPosition{{Symbol: "NQH6", NetSize: 1, EntryPrice: 18000}}}}
	f.positions.calls = 0
	assert.Equal(t, engine.ReconcileConfirmedOpen, f.svc.Reconcile(ctx))
	assert.True(t, f.svc.Status().InPosition)
}

func TestService_SetEnabledPublishesStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.svc.SetEnabled(ctx, false)
	st := f.svc.Status()
	assert.False(t, st.Enabled)
	assert.Equal(t, "signal-generator", st.Service)

	health := f.bus.Published(ChannelServiceHealth)
	require.Len(t, health, 1)
	var n struct {
		Type   string          `json:"type"`
		Status json.RawMessage `json:"status"`
	}
	require.NoError(t, json.Unmarshal(health[0].Payload, &n))
	assert.Equal(t, "status", n.Type)
	assert.Contains(t, string(n.Status), `"enabled":false`)

	for m := 0; m < 15; m++ {
		f.svc.HandleCandle(ctx, domain.Candle{Timestamp: t0.Add(time.Duration(m) * time.Minute), Close: 18000, Symbol: "NQ"})
	}
	assert.Zero(t, f.strategy.calls)
}

func TestService_StartWithCandleStream(t *testing.T) {
	stream := &mockStream{}
	f := newFixture(t, stream)
	f.strategy.signal = &domain.Signal{Side: domain.Buy, Price: 18000, StopLoss: 17985, TakeProfit: 18025}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Start(ctx) }()

	require.Eventually(t, func() bool { return f.positions.Calls() >= 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, f.bus.Subscribed(ChannelCandleClose))
	assert.True(t, f.bus.Subscribed(ChannelPositionUpdate))
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "NQ", stream.symbol)
	for m := 0; m < 15; m++ {
		stream.handler(domain.Candle{Timestamp: t0.Add(time.Duration(m) * time.Minute), Close: 18000, Symbol: "NQ"})
	}
	assert.Len(t, f.bus.Published(ChannelTradeSignal), 1)
}

func TestService_RecentSignals(t *testing.T) {
	f := newFixture(t, nil)
	f.journal.signals = []*domain.Signal{{ID: "a"}, {ID: "b"}}
	got, err := f.svc.RecentSignals(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	f.svc.journal = nil
	got, err = f.svc.RecentSignals(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}
