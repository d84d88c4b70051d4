package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockStrategy struct {
	signal *domain.Signal
	calls  int
}

func (m *mockStrategy) Name() string { return "mock" }

func (m *mockStrategy) EvaluateSignal(ctx context.Context, candle, prev *domain.Candle, market domain.MarketContext) *domain.Signal {
	m.calls++
	if m.signal == nil {
		return nil
	}
	cp := *m.signal
	return &cp
}

func (m *mockStrategy) ResetCooldown() {}

func (m *mockStrategy) LastSignalTime() time.Time { return time.Time{} }

type mockLevels struct {
	gex *domain.GexLevels
}

func (m *mockLevels) GexLevels() *domain.GexLevels { return m.gex }
func (m *mockLevels) LTLevels() *domain.LTLevels   { return nil }
func (m *mockLevels) IVSkew() *domain.IVSkew       { return nil }

// mockPositions returns scripted results in order, repeating the last one.
// onFetch runs before each result is returned.
type mockPositions struct {
	mu      sync.Mutex
	results []positionsResult
	calls   int
	onFetch func()
}

type positionsResult struct {
	positions []domain.BrokerPosition
	err       error
}

var errBroker = errors.New("broker down")

func (m *mockPositions) GetOpenPositions(ctx context.Context, account string) ([]domain.BrokerPosition, error) {
	m.mu.Lock()
	m.calls++
	var res positionsResult
	if len(m.results) > 0 {
		i := m.calls - 1
		if i >= len(m.results) {
			i = len(m.results) - 1
		}
		res = m.results[i]
	}
	hook := m.onFetch
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return res.positions, res.err
}

func (m *mockPositions) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockJournal struct {
	mu      sync.Mutex
	signals []*domain.Signal
	changes []*ports.PositionChange
	err     error
}

func (m *mockJournal) SaveSignal(ctx context.Context, sig *domain.Signal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	cp := *sig
	m.signals = append(m.signals, &cp)
	return int64(len(m.signals)), nil
}

func (m *mockJournal) RecentSignals(ctx context.Context, limit int) ([]*domain.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Signal, 0, limit)
	for i := len(m.signals) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.signals[i])
	}
	return out, nil
}

func (m *mockJournal) SavePositionChange(ctx context.Context, change *ports.PositionChange) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.changes = append(m.changes, change)
	return int64(len(m.changes)), nil
}

func (m *mockJournal) RecentPositionChanges(ctx context.Context, limit int) ([]*ports.PositionChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changes, nil
}

type mockStream struct {
	handler func(domain.Candle)
	symbol  string
	done    chan struct{}
}

func (m *mockStream) StreamCandles(ctx context.Context, symbol string, handler func(domain.Candle)) (<-chan struct{}, error) {
	m.symbol = symbol
	m.handler = handler
	m.done = make(chan struct{})
	return m.done, nil
}
