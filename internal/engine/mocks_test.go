package engine

import (
	"context"
	"time"

	"signalGenerator/internal/domain"
)

type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockStrategy struct {
	name      string
	calls     []domain.Candle
	prevs     []*domain.Candle
	signal    *domain.Signal
	resets    int
	lastReset time.Time

	requiresIV bool
	ivSeen     *domain.IVSkew
	breakeven  *domain.BreakevenStop
}

func (m *mockStrategy) Name() string { return m.name }

func (m *mockStrategy) EvaluateSignal(ctx context.Context, candle, prev *domain.Candle, market domain.MarketContext) *domain.Signal {
	m.calls = append(m.calls, *candle)
	m.prevs = append(m.prevs, prev)
	if m.signal == nil {
		return nil
	}
	cp := *m.signal
	return &cp
}

func (m *mockStrategy) ResetCooldown() { m.resets++ }

func (m *mockStrategy) LastSignalTime() time.Time { return m.lastReset }

type ivStrategy struct {
	*mockStrategy
}

func (s ivStrategy) RequiresIV() bool            { return s.requiresIV }
func (s ivStrategy) SetIVData(iv *domain.IVSkew) { s.ivSeen = iv }
func (s ivStrategy) BreakevenParams() (*domain.BreakevenStop, bool) {
	return s.breakeven, s.breakeven != nil
}

type mockLevels struct {
	gex *domain.GexLevels
	lt  *domain.LTLevels
	iv  *domain.IVSkew
}

func (m *mockLevels) GexLevels() *domain.GexLevels { return m.gex }
func (m *mockLevels) LTLevels() *domain.LTLevels   { return m.lt }
func (m *mockLevels) IVSkew() *domain.IVSkew       { return m.iv }
