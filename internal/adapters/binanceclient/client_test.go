package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalGenerator/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{APIKey: "k", SecretKey: "s", UseTestnet: true, Logger: &mockLogger{}, Symbol: "BTCUSDT", Instrument: "BTC-PERP"})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresLogger(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{&common.APIError{Code: -1003}, ports.ErrRateLimited},
		{&common.APIError{Code: -2015}, ports.ErrAuthenticationFailed},
		{&common.APIError{Code: -1102}, ports.ErrInvalidRequest},
		{&common.APIError{Code: -9999}, ports.ErrBrokerUnavailable},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ports.ErrTimeout},
		{errors.New("dial tcp: connection refused"), ports.ErrConnectionFailed},
		{errors.New("something else"), ports.ErrBrokerUnavailable},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, classify(tt.err), tt.want, tt.err.Error())
	}

	c := newTestClient(t)
	err := c.handleError(context.Background(), &common.APIError{Code: -1003, Message: "slow down"}, "GetOpenPositions")
	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Contains(t, err.Error(), "GetOpenPositions failed")
}

func TestTranslatePositionRisk(t *testing.T) {
	c := newTestClient(t)

	pos, ok := c.translatePositionRisk(&futures.PositionRisk{Symbol: "BTCUSDT", PositionAmt: "-0.5", EntryPrice: "64000.5"}, "acct")
	require.True(t, ok)
	assert.Equal(t, "BTC-PERP", pos.Symbol)
	assert.Equal(t, -0.5, pos.NetSize)
	assert.Equal(t, 64000.5, pos.EntryPrice)
	assert.Equal(t, "acct", pos.Account)

	_, ok = c.translatePositionRisk(&futures.PositionRisk{Symbol: "BTCUSDT", PositionAmt: "0.000"}, "")
	assert.False(t, ok)
	_, ok = c.translatePositionRisk(nil, "")
	assert.False(t, ok)

	other, ok := c.translatePositionRisk(&futures.PositionRisk{Symbol: "ETHUSDT", PositionAmt: "1"}, "")
	require.True(t, ok)
	assert.Equal(t, "ETHUSDT", other.Symbol)
}

func TestTranslateWsKline(t *testing.T) {
	start := time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)
	event := &futures.WsKlineEvent{Kline: futures.WsKline{
		StartTime: start.UnixMilli(),
		Symbol:    "BTCUSDT",
		Open:      "100.5",
		High:      "101",
		Low:       "99.5",
		Close:     "100",
		Volume:    "12.25",
		IsFinal:   true,
	}}

	candle, final, err := translateWsKline(event, "BTC-PERP")
	require.NoError(t, err)
	assert.True(t, final)
	assert.Equal(t, start, candle.Timestamp)
	assert.Equal(t, "BTC-PERP", candle.Symbol)
	assert.Equal(t, 100.5, candle.Open)
	assert.Equal(t, 12.25, candle.Volume)

	event.Kline.High = "abc"
	_, _, err = translateWsKline(event, "")
	assert.Error(t, err)

	_, _, err = translateWsKline(nil, "")
	assert.Error(t, err)
}

func TestTranslateKline(t *testing.T) {
	start := time.Date(2024, 3, 4, 14, 1, 0, 0, time.UTC)
	candle, err := translateKline(&futures.Kline{OpenTime: start.UnixMilli(), Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "10"}, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, start, candle.Timestamp)
	assert.Equal(t, 1.5, candle.Close)
	assert.Equal(t, "BTCUSDT", candle.Symbol)

	_, err = translateKline(nil, "BTCUSDT")
	assert.Error(t, err)
}

func TestStreamCandles_RejectsNilHandler(t *testing.T) {
	c := newTestClient(t)
	_, err := c.StreamCandles(context.Background(), "BTCUSDT", nil)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}
