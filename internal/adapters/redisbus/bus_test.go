package redisbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
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

func newTestBus(t *testing.T) (*Bus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	bus, err := New(context.Background(), Config{Addr: mr.Addr(), Logger: &mockLogger{}})
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	return bus, mr
}

func TestNew_ConnectionFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := New(ctx, Config{Addr: "127.0.0.1:1", Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConnectionFailed)
}

func TestPublishSubscribe_Envelope(t *testing.T) {
	bus, mr := newTestBus(t)
	bus.now = func() time.Time { return time.Date(2024, 3, 4, 14, 15, 0, 0, time.UTC) }
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got [][]byte
	require.NoError(t, bus.Subscribe(ctx, "trade.signal", func(ctx context.Context, channel string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "trade.signal", channel)
		got = append(got, payload)
	}))

	require.NoError(t, bus.Publish(ctx, "trade.signal", map[string]interface{}{"action": "place_limit"}))
	// A producer that does not use the envelope.
	mr.Publish("trade.signal", `{"action":"cancel_limit"}`)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"action":"place_limit"}`, string(got[0]))
	assert.JSONEq(t, `{"action":"cancel_limit"}`, string(got[1]))
}

func TestPublish_WritesEnvelope(t *testing.T) {
	bus, _ := newTestBus(t)
	bus.now = func() time.Time { return time.Date(2024, 3, 4, 14, 15, 0, 0, time.UTC) }
	ctx := context.Background()

	raw := bus.Client().Subscribe(ctx, "service.health")
	defer raw.Close()
	_, err := raw.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "service.health", map[string]bool{"ok": true}))

	msg, err := raw.ReceiveMessage(ctx)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
	assert.Equal(t, "service.health", env.Channel)
	assert.Equal(t, "2024-03-04T14:15:00Z", env.Timestamp)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))
}

func TestPublish_EncodeFailure(t *testing.T) {
	bus, _ := newTestBus(t)
	err := bus.Publish(context.Background(), "trade.signal", make(chan int))
	assert.ErrorIs(t, err, ports.ErrPublishFailed)
}

func TestPublish_ClosedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewWithClient(client, &mockLogger{})
	mr.Close()
	err := bus.Publish(context.Background(), "trade.signal", 1)
	assert.ErrorIs(t, err, ports.ErrPublishFailed)
}

func TestUnwrap(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(Unwrap([]byte(`{"timestamp":"x","channel":"c","data":{"a":1}}`))))
	assert.Equal(t, `{"data":{"a":1}}`, string(Unwrap([]byte(`{"data":{"a":1}}`))))
	assert.Equal(t, `[1,2]`, string(Unwrap([]byte(`[1,2]`))))
	assert.Equal(t, `not json`, string(Unwrap([]byte(`not json`))))
}
