// Package redisbus implements ports.MessageBus over Redis pub/sub.
package redisbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"signalGenerator/internal/ports"
)

// Envelope wraps every published payload so consumers see the channel and
// publish time next to the data.
type Envelope struct {
	Timestamp string          `json:"timestamp"`
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data"`
}

// Bus is a Redis-backed message bus.
type Bus struct {
	client *redis.Client
	logger ports.Logger
	now    func() time.Time

	mu   sync.Mutex
	subs []*redis.PubSub
	wg   sync.WaitGroup
}

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Logger   ports.Logger
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, cfg Config) (*Bus, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for redis bus")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping %s: %w", ports.ErrConnectionFailed, cfg.Addr, err)
	}
	cfg.Logger.Info(ctx, "Connected to Redis", map[string]interface{}{"addr": cfg.Addr, "db": cfg.DB})
	return NewWithClient(client, cfg.Logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, logger ports.Logger) *Bus {
	return &Bus{client: client, logger: logger, now: time.Now}
}

// Client exposes the underlying client for key reads.
func (b *Bus) Client() *redis.Client {
	return b.client
}

// Publish JSON-encodes payload inside an Envelope and publishes it.
func (b *Bus) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s payload: %w", ports.ErrPublishFailed, channel, err)
	}
	msg, err := json.Marshal(Envelope{
		Timestamp: b.now().UTC().Format(time.RFC3339Nano),
		Channel:   channel,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("%w: encode %s envelope: %w", ports.ErrPublishFailed, channel, err)
	}
	if err := b.client.Publish(ctx, channel, msg).Err(); err != nil {
		return fmt.Errorf("%w: %s: %w", ports.ErrPublishFailed, channel, err)
	}
	return nil
}

// Subscribe starts a goroutine delivering messages on channel to handler
// until ctx is done or Close is called. Messages on one subscription are
// delivered in order.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler ports.Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ports.ErrInvalidRequest, channel)
	}
	ps := b.client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no message is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("%w: %s: %w", ports.ErrSubscribeFailed, channel, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, ps)
	b.mu.Unlock()

	b.logger.Info(ctx, "Subscribed to channel", map[string]interface{}{"channel": channel})

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				ps.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(ctx, msg.Channel, Unwrap([]byte(msg.Payload)))
			}
		}
	}()
	return nil
}

// Close stops every subscription and closes the client.
func (b *Bus) Close() error {
	b.mu.Lock()
	for _, ps := range b.subs {
		ps.Close()
	}
	b.subs = nil
	b.mu.Unlock()
	b.wg.Wait()
	return b.client.Close()
}

// Unwrap returns the data of an Envelope, or raw unchanged when it is not one.
func Unwrap(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var env struct {
		Channel *string         `json:"channel"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Channel == nil || len(env.Data) == 0 {
		return raw
	}
	return env.Data
}
