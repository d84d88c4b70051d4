// Package membus is an in-process ports.MessageBus used by offline replay and
// tests. Delivery is synchronous, in publish order.
package membus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"signalGenerator/internal/ports"
)

// Message is one recorded publish.
type Message struct {
	Channel string
	Payload []byte
}

// Bus records every publish and fans it out to subscribers.
type Bus struct {
	mu        sync.Mutex
	handlers  map[string][]ports.Handler
	published []Message
	failOn    map[string]error
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]ports.Handler), failOn: make(map[string]error)}
}

// FailPublish makes publishes on channel return err; nil clears it.
func (b *Bus) FailPublish(channel string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failOn, channel)
		return
	}
	b.failOn[channel] = err
}

// Publish JSON-encodes payload, records it and delivers it to subscribers.
func (b *Bus) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s payload: %w", ports.ErrPublishFailed, channel, err)
	}
	b.mu.Lock()
	if ferr := b.failOn[channel]; ferr != nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s: %w", ports.ErrPublishFailed, channel, ferr)
	}
	b.published = append(b.published, Message{Channel: channel, Payload: data})
	handlers := append([]ports.Handler(nil), b.handlers[channel]...)
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, channel, data)
	}
	return nil
}

// Subscribe registers handler for channel.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler ports.Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ports.ErrInvalidRequest, channel)
	}
	b.mu.Lock()
	b.handlers[channel] = append(b.handlers[channel], handler)
	b.mu.Unlock()
	return nil
}

// Deliver pushes a raw payload to subscribers without recording it, as if an
// external producer had published it.
func (b *Bus) Deliver(ctx context.Context, channel string, payload []byte) {
	b.mu.Lock()
	handlers := append([]ports.Handler(nil), b.handlers[channel]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(ctx, channel, payload)
	}
}

// Published returns a copy of the messages published on channel, or on every
// channel when channel is empty.
func (b *Bus) Published(channel string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, 0, len(b.published))
	for _, m := range b.published {
		if channel == "" || m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

// Subscribed reports whether channel has at least one handler.
func (b *Bus) Subscribed(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[channel]) > 0
}
