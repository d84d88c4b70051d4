package ports

import "context"

// Handler receives a raw payload published on a channel.
type Handler func(ctx context.Context, channel string, payload []byte)

// MessageBus is an abstract publish/subscribe transport.
type MessageBus interface {
	// Publish sends payload on channel. Payload is JSON-encoded by the adapter.
	Publish(ctx context.Context, channel string, payload interface{}) error
	// Subscribe registers handler for channel. Handlers may be invoked from
	// the adapter's own goroutine.
	Subscribe(ctx context.Context, channel string, handler Handler) error
}
