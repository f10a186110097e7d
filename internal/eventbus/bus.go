// Package eventbus is a thin publish/subscribe abstraction over a
// durable, at-least-once message bus. AsynqBus in asynq_bus.go is the
// Redis-backed implementation.
package eventbus

import "context"

// HandlerResult tells the bus adapter what to do with a delivered message.
type HandlerResult int

const (
	// Ack acknowledges the message; it will not be redelivered.
	Ack HandlerResult = iota
	// Nack leaves the message for redelivery after a transient failure.
	Nack
	// Drop acknowledges the message without retry, for a message that can
	// never be processed, so it does not poison the topic.
	Drop
)

// Handler processes one delivered message and reports how the bus should
// settle it.
type Handler func(ctx context.Context, payload []byte) HandlerResult

// Publisher publishes payloads to a topic. Publish returns an error when
// the payload cannot be encoded or the broker does not accept the
// message; callers log and let the next cycle retry.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Subscriber registers a handler for a topic. Subscribe blocks, running
// the consume loop until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// Bus is the combined surface a process needs: the scheduler and
// toggle-complete publish, the worker subscribes.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}
