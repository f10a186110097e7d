package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
)

// AsynqBus is the durable at-least-once bus backed by Redis via
// hibiken/asynq. Topics become asynq task type strings.
type AsynqBus struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux

	mu      sync.Mutex
	started bool
	runErr  chan error
}

// NewAsynqBus dials Redis at redisAddr and configures a server with
// concurrency worker goroutines for consuming. Queue names mirror the
// topics so TopicReminders and TopicTaskEvents never contend with each
// other's backpressure.
func NewAsynqBus(redisAddr string, concurrency int) *AsynqBus {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	return &AsynqBus{
		client: asynq.NewClient(redisOpt),
		server: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				TopicReminders:  6,
				TopicTaskEvents: 4,
			},
		}),
		mux:    asynq.NewServeMux(),
		runErr: make(chan error, 1),
	}
}

// Publish enqueues payload (JSON-encoded) as a task of type topic.
// Returns success only once asynq has confirmed the enqueue against
// Redis.
func (b *AsynqBus) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("eventbus: marshal payload for %s: %w", topic, err)
	}
	task := asynq.NewTask(topic, body)
	if _, err := b.client.EnqueueContext(ctx, task, asynq.Queue(topic)); err != nil {
		return fmt.Errorf("eventbus: enqueue %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for topic and, on the first call, starts
// the shared asynq server. It blocks until ctx is cancelled or the server
// exits. A handler returning Nack triggers asynq's built-in retry/backoff;
// Drop marks the task done without retry via asynq.SkipRetry.
func (b *AsynqBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mux.HandleFunc(topic, func(ctx context.Context, task *asynq.Task) error {
		switch handler(ctx, task.Payload()) {
		case Ack:
			return nil
		case Drop:
			return fmt.Errorf("eventbus: dropping unprocessable %s task: %w", topic, asynq.SkipRetry)
		default: // Nack
			return fmt.Errorf("eventbus: transient failure processing %s task, will retry", topic)
		}
	})

	b.mu.Lock()
	if !b.started {
		b.started = true
		go func() { b.runErr <- b.server.Run(b.mux) }()
	}
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		b.server.Shutdown()
		return ctx.Err()
	case err := <-b.runErr:
		return err
	}
}

// Close releases the client connection. The server is stopped by
// Subscribe's ctx cancellation path.
func (b *AsynqBus) Close() error {
	return b.client.Close()
}
