// Package notifier is the notification worker: it consumes
// ReminderEvents from the delivery topic, dispatches Web Push, and closes
// the loop by marking the reminder sent.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"taskpulse/internal/eventbus"
	"taskpulse/internal/store"
)

// pushGatewayTimeout bounds every outbound Web Push dispatch.
const pushGatewayTimeout = 30 * time.Second

// Sender dispatches a signed Web Push request. The production
// implementation wraps webpush.SendNotificationWithContext; tests
// substitute a fake.
type Sender interface {
	Send(ctx context.Context, sub *webpush.Subscription, payload []byte, opts *webpush.Options) (*http.Response, error)
}

// WebPushSender is the production Sender.
type WebPushSender struct{}

// Send dispatches payload via Web Push. ctx carries Handle's 30s dispatch
// budget and cancels the outbound request when it expires.
func (WebPushSender) Send(ctx context.Context, sub *webpush.Subscription, payload []byte, opts *webpush.Options) (*http.Response, error) {
	return webpush.SendNotificationWithContext(ctx, payload, sub, opts)
}

// TaskReader is the worker's read-only slice of the store. The worker
// never mutates the DB directly; the two writes it performs go through
// APIClient.
type TaskReader interface {
	GetTask(ctx context.Context, userID string, id int64) (store.Task, error)
}

// storeTaskReader adapts a store.DBTX to TaskReader.
type storeTaskReader struct{ db store.DBTX }

func (r storeTaskReader) GetTask(ctx context.Context, userID string, id int64) (store.Task, error) {
	return store.GetTask(ctx, r.db, userID, id)
}

// NewTaskReader wraps a DB handle as a TaskReader.
func NewTaskReader(db store.DBTX) TaskReader { return storeTaskReader{db: db} }

// Worker holds everything one reminder delivery needs.
type Worker struct {
	Tasks  TaskReader
	API    *APIClient
	Sender Sender
	VAPID  VAPIDConfig
	Log    zerolog.Logger
}

// VAPIDConfig is the server's asymmetric key pair used to sign Web Push
// requests.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// Handle implements eventbus.Handler for the reminders topic.
//
//	NEW --probe--> ALREADY_SENT --> ack
//	            |
//	            +--> DISPATCH --> 2xx      --> mark_sent --> ack
//	                           +- terminal --> delete sub --> ack
//	                           +- transient -> nack (redeliver)
func (w *Worker) Handle(ctx context.Context, payload []byte) eventbus.HandlerResult {
	var ev eventbus.ReminderEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		w.Log.Error().Err(err).Msg("dropping unparseable reminder event")
		return eventbus.Drop
	}
	if ev.PushSubscription == nil {
		w.Log.Error().Int64("task_id", ev.TaskID).Msg("dropping reminder event with no subscription")
		return eventbus.Drop
	}

	// Step 1: dedup probe.
	task, err := w.Tasks.GetTask(ctx, ev.UserID, ev.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrForbidden) {
			// Task gone, or no longer owned by the event's user; nothing
			// to deliver or re-send, so ack.
			return eventbus.Ack
		}
		w.Log.Warn().Err(err).Int64("task_id", ev.TaskID).Msg("dedup probe failed, treating as transient")
		return eventbus.Nack
	}
	if task.ReminderSent {
		return eventbus.Ack
	}

	// Step 2: compose payload.
	body, err := buildPayload(ev.TaskID, ev.Title, ev.DueAt)
	if err != nil {
		w.Log.Error().Err(err).Int64("task_id", ev.TaskID).Msg("dropping event: payload build failed")
		return eventbus.Drop
	}

	// Step 3: sign and dispatch.
	sendCtx, cancel := context.WithTimeout(ctx, pushGatewayTimeout)
	defer cancel()

	sub := &webpush.Subscription{
		Endpoint: ev.PushSubscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: ev.PushSubscription.Keys.P256dh,
			Auth:   ev.PushSubscription.Keys.Auth,
		},
	}
	resp, err := w.Sender.Send(sendCtx, sub, body, &webpush.Options{
		Subscriber:      w.VAPID.Subject,
		VAPIDPublicKey:  w.VAPID.PublicKey,
		VAPIDPrivateKey: w.VAPID.PrivateKey,
		TTL:             3600,
	})
	if err != nil {
		w.Log.Warn().Err(err).Int64("task_id", ev.TaskID).Msg("transient push dispatch failure")
		return eventbus.Nack
	}
	defer resp.Body.Close()

	return w.settle(ctx, ev, resp.StatusCode)
}

// Step 4: interpret the response and close the loop.
func (w *Worker) settle(ctx context.Context, ev eventbus.ReminderEvent, status int) eventbus.HandlerResult {
	switch {
	case status >= 200 && status < 300:
		if err := w.API.MarkReminderSent(ctx, ev.TaskID); err != nil {
			w.Log.Warn().Err(err).Int64("task_id", ev.TaskID).Msg("mark-sent call failed after successful push")
			// The push already landed; redelivery re-probes, finds
			// reminder_sent still false, and retries mark-sent. The rare
			// duplicate push this allows is within the at-most-once
			// tolerance.
			return eventbus.Nack
		}
		return eventbus.Ack

	case status == http.StatusBadRequest || status == http.StatusGone:
		if err := w.API.RecordSubscriptionDead(ctx, ev.PushSubscription.Endpoint); err != nil {
			w.Log.Warn().Err(err).Str("endpoint", ev.PushSubscription.Endpoint).Msg("failed to record dead subscription")
		}
		return eventbus.Ack

	case status == http.StatusTooManyRequests, status >= 500:
		w.Log.Warn().Int("status", status).Int64("task_id", ev.TaskID).Msg("transient push gateway response")
		return eventbus.Nack

	default:
		w.Log.Error().Int("status", status).Int64("task_id", ev.TaskID).Msg("unexpected push gateway response, dropping")
		return eventbus.Drop
	}
}
