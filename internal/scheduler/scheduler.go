// Package scheduler implements the reminder scheduler: on every tick it
// finds due, unsent reminders and publishes one ReminderEvent per
// (task, subscription) pair onto the durable bus. It never marks
// reminder_sent itself; that happens only after the worker confirms
// delivery, so an overlapping or repeated tick cannot cause extra pushes
// beyond what the at-least-once bus already allows.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"taskpulse/internal/eventbus"
	"taskpulse/internal/store"
)

// Tick runs one scheduling pass: it lists every reminder due as of now
// and publishes a ReminderEvent per (task, subscription) pair. A task with
// no push subscriptions registered is skipped, there is nowhere to deliver
// it. A publish failure for one pair is logged and does not abort the rest
// of the tick; reminder_sent is still false, so the next tick retries.
func Tick(ctx context.Context, db store.DBTX, bus eventbus.Publisher, now time.Time, log zerolog.Logger) (published int, err error) {
	due, err := store.ListDueReminders(ctx, db, now)
	if err != nil {
		return 0, fmt.Errorf("scheduler: list due reminders: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	for _, reminder := range due {
		subs, err := store.ListSubscriptionsForUser(ctx, db, reminder.UserID)
		if err != nil {
			log.Error().Err(err).Int64("task_id", reminder.TaskID).Msg("failed to load subscriptions for due reminder")
			continue
		}
		if len(subs) == 0 {
			log.Debug().Int64("task_id", reminder.TaskID).Msg("due reminder has no push subscriptions, skipping")
			continue
		}

		for _, sub := range subs {
			ev := eventbus.ReminderEvent{
				EventID:    ulid.Make().String(),
				TaskID:     reminder.TaskID,
				UserID:     reminder.UserID,
				Title:      reminder.Title,
				ReminderAt: reminder.ReminderAt,
				DueAt:      reminder.DueAt,
				PushSubscription: &eventbus.PushSubscriptionRef{
					Endpoint: sub.Endpoint,
					Keys: eventbus.PushSubscriptionKeys{
						P256dh: sub.P256dhKey,
						Auth:   sub.AuthKey,
					},
				},
			}
			if err := bus.Publish(ctx, eventbus.TopicReminders, ev); err != nil {
				log.Error().Err(err).Int64("task_id", reminder.TaskID).Str("endpoint", sub.Endpoint).
					Msg("failed to publish reminder event, will retry next tick")
				continue
			}
			published++
		}
	}

	return published, nil
}

// Run drives Tick on a fixed interval until ctx is cancelled, ticking once
// immediately on entry so a freshly-started scheduler doesn't wait a full
// interval before its first pass.
func Run(ctx context.Context, db store.DBTX, bus eventbus.Publisher, interval time.Duration, log zerolog.Logger) error {
	runOnce := func() {
		n, err := Tick(ctx, db, bus, time.Now(), log)
		if err != nil {
			log.Error().Err(err).Msg("scheduler tick failed")
			return
		}
		if n > 0 {
			log.Info().Int("published", n).Msg("scheduler tick published reminders")
		}
	}

	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}
