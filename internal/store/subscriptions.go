package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertSubscription matches by (user_id, endpoint): a repeat
// registration with the same endpoint replaces the keys and bumps
// updated_at instead of creating a duplicate row.
func UpsertSubscription(ctx context.Context, db DBTX, userID, endpoint, p256dh, auth string, userAgent *string) (PushSubscription, error) {
	var s PushSubscription
	err := db.QueryRow(ctx,
		`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh_key, auth_key, user_agent, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (endpoint) DO UPDATE SET
		   p256dh_key = EXCLUDED.p256dh_key,
		   auth_key   = EXCLUDED.auth_key,
		   user_agent = EXCLUDED.user_agent,
		   updated_at = now()
		 WHERE push_subscriptions.user_id = $2
		 RETURNING id, user_id, endpoint, p256dh_key, auth_key, user_agent, created_at, updated_at`,
		uuid.NewString(), userID, endpoint, p256dh, auth, userAgent,
	).Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dhKey, &s.AuthKey, &s.UserAgent, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Endpoints are globally unique; the conflict row belongs to
		// another user, so the guarded update matched nothing.
		return PushSubscription{}, ErrForbidden
	}
	if err != nil {
		return PushSubscription{}, fmt.Errorf("upsert subscription: %w", err)
	}
	return s, nil
}

// DeleteSubscriptionByEndpoint removes a single subscription owned by
// userID, identified by its endpoint.
func DeleteSubscriptionByEndpoint(ctx context.Context, db DBTX, userID, endpoint string) error {
	tag, err := db.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`,
		userID, endpoint,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllSubscriptions removes every subscription owned by userID.
func DeleteAllSubscriptions(ctx context.Context, db DBTX, userID string) error {
	if _, err := db.Exec(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete all subscriptions: %w", err)
	}
	return nil
}

// DeleteSubscriptionByEndpointGlobal removes a subscription the push
// gateway has declared gone. The worker identifies a dead endpoint without
// a user_id in hand, so this is not ownership-scoped; endpoints are
// globally unique, so exactly one row can match.
func DeleteSubscriptionByEndpointGlobal(ctx context.Context, db DBTX, endpoint string) error {
	tag, err := db.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return fmt.Errorf("delete subscription (global): %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscriptionsForUser loads every push subscription for a user, used
// by the scheduler to fan reminders out per (task, subscription) pair.
func ListSubscriptionsForUser(ctx context.Context, db DBTX, userID string) ([]PushSubscription, error) {
	rows, err := db.Query(ctx,
		`SELECT id, user_id, endpoint, p256dh_key, auth_key, user_agent, created_at, updated_at
		 FROM push_subscriptions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	out := make([]PushSubscription, 0, 4)
	for rows.Next() {
		var s PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dhKey, &s.AuthKey, &s.UserAgent, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list subscriptions scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions rows: %w", err)
	}
	return out, nil
}
