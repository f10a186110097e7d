// Package subscriptions serves push-subscription registration and
// removal. Registration is an upsert: browsers re-POST the same endpoint
// whenever the Service Worker re-subscribes, and that must refresh the
// keys rather than grow the table.
package subscriptions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"taskpulse/internal/api/httpx"
	"taskpulse/internal/app"
	authmw "taskpulse/internal/auth"
	"taskpulse/internal/store"
)

const handlerTimeout = 10 * time.Second

type SubscriptionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	UserAgent *string   `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(s store.PushSubscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Endpoint:  s.Endpoint,
		UserAgent: s.UserAgent,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func UpsertHandler(deps app.Deps) http.HandlerFunc {
	type request struct {
		Endpoint  string  `json:"endpoint"`
		P256dhKey string  `json:"p256dh_key"`
		AuthKey   string  `json:"auth_key"`
		UserAgent *string `json:"user_agent"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Endpoint == "" || req.P256dhKey == "" || req.AuthKey == "" {
			httpx.WriteErr(w, http.StatusBadRequest, "endpoint, p256dh_key and auth_key are required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		sub, err := store.UpsertSubscription(ctx, deps.DB, user.ID, req.Endpoint, req.P256dhKey, req.AuthKey, req.UserAgent)
		if err != nil {
			httpx.WriteStoreErr(w, err, "failed to register subscription")
			return
		}

		// A fresh row has created_at == updated_at; a refresh bumps only
		// updated_at.
		status := http.StatusOK
		if sub.CreatedAt.Equal(sub.UpdatedAt) {
			status = http.StatusCreated
		}
		httpx.WriteJSON(w, status, toResponse(sub))
	}
}

func DeleteHandler(deps app.Deps) http.HandlerFunc {
	type request struct {
		Endpoint string `json:"endpoint"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
			httpx.WriteErr(w, http.StatusBadRequest, "endpoint is required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.DeleteSubscriptionByEndpoint(ctx, deps.DB, user.ID, req.Endpoint); err != nil {
			httpx.WriteStoreErr(w, err, "failed to remove subscription")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteAllHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := authmw.FromContext(r.Context())
		if !ok {
			httpx.WriteErr(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.DeleteAllSubscriptions(ctx, deps.DB, user.ID); err != nil {
			httpx.WriteStoreErr(w, err, "failed to remove subscriptions")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteDeadHandler serves the notification worker's terminal-failure
// callback: the push gateway declared the endpoint gone, so the row is
// removed regardless of owner. Gated by the service token.
func DeleteDeadHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint, err := url.PathUnescape(chi.URLParam(r, "endpoint"))
		if err != nil || endpoint == "" {
			httpx.WriteErr(w, http.StatusBadRequest, "invalid endpoint")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()

		if err := store.DeleteSubscriptionByEndpointGlobal(ctx, deps.DB, endpoint); err != nil {
			httpx.WriteStoreErr(w, err, "failed to remove subscription")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
