package api

import (
	"context"
	"net/http"
	"time"

	"taskpulse/internal/api/httpx"
	"taskpulse/internal/store"
)

const Version = "1.0.0"

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"version": Version})
	}
}

func ReadyHandler(db store.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			httpx.WriteErr(w, http.StatusServiceUnavailable, "db connection not initialized")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			httpx.WriteErr(w, http.StatusServiceUnavailable, "db not ready")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ready": true})
	}
}
