// Package reminders exposes the scheduler tick as an HTTP entrypoint so
// an external cron binding can drive scans without running the standalone
// scheduler process. Both paths share scheduler.Tick, so they cannot
// drift.
package reminders

import (
	"context"
	"net/http"
	"time"

	"taskpulse/internal/api/httpx"
	"taskpulse/internal/app"
	"taskpulse/internal/scheduler"
)

// tickTimeout bounds one HTTP-driven scan. A scan that cannot finish in
// this window yields; the next binding call re-queries from scratch.
const tickTimeout = 55 * time.Second

func BindingHandler(deps app.Deps) http.HandlerFunc {
	type response struct {
		Status             string `json:"status"`
		RemindersPublished int    `json:"reminders_published"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), tickTimeout)
		defer cancel()

		n, err := scheduler.Tick(ctx, deps.DB, deps.Bus, time.Now().UTC(), deps.Log)
		if err != nil {
			deps.Log.Error().Err(err).Msg("binding-driven scheduler tick failed")
			httpx.WriteErr(w, http.StatusInternalServerError, "scheduler tick failed")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, response{Status: "ok", RemindersPublished: n})
	}
}
