package subscriptions

import (
	"github.com/go-chi/chi/v5"

	"taskpulse/internal/app"
)

// Routes mounts the user-facing subscription endpoints. DeleteDeadHandler
// is mounted separately by the router with service auth.
func Routes(r chi.Router, deps app.Deps) {
	r.Route("/push-subscriptions", func(r chi.Router) {
		r.Post("/", UpsertHandler(deps))
		r.Delete("/", DeleteHandler(deps))
		r.Delete("/all", DeleteAllHandler(deps))
	})
}
