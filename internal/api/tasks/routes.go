package tasks

import (
	"github.com/go-chi/chi/v5"

	"taskpulse/internal/app"
)

// Routes mounts the user-facing task endpoints. The worker-facing
// reminder-sent route is mounted separately by the router with service
// auth.
func Routes(r chi.Router, deps app.Deps) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", CreateTaskHandler(deps))
		r.Get("/", ListTasksHandler(deps))

		r.Delete("/trash", EmptyTrashHandler(deps))

		r.Get("/{id}", GetTaskHandler(deps))
		r.Patch("/{id}", UpdateTaskHandler(deps))
		r.Delete("/{id}", SoftDeleteHandler(deps))
		r.Patch("/{id}/complete", ToggleCompleteHandler(deps))
		r.Post("/{id}/restore", RestoreHandler(deps))
		r.Delete("/{id}/permanent", PermanentDeleteHandler(deps))
	})
}
