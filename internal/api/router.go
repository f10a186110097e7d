package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"taskpulse/internal/api/reminders"
	"taskpulse/internal/api/subscriptions"
	"taskpulse/internal/api/tasks"
	"taskpulse/internal/app"
	authmw "taskpulse/internal/auth"
)

func NewRouter(deps app.Deps) chi.Router {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		// In production, you'd want these:
		// IsDevelopment: false,
		// STSSeconds: 31536000,
		// STSIncludeSubdomains: true,
	})

	// Global middleware
	r.Use(func(next http.Handler) http.Handler {
		return secureMiddleware.Handler(next)
	})
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.CleanPath)

	// Global rate limit: 100 requests per minute per IP
	r.Use(httprate.LimitByIP(100, 1*time.Minute))

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())
		r.Get("/ready", ReadyHandler(deps.DB))
		r.Get("/version", VersionHandler())

		// Trusted service-to-service routes: the notification worker's
		// mark-sent and dead-subscription callbacks, and the external
		// cron binding that drives a scheduler tick.
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireService(deps.Cfg.ServiceToken))

			r.Patch("/internal/tasks/{id}/reminder-sent", tasks.MarkReminderSentHandler(deps))
			r.Delete("/internal/push-subscriptions/{endpoint}", subscriptions.DeleteDeadHandler(deps))
			r.Post("/reminders/binding", reminders.BindingHandler(deps))
		})

		// Everything in here requires a valid user token
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(deps.Cfg.JWTSecret))

			subscriptions.Routes(r, deps)
			tasks.Routes(r, deps)
		})
	})

	return r
}
