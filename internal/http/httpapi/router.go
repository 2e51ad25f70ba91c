package httpapi

import (
	"net/http"
	"time"

	"photorestore/internal/http/handlers"
	"photorestore/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App, resolver middleware.IdentityResolver) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	// Health & docs
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	// Routes that reach the identity backend are limited per client IP
	// before any credential is looked at.
	ipLimit := middleware.RateLimit(app.Config.IPRateLimitPerMin, time.Minute)

	r.With(ipLimit).Get("/auth/callback", app.AuthCallback)

	r.Route("/api", func(r chi.Router) {
		r.Use(ipLimit)
		r.Get("/test-env", app.TestEnv)
		r.Post("/auth/verify-token", app.VerifyToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity(resolver, app.Logger))
			r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
			r.Post("/restore", app.Restore)
			r.Post("/restore/{predictionID}/cancel", app.CancelRestore)
		})
	})

	return r
}
