package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gitea.jw6.us/james/shalendar/internal/api"
	"gitea.jw6.us/james/shalendar/internal/auth"
	"gitea.jw6.us/james/shalendar/internal/config"
	"gitea.jw6.us/james/shalendar/internal/http/csrf"
	httperrors "gitea.jw6.us/james/shalendar/internal/http/errors"
	"gitea.jw6.us/james/shalendar/internal/http/ratelimit"
	"gitea.jw6.us/james/shalendar/internal/logging"
	"gitea.jw6.us/james/shalendar/internal/metrics"
	"gitea.jw6.us/james/shalendar/internal/store"
)

// Deps are the pieces the router mounts.
type Deps struct {
	Config *config.Config
	Store  *store.Store
	Auth   *auth.Service
	API    *api.Handler
	Hub    http.Handler
	Logger zerolog.Logger
}

// NewRouter wires all HTTP routes. ctx bounds the rate limiter cleanup.
func NewRouter(ctx context.Context, d Deps) http.Handler {
	r := chi.NewRouter()

	// Login and registration: 5 requests per second, burst of 10
	authRateLimiter := ratelimit.NewIPRateLimiter(ctx, rate.Limit(5), 10, 5*time.Minute, d.Config.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := d.Store.HealthCheck(ctx); err != nil {
			http.Error(w, "unready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if d.Config.PrometheusEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(authRateLimiter.Middleware())
		d.API.PublicRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.RequireSession(httperrors.Write))
		if d.Hub != nil {
			r.Handle("/calendarHub", d.Hub)
		}
		r.Group(func(r chi.Router) {
			r.Use(csrf.Middleware(d.Config))
			d.API.Routes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.Message(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.Message(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
