package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/health"
	"github.com/harunzafer/fastsvelte/pkg/middleware"
)

const serviceName = "fastsvelte-api"

// RouterConfig carries the handlers and settings the router mounts.
type RouterConfig struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Notes   *NoteHandler
	Billing *BillingHandler
	Cron    *CronHandler
	Health  *health.Handler

	Sessions SessionValidator
	Cookies  *auth.CookieManager

	CORSOrigins    []string
	CronSecret     string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	requireSession := SessionAuth(cfg.Sessions, cfg.Cookies, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
			r.Use(ContentTypeJSON)
			r.Post("/signup", cfg.Auth.Signup)
			r.Post("/login", cfg.Auth.Login)
		})

		r.Get("/google/login", cfg.Auth.GoogleLogin)
		r.Get("/google/callback", cfg.Auth.GoogleCallback)

		r.With(requireSession).Post("/logout", cfg.Auth.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(requireSession)

		r.Route("/users", func(r chi.Router) {
			r.With(MinRole(domain.RoleReadonly)).Get("/me", cfg.Users.Me)
			r.With(MinRole(domain.RoleReadonly)).Get("/status", cfg.Users.Status)
			r.With(MinRole(domain.RoleMember)).Post("/me/update", cfg.Users.UpdateMe)
			r.With(MinRole(domain.RoleOrgAdmin)).Post("/{id}/logout-all", cfg.Users.LogoutAll)

			r.Group(func(r chi.Router) {
				r.Use(MinRole(domain.RoleSystemAdmin))
				r.Get("/", cfg.Users.List)
				r.Post("/{id}/suspend", cfg.Users.Suspend)
				r.Post("/{id}/activate", cfg.Users.Activate)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Use(MinRole(domain.RoleMember))
			r.Get("/", cfg.Notes.List)
			r.Post("/", cfg.Notes.Create)
			r.Get("/{id}", cfg.Notes.Get)
			r.Put("/{id}", cfg.Notes.Update)
			r.Delete("/{id}", cfg.Notes.Delete)
			r.Post("/{id}/summarize", cfg.Notes.Summarize)
		})

		r.With(MinRole(domain.RoleMember)).Get("/usage", cfg.Users.Usage)

		r.Route("/subscription", func(r chi.Router) {
			r.Use(MinRole(domain.RoleOrgAdmin))
			r.Post("/manage", cfg.Billing.Manage)
			r.Post("/checkout", cfg.Billing.Checkout)
		})
	})

	r.Post("/webhooks/stripe", cfg.Billing.StripeWebhook)
	r.With(CronAuth(cfg.CronSecret)).Post("/cron/delete-old-sessions", cfg.Cron.DeleteOldSessions)

	return r
}
