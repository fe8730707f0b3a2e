// Package handler exposes the HTTP API: account and session management,
// newsletter CRUD, the send pipeline and the public unsubscribe flow.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/briefly/internal/cookie"
	"github.com/dmitrymomot/briefly/internal/mailer"
	"github.com/dmitrymomot/briefly/internal/newsletter"
	"github.com/dmitrymomot/briefly/internal/oauth"
	"github.com/dmitrymomot/briefly/internal/session"
	"github.com/dmitrymomot/briefly/internal/storage"
	"github.com/dmitrymomot/briefly/internal/store"
)

// Handler bundles the API's dependencies. Avatars and Google are optional;
// their routes return 404 when the backing service is not configured.
type Handler struct {
	store      *store.Store
	sessions   session.Store
	cookies    *cookie.Manager
	mail       *mailer.Mailer
	pipeline   *newsletter.Service
	google     *oauth.GoogleProvider
	avatars    *storage.AvatarStorage
	log        *slog.Logger
	sessionTTL time.Duration
	checks     []HealthCheck
}

// HealthCheck pings one dependency for the liveness endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config carries the handler's dependencies.
type Config struct {
	Store      *store.Store
	Sessions   session.Store
	Cookies    *cookie.Manager
	Mailer     *mailer.Mailer
	Pipeline   *newsletter.Service
	Google     *oauth.GoogleProvider // nil when Google login is not configured
	Avatars    *storage.AvatarStorage
	Log        *slog.Logger
	SessionTTL time.Duration
	Checks     []HealthCheck
}

// New creates the Handler.
func New(cfg Config) *Handler {
	return &Handler{
		store:      cfg.Store,
		sessions:   cfg.Sessions,
		cookies:    cfg.Cookies,
		mail:       cfg.Mailer,
		pipeline:   cfg.Pipeline,
		google:     cfg.Google,
		avatars:    cfg.Avatars,
		log:        cfg.Log,
		sessionTTL: cfg.SessionTTL,
		checks:     cfg.Checks,
	}
}

// Router builds the chi router with all API routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(withSession(h.cookies, h.sessions))

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.signup)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/verify-email", h.verifyEmail)
		r.Post("/verify-email/resend", h.resendVerification)
		r.Post("/password-reset/request", h.requestPasswordReset)
		r.Post("/password-reset/verify", h.verifyPasswordReset)
		r.Post("/password-reset/confirm", h.confirmPasswordReset)

		if h.google != nil {
			r.Get("/google", h.googleLogin)
			r.Get("/google/callback", h.googleCallback)
		}
	})

	r.Route("/user", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/me", h.me)
		r.Patch("/profile", h.updateProfile)
		r.Post("/password", h.changePassword)
		r.Delete("/", h.deleteAccount)

		if h.avatars != nil {
			r.Post("/avatar", h.uploadAvatar)
		}
	})

	r.Route("/newsletters", func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/", h.createNewsletter)
		r.Get("/", h.listNewsletters)
		r.Get("/{id}", h.getNewsletter)
		r.Delete("/{id}", h.deleteNewsletter)
		r.Post("/{id}/send", h.sendNewsletter)
		r.Get("/{id}/preview", h.previewNewsletter)
		r.Post("/{id}/active", h.toggleNewsletter)
	})

	// Unsubscribe is reached from email links; no auth.
	r.Get("/unsubscribe/validate", h.validateUnsubscribe)
	r.Post("/unsubscribe", h.unsubscribe)

	return r
}

// health pings every registered dependency. Any failure reports 503 with the
// failing dependencies named; details stay in the log.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			deps[c.Name] = "down"
			h.log.ErrorContext(r.Context(), "health check failed",
				slog.String("dependency", c.Name), slog.Any("error", err))
			continue
		}
		deps[c.Name] = "up"
	}

	body := map[string]any{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	respondJSON(w, status, body)
}
