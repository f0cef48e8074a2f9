package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/httputil"
	"github.com/harunzafer/fastsvelte/pkg/logger"
)

// ContentTypeJSON rejects request bodies that declare a non-JSON Content-Type.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SessionValidator resolves a session token. *service.SessionManager implements it.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*domain.AuthenticatedUser, error)
}

type actorKey struct{}

// ActorFromContext returns the authenticated user stored by SessionAuth.
func ActorFromContext(ctx context.Context) (*domain.AuthenticatedUser, bool) {
	a, ok := ctx.Value(actorKey{}).(*domain.AuthenticatedUser)
	return a, ok
}

// WithActor stores the authenticated user in ctx.
func WithActor(ctx context.Context, a *domain.AuthenticatedUser) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// SessionAuth validates the session cookie and stores the caller in the
// request context. The request logger is re-enriched with the caller's ids.
func SessionAuth(sessions SessionValidator, cookies *auth.CookieManager, base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := sessions.Validate(r.Context(), cookies.Token(r))
			if err != nil {
				httputil.WriteError(w, r, err, base)
				return
			}

			ctx := WithActor(r.Context(), actor)
			ctx = logger.WithIdentity(ctx, actor.UserID(), actor.OrganizationID())
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MinRole allows only callers whose role is at least required. It must be
// mounted after SessionAuth.
func MinRole(required domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, r, domain.Unauthenticated(), nil)
				return
			}
			if !actor.Role().AtLeast(required) {
				httputil.WriteError(w, r, domain.AccessDenied(), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CronSecretHeader authenticates scheduler calls.
const CronSecretHeader = "X-Cron-Secret"

// CronAuth requires the X-Cron-Secret header to equal secret. An empty
// secret rejects every request.
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(CronSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				httputil.WriteError(w, r, domain.AccessDenied(), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// actor returns the caller for handlers mounted behind SessionAuth.
func actor(r *http.Request) *domain.AuthenticatedUser {
	a, _ := ActorFromContext(r.Context())
	return a
}
