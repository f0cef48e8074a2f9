package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/service"
	"github.com/harunzafer/fastsvelte/pkg/httputil"
	"github.com/harunzafer/fastsvelte/pkg/pagination"
)

// UserManager is implemented by *service.UserService.
type UserManager interface {
	UpdateProfile(ctx context.Context, actor *domain.AuthenticatedUser, in service.UpdateProfileInput) (*domain.User, error)
	List(ctx context.Context, p pagination.Params) (pagination.Page[domain.User], error)
	Suspend(ctx context.Context, id int64) error
	Activate(ctx context.Context, id int64) error
	LogoutAll(ctx context.Context, actor *domain.AuthenticatedUser, targetID int64) (int64, error)
}

// OnboardingStatusReader is implemented by *service.OnboardingService.
type OnboardingStatusReader interface {
	GetStatus(ctx context.Context, actor *domain.AuthenticatedUser) (domain.OnboardingStatus, error)
}

// UsageReporter is implemented by *service.QuotaService.
type UsageReporter interface {
	Usage(ctx context.Context, orgID int64) ([]domain.FeatureUsage, error)
}

// UserHandler handles profile, administration and usage endpoints.
type UserHandler struct {
	users      UserManager
	onboarding OnboardingStatusReader
	usage      UsageReporter
	logger     *slog.Logger
}

func NewUserHandler(users UserManager, onboarding OnboardingStatusReader, usage UsageReporter, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, onboarding: onboarding, usage: usage, logger: logger}
}

type statusResponse struct {
	FirstSeenStatus domain.OnboardingStatus `json:"first_seen_status"`
}

type logoutAllResponse struct {
	SessionsRevoked int64 `json:"sessions_revoked"`
}

// Me handles GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: actor(r).User})
}

// Status handles GET /users/status
func (h *UserHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.onboarding.GetStatus(r.Context(), actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: statusResponse{FirstSeenStatus: status}})
}

// UpdateMe handles POST /users/me/update
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), actor(r), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: u})
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: page})
}

// Suspend handles POST /users/{id}/suspend
func (h *UserHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.users.Suspend(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activate handles POST /users/{id}/activate
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.users.Activate(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /users/{id}/logout-all
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	n, err := h.users.LogoutAll(r.Context(), actor(r), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: logoutAllResponse{SessionsRevoked: n}})
}

// Usage handles GET /usage
func (h *UserHandler) Usage(w http.ResponseWriter, r *http.Request) {
	report, err := h.usage.Usage(r.Context(), actor(r).OrganizationID())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}
