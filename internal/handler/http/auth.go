package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/service"
	"github.com/harunzafer/fastsvelte/pkg/httputil"
)

// PasswordAuthenticator is implemented by *service.AuthService.
type PasswordAuthenticator interface {
	Signup(ctx context.Context, in service.SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Logout(ctx context.Context, actor *domain.AuthenticatedUser) error
}

// OAuthLogin is implemented by *service.OAuthService.
type OAuthLogin interface {
	LoginURL() (string, error)
	Callback(ctx context.Context, code, state string) (*domain.User, string, error)
}

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	auth    PasswordAuthenticator
	oauth   OAuthLogin
	cookies *auth.CookieManager
	webURL  string
	logger  *slog.Logger
}

func NewAuthHandler(authSvc PasswordAuthenticator, oauth OAuthLogin, cookies *auth.CookieManager, webURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, oauth: oauth, cookies: cookies, webURL: webURL, logger: logger}
}

// --- Request DTOs ---

// SignupRequest is the JSON request body for password signup.
type SignupRequest struct {
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,min=8,max=128"`
	FirstName *string `json:"first_name" validate:"omitempty,maxrunes=100"`
	LastName  *string `json:"last_name" validate:"omitempty,maxrunes=100"`
}

// LoginRequest is the JSON request body for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userIDResponse struct {
	UserID int64 `json:"user_id"`
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	u, err := h.auth.Signup(r.Context(), service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: userIDResponse{UserID: u.ID}})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	u, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.Set(w, token)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: userIDResponse{UserID: u.ID}})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), actor(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// GoogleLogin handles GET /auth/google/login
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	target, err := h.oauth.LoginURL()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback. Every failure redirects
// to the login page with the same error code; the cause is only logged.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errParam := q.Get("error"); errParam != "" {
		h.logger.InfoContext(r.Context(), "oauth consent not granted", slog.String("error", errParam))
		http.Redirect(w, r, h.webURL+"/login?error=oauth_failed", http.StatusFound)
		return
	}

	u, token, err := h.oauth.Callback(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "oauth login failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.webURL+"/login?error=oauth_failed", http.StatusFound)
		return
	}

	h.cookies.Set(w, token)
	h.logger.DebugContext(r.Context(), "oauth login succeeded", slog.Int64("user_id", u.ID))
	http.Redirect(w, r, h.webURL+"/dashboard", http.StatusFound)
}
