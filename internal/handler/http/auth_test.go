package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/service"
)

func TestSignup_Success(t *testing.T) {
	s := newTestServer(t)
	s.auth.On("Signup", mock.Anything, service.SignupInput{
		Email:     "new@example.com",
		Password:  "correct-horse",
		FirstName: strPtr("Ada"),
	}).Return(&domain.User{ID: 42}, nil)

	rr := s.do(http.MethodPost, "/auth/signup", map[string]any{
		"email":      "new@example.com",
		"password":   "correct-horse",
		"first_name": "Ada",
	}, "")

	require.Equal(t, http.StatusCreated, rr.Code)
	var got userIDResponse
	decodeData(t, rr, &got)
	assert.Equal(t, int64(42), got.UserID)
	assert.Nil(t, sessionCookie(rr), "signup must not log the user in")
}

func TestSignup_ValidationError(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/auth/signup", map[string]any{
		"email":    "not-an-email",
		"password": "short",
	}, "")

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "email")
	assert.Contains(t, env.Error.Fields, "password")
	s.auth.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	s.auth.On("Signup", mock.Anything, mock.AnythingOfType("service.SignupInput")).
		Return(nil, domain.EmailAlreadyExists("taken@example.com"))

	rr := s.do(http.MethodPost, "/auth/signup", map[string]any{
		"email":    "taken@example.com",
		"password": "long-enough-password",
	}, "")

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "EMAIL_ALREADY_EXISTS", errorCode(t, rr))
}

func TestSignup_RejectsNonJSONContentType(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	s := newTestServer(t)
	s.auth.On("Login", mock.Anything, "ada@example.com", "correct-horse").
		Return(&domain.User{ID: 7}, "raw-token", nil)

	rr := s.do(http.MethodPost, "/auth/login", LoginRequest{Email: "ada@example.com", Password: "correct-horse"}, "")

	require.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookie(rr)
	require.NotNil(t, c)
	assert.Equal(t, "raw-token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)

	var got userIDResponse
	decodeData(t, rr, &got)
	assert.Equal(t, int64(7), got.UserID)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid credentials", domain.InvalidCredentials(), http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"email not verified", domain.EmailNotVerified(), http.StatusForbidden, "EMAIL_NOT_VERIFIED"},
		{"store down", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.auth.On("Login", mock.Anything, "ada@example.com", "pw").Return(nil, "", tt.err)

			rr := s.do(http.MethodPost, "/auth/login", LoginRequest{Email: "ada@example.com", Password: "pw"}, "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rr))
			assert.Nil(t, sessionCookie(rr))
		})
	}
}

func TestLogout_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodPost, "/auth/logout", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	s.auth.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
}

func TestLogout_ClearsCookie(t *testing.T) {
	s := newTestServer(t)
	s.auth.On("Logout", mock.Anything, memberActor).Return(nil)

	rr := s.do(http.MethodPost, "/auth/logout", nil, "tok-member")

	require.Equal(t, http.StatusNoContent, rr.Code)
	c := sessionCookie(rr)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestGoogleLogin_Redirects(t *testing.T) {
	s := newTestServer(t)
	s.oauth.On("LoginURL").Return("https://accounts.google.com/o/oauth2/auth?state=abc", nil)

	rr := s.do(http.MethodGet, "/auth/google/login", nil, "")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=abc", rr.Header().Get("Location"))
}

func TestGoogleCallback_Success(t *testing.T) {
	s := newTestServer(t)
	s.oauth.On("Callback", mock.Anything, "the-code", "the-state").
		Return(&domain.User{ID: 9}, "raw-token", nil)

	rr := s.do(http.MethodGet, "/auth/google/callback?code=the-code&state=the-state", nil, "")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, testWebURL+"/dashboard", rr.Header().Get("Location"))
	c := sessionCookie(rr)
	require.NotNil(t, c)
	assert.Equal(t, "raw-token", c.Value)
}

func TestGoogleCallback_FailuresRedirectToLogin(t *testing.T) {
	t.Run("provider error param", func(t *testing.T) {
		s := newTestServer(t)

		rr := s.do(http.MethodGet, "/auth/google/callback?error=access_denied", nil, "")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, testWebURL+"/login?error=oauth_failed", rr.Header().Get("Location"))
		s.oauth.AssertNotCalled(t, "Callback", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad state", func(t *testing.T) {
		s := newTestServer(t)
		s.oauth.On("Callback", mock.Anything, "c", "forged").Return(nil, "", domain.ErrOAuthState)

		rr := s.do(http.MethodGet, "/auth/google/callback?code=c&state=forged", nil, "")

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, testWebURL+"/login?error=oauth_failed", rr.Header().Get("Location"))
		assert.Nil(t, sessionCookie(rr))
	})

	t.Run("unverified email", func(t *testing.T) {
		s := newTestServer(t)
		s.oauth.On("Callback", mock.Anything, "c", "s").Return(nil, "", domain.EmailNotVerified())

		rr := s.do(http.MethodGet, "/auth/google/callback?code=c&state=s", nil, "")

		assert.Equal(t, testWebURL+"/login?error=oauth_failed", rr.Header().Get("Location"))
	})
}
