package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harunzafer/fastsvelte/internal/domain"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, "abc", h)
}

func TestPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Secr3t-pass")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
	assert.True(t, VerifyPassword(hash, "Secr3t-pass"))
	assert.False(t, VerifyPassword(hash, "wrong"))

	other, err := HashPassword("Secr3t-pass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestVerifyPassword_Bcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("legacy"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(string(hash), "legacy"))
	assert.False(t, VerifyPassword(string(hash), "nope"))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	for _, h := range []string{"", "plain", "$argon2id$v=19$m=1$x$y", "$argon2i$v=19$m=1,t=1,p=1$AAAA$AAAA", "$argon2id$v=19$m=1,t=1,p=1$!!$AAAA"} {
		assert.False(t, VerifyPassword(h, "pw"), h)
	}
}

func TestState_RoundTrip(t *testing.T) {
	s := NewStateSigner([]byte("state-secret"))

	token, err := s.Generate()
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.Nonce)
	assert.Equal(t, "oauth_state", claims.Purpose)
	assert.Equal(t, 10*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestState_Failures(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewStateSigner([]byte("state-secret"))
	s.now = func() time.Time { return now }

	valid, err := s.Generate()
	require.NoError(t, err)

	wrongPurpose, err := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		Nonce:   "n",
		Purpose: "password_reset",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}).SignedString([]byte("state-secret"))
	require.NoError(t, err)

	otherKey := NewStateSigner([]byte("another-secret"))
	otherKey.now = s.now
	forged, err := otherKey.Generate()
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		at     time.Time
		reason string
	}{
		{name: "missing", token: "", at: now, reason: "missing"},
		{name: "garbage", token: "not-a-jwt", at: now, reason: "malformed"},
		{name: "bad signature", token: forged, at: now, reason: "bad signature"},
		{name: "expired", token: valid, at: now.Add(11 * time.Minute), reason: "expired"},
		{name: "wrong purpose", token: wrongPurpose, at: now, reason: "purpose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.now = func() time.Time { return tt.at }
			_, err := s.Validate(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrOAuthState))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestCookieManager(t *testing.T) {
	dev := NewCookieManager("session_id", 24*time.Hour, true)
	assert.Equal(t, http.SameSiteLaxMode, dev.SameSite)

	prod := NewCookieManager("session_id", 24*time.Hour, false)
	rec := httptest.NewRecorder()
	prod.Set(rec, "tok")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "session_id", c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 86400, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "tok"})
	assert.Equal(t, "tok", prod.Token(req))
	assert.Equal(t, "", prod.Token(httptest.NewRequest(http.MethodGet, "/", nil)))

	rec = httptest.NewRecorder()
	prod.Clear(rec)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}
