package auth

import (
	"net/http"
	"time"
)

// CookieManager writes and clears the session cookie.
type CookieManager struct {
	Name     string
	MaxAge   time.Duration
	SameSite http.SameSite
}

// NewCookieManager uses SameSite=Lax in development so the OAuth redirect
// back from the provider carries the cookie, and Strict everywhere else.
func NewCookieManager(name string, maxAge time.Duration, development bool) *CookieManager {
	ss := http.SameSiteStrictMode
	if development {
		ss = http.SameSiteLaxMode
	}
	return &CookieManager{Name: name, MaxAge: maxAge, SameSite: ss}
}

func (c *CookieManager) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: c.SameSite,
	})
}

func (c *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: c.SameSite,
	})
}

// Token returns the session token from r, or "".
func (c *CookieManager) Token(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
