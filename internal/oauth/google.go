// Package oauth implements the Google authorization-code flow and verifies
// the returned OpenID Connect id_token against Google's published keys.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/httpclient"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"

	exchangeTimeout = 10 * time.Second
	clockLeeway     = 30 * time.Second
)

var googleIssuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

// Config holds the Google client registration. The endpoint URLs default to
// Google's production endpoints when empty.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	JWKSURL      string
}

func (c *Config) setDefaults() {
	if c.AuthURL == "" {
		c.AuthURL = googleAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = googleTokenURL
	}
	if c.JWKSURL == "" {
		c.JWKSURL = googleJWKSURL
	}
}

// Google exchanges authorization codes and verifies id_tokens.
type Google struct {
	cfg    Config
	client httpclient.Doer
	keys   keyfunc.Keyfunc
	parser *jwt.Parser
}

// NewGoogle fetches Google's JWKS in the background for the lifetime of ctx.
func NewGoogle(ctx context.Context, cfg Config, client httpclient.Doer) (*Google, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("google client id must be set")
	}
	cfg.setDefaults()

	keys, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL})
	if err != nil {
		return nil, fmt.Errorf("init google JWKS: %w", err)
	}

	return &Google{
		cfg:    cfg,
		client: client,
		keys:   keys,
		parser: jwt.NewParser(
			jwt.WithAudience(cfg.ClientID),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockLeeway),
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		),
	}, nil
}

// AuthCodeURL returns the consent-screen URL carrying state.
func (g *Google) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	q.Set("access_type", "online")
	q.Set("prompt", "select_account")
	return g.cfg.AuthURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
}

// Exchange trades an authorization code for a verified identity.
func (g *Google) Exchange(ctx context.Context, code string) (*domain.OAuthIdentity, error) {
	if code == "" {
		return nil, errors.New("missing authorization code")
	}

	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)
	form.Set("redirect_uri", g.cfg.RedirectURI)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google token exchange: %w", httpclient.ParseResponseError(resp, "google"))
	}
	defer func() { _ = resp.Body.Close() }()

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode google token response: %w", err)
	}
	if tok.IDToken == "" {
		return nil, errors.New("google token response has no id_token")
	}
	return g.Verify(tok.IDToken)
}

// IDTokenClaims are the OpenID Connect claims Google puts in an id_token.
type IDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// Verify checks the id_token signature, audience, expiry and issuer.
func (g *Google) Verify(idToken string) (*domain.OAuthIdentity, error) {
	claims := &IDTokenClaims{}
	if _, err := g.parser.ParseWithClaims(idToken, claims, g.keys.Keyfunc); err != nil {
		return nil, fmt.Errorf("verify google id_token: %w", err)
	}
	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("verify google id_token: unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("verify google id_token: missing sub or email")
	}

	return &domain.OAuthIdentity{
		ProviderID:    domain.ProviderGoogle,
		Subject:       claims.Subject,
		Email:         domain.NormalizeEmail(claims.Email),
		EmailVerified: claims.EmailVerified,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
	}, nil
}
