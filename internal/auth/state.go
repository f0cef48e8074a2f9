package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/harunzafer/fastsvelte/internal/domain"
)

const (
	statePurpose = "oauth_state"
	StateTTL     = 10 * time.Minute
)

// StateClaims is the payload of an OAuth state token.
type StateClaims struct {
	Nonce   string `json:"nonce"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// StateSigner issues and validates stateless HS256 OAuth state tokens.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

func NewStateSigner(secret []byte) *StateSigner {
	return &StateSigner{secret: secret, now: time.Now}
}

// Generate returns a signed state token valid for ten minutes.
func (s *StateSigner) Generate() (string, error) {
	now := s.now()
	claims := StateClaims{
		Nonce:   uuid.NewString(),
		Purpose: statePurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Validate checks signature, expiry and purpose. Every failure wraps
// domain.ErrOAuthState with the specific reason.
func (s *StateSigner) Validate(token string) (*StateClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing", domain.ErrOAuthState)
	}

	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: expired", domain.ErrOAuthState)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("%w: bad signature", domain.ErrOAuthState)
	case err != nil:
		return nil, fmt.Errorf("%w: malformed: %v", domain.ErrOAuthState, err)
	}

	if claims.Purpose != statePurpose {
		return nil, fmt.Errorf("%w: purpose %q", domain.ErrOAuthState, claims.Purpose)
	}
	if claims.Nonce == "" {
		return nil, fmt.Errorf("%w: missing nonce", domain.ErrOAuthState)
	}
	return claims, nil
}
