package domain

import "time"

// Session is a persisted login. ID is the SHA-256 hex digest of the bearer
// token; the token itself is never stored.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// NeedsRefresh reports whether the session is within threshold of expiring.
func (s *Session) NeedsRefresh(now time.Time, threshold time.Duration) bool {
	return !s.ExpiresAt.After(now.Add(threshold))
}
