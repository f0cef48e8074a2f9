package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
	"github.com/harunzafer/fastsvelte/pkg/logger"
)

// SessionManager creates, validates, slides and invalidates sessions.
type SessionManager struct {
	sessions  repository.SessionRepository
	users     repository.UserRepository
	maxAge    time.Duration
	threshold time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewSessionManager extends a session to now+maxAge whenever it is validated
// within threshold of its expiry.
func NewSessionManager(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	maxAge, threshold time.Duration,
	logger *slog.Logger,
) *SessionManager {
	return &SessionManager{
		sessions:  sessions,
		users:     users,
		maxAge:    maxAge,
		threshold: threshold,
		now:       time.Now,
		logger:    logger,
	}
}

// Create persists a new session for userID and returns it with the raw
// token. The raw token is not stored or logged anywhere.
func (m *SessionManager) Create(ctx context.Context, userID int64) (*domain.Session, string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	now := m.now().UTC()
	s := &domain.Session{
		ID:        auth.HashToken(token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}
	if err := m.sessions.Create(ctx, s); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	sessionsCreated.Inc()
	m.logger.DebugContext(ctx, "session created",
		slog.Int64("user_id", userID),
		logger.Redacted("session_id", s.ID),
	)
	return s, token, nil
}

// Validate resolves a raw token to the authenticated user. Every rejection
// returns the same UNAUTHORIZED error; the reason is only logged.
func (m *SessionManager) Validate(ctx context.Context, token string) (*domain.AuthenticatedUser, error) {
	if token == "" {
		return nil, m.reject(ctx, "missing", "")
	}

	id := auth.HashToken(token)
	s, err := m.sessions.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, m.reject(ctx, "unknown", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	now := m.now().UTC()
	if s.Expired(now) {
		return nil, m.reject(ctx, "expired", id)
	}

	if s.NeedsRefresh(now, m.threshold) {
		expires := now.Add(m.maxAge)
		if err := m.sessions.UpdateExpiry(ctx, id, expires); err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		s.ExpiresAt = expires
		sessionValidations.WithLabelValues("refreshed").Inc()
	}

	user, err := m.users.GetByID(ctx, s.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, m.reject(ctx, "user_missing", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if !user.CanAuthenticate() {
		return nil, m.reject(ctx, "user_inactive", id)
	}

	sessionValidations.WithLabelValues("ok").Inc()
	return &domain.AuthenticatedUser{User: user, SessionID: s.ID}, nil
}

func (m *SessionManager) reject(ctx context.Context, reason, id string) error {
	sessionValidations.WithLabelValues(reason).Inc()
	m.logger.DebugContext(ctx, "session rejected",
		slog.String("reason", reason),
		logger.Redacted("session_id", id),
	)
	return domain.Unauthenticated()
}

// Invalidate deletes one session. Unknown ids are not an error.
func (m *SessionManager) Invalidate(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// InvalidateAll logs a user out everywhere.
func (m *SessionManager) InvalidateAll(ctx context.Context, userID int64) (int64, error) {
	n, err := m.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("invalidate user sessions: %w", err)
	}
	m.logger.InfoContext(ctx, "invalidated all sessions",
		slog.Int64("user_id", userID),
		slog.Int64("count", n),
	)
	return n, nil
}

// DeleteOldSessions removes sessions created more than days ago, whether or
// not they have expired.
func (m *SessionManager) DeleteOldSessions(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, apperrors.InvalidInput("days must not be negative")
	}

	cutoff := m.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := m.sessions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old sessions: %w", err)
	}

	m.logger.InfoContext(ctx, "deleted old sessions",
		slog.Int64("count", n),
		slog.Time("cutoff", cutoff),
	)
	return n, nil
}
