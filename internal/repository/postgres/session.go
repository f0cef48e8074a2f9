package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/database"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
type SessionRepository struct {
	pool database.DBTX
}

func NewSessionRepository(pool database.DBTX) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) (err error) {
	query := `INSERT INTO session (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`

	ctx, end := database.TraceQuery(ctx, "CreateSession", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (_ *domain.Session, err error) {
	query := `SELECT id, user_id, created_at, expires_at FROM session WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetSession", query)
	defer func() { end(err) }()

	var s domain.Session
	if err = r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, scanErr(err, "scan session")
	}
	return &s, nil
}

func (r *SessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) (err error) {
	query := `UPDATE session SET expires_at = $1 WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "RefreshSession", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, expiresAt, id); err != nil {
		return fmt.Errorf("update session expiry: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM session WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM session WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return ct.RowsAffected(), nil
}

// DeleteOlderThan removes sessions by age alone. A session still inside its
// sliding window is deleted once it was created before cutoff.
func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM session WHERE created_at < $1`

	ct, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old sessions: %w", err)
	}
	return ct.RowsAffected(), nil
}
