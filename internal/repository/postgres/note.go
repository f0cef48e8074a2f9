package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/database"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

const noteColumns = `id, user_id, title, content, summary, created_at, updated_at`

// NoteRepository implements repository.NoteRepository using PostgreSQL.
type NoteRepository struct {
	pool database.DBTX
}

func NewNoteRepository(pool database.DBTX) *NoteRepository {
	return &NoteRepository{pool: pool}
}

func (r *NoteRepository) Create(ctx context.Context, n *domain.Note) error {
	query := `
		INSERT INTO note (user_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query, n.UserID, n.Title, n.Content).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *NoteRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM note WHERE id = $1 AND user_id = $2`
	n, err := scanNote(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		return nil, noteNotFound(err, id)
	}
	return n, nil
}

func (r *NoteRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Note, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM note WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	query := `SELECT ` + noteColumns + ` FROM note WHERE user_id = $1 ORDER BY updated_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []domain.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate note rows: %w", err)
	}
	return notes, total, nil
}

func (r *NoteRepository) Update(ctx context.Context, userID, id int64, upd domain.NoteUpdate) (*domain.Note, error) {
	query := `
		UPDATE note
		SET title = COALESCE($1, title),
		    content = COALESCE($2, content),
		    updated_at = now()
		WHERE id = $3 AND user_id = $4
		RETURNING ` + noteColumns

	n, err := scanNote(r.pool.QueryRow(ctx, query, upd.Title, upd.Content, id, userID))
	if err != nil {
		return nil, noteNotFound(err, id)
	}
	return n, nil
}

func (r *NoteRepository) Delete(ctx context.Context, userID, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM note WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("note", strconv.FormatInt(id, 10))
	}
	return nil
}

func (r *NoteRepository) SetSummary(ctx context.Context, userID, id int64, summary string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE note SET summary = $1, updated_at = now() WHERE id = $2 AND user_id = $3`, summary, id, userID)
	if err != nil {
		return fmt.Errorf("set note summary: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("note", strconv.FormatInt(id, 10))
	}
	return nil
}

func scanNote(row pgx.Row) (*domain.Note, error) {
	var n domain.Note
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Summary, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, scanErr(err, "scan note")
	}
	return &n, nil
}

func noteNotFound(err error, id int64) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NotFound("note", strconv.FormatInt(id, 10))
	}
	return err
}
