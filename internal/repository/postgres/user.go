package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/database"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

const userColumns = `id, email, password_hash, first_name, last_name, avatar_url, role,
	organization_id, is_active, email_verified, deleted_at, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool database.DBTX
}

func NewUserRepository(pool database.DBTX) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user and fills in the generated id and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO "user" (email, password_hash, first_name, last_name, avatar_url, role, organization_id, is_active, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		u.Email,
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.AvatarURL,
		u.Role.String(),
		u.OrganizationID,
		u.IsActive,
		u.EmailVerified,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM "user" WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// List returns a page of users ordered by id and the total count.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM "user" WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM "user" WHERE deleted_at IS NULL ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName *string) (*domain.User, error) {
	query := `
		UPDATE "user"
		SET first_name = COALESCE($1, first_name),
		    last_name = COALESCE($2, last_name),
		    updated_at = now()
		WHERE id = $3 AND deleted_at IS NULL
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, firstName, lastName, id))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) SetAvatarIfEmpty(ctx context.Context, id int64, url string) error {
	query := `UPDATE "user" SET avatar_url = $1, updated_at = now() WHERE id = $2 AND avatar_url IS NULL`
	if _, err := r.pool.Exec(ctx, query, url, id); err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	return nil
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ct, err := r.pool.Exec(ctx, `UPDATE "user" SET is_active = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`, active, id)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.AvatarURL,
		&role,
		&u.OrganizationID,
		&u.IsActive,
		&u.EmailVerified,
		&u.DeletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, scanErr(err, "scan user")
	}

	if u.Role, err = domain.ParseRole(role); err != nil {
		return nil, fmt.Errorf("user %d: %w", u.ID, err)
	}
	return &u, nil
}
