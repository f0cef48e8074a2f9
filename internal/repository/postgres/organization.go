package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/database"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

const organizationColumns = `id, name, stripe_customer_id, first_seen_at, onboarding_complete_at, created_at`

// OrganizationRepository implements repository.OrganizationRepository using PostgreSQL.
type OrganizationRepository struct {
	pool database.DBTX
}

func NewOrganizationRepository(pool database.DBTX) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

func (r *OrganizationRepository) Create(ctx context.Context, name string) (*domain.Organization, error) {
	query := `INSERT INTO organization (name) VALUES ($1) RETURNING ` + organizationColumns
	return scanOrganization(r.pool.QueryRow(ctx, query, name))
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organization WHERE id = $1`
	return scanOrganization(r.pool.QueryRow(ctx, query, id))
}

func (r *OrganizationRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organization WHERE stripe_customer_id = $1`
	return scanOrganization(r.pool.QueryRow(ctx, query, customerID))
}

func (r *OrganizationRepository) SetStripeCustomerID(ctx context.Context, id int64, customerID string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE organization SET stripe_customer_id = $1 WHERE id = $2`, customerID, id)
	if err != nil {
		return fmt.Errorf("set stripe customer: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("organization", strconv.FormatInt(id, 10))
	}
	return nil
}

func (r *OrganizationRepository) MarkFirstSeen(ctx context.Context, id int64, at time.Time) (bool, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE organization SET first_seen_at = $1 WHERE id = $2 AND first_seen_at IS NULL`, at, id)
	if err != nil {
		return false, fmt.Errorf("mark first seen: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *OrganizationRepository) MarkOnboardingComplete(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE organization SET onboarding_complete_at = $1 WHERE id = $2 AND onboarding_complete_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("mark onboarding complete: %w", err)
	}
	return nil
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var o domain.Organization
	err := row.Scan(&o.ID, &o.Name, &o.StripeCustomerID, &o.FirstSeenAt, &o.OnboardingCompleteAt, &o.CreatedAt)
	if err != nil {
		return nil, scanErr(err, "scan organization")
	}
	return &o, nil
}
