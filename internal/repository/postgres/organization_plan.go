package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/database"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// OrganizationPlanRepository implements repository.OrganizationPlanRepository using PostgreSQL.
type OrganizationPlanRepository struct {
	pool database.DBTX
}

func NewOrganizationPlanRepository(pool database.DBTX) *OrganizationPlanRepository {
	return &OrganizationPlanRepository{pool: pool}
}

func (r *OrganizationPlanRepository) GetCurrent(ctx context.Context, orgID int64) (*domain.OrganizationPlan, error) {
	query := `
		SELECT id, organization_id, plan_id, stripe_subscription_id, subscription_started_at,
		       current_period_starts_at, current_period_ends_at, status, ended_at
		FROM organization_plan
		WHERE organization_id = $1
		ORDER BY subscription_started_at DESC, id DESC
		LIMIT 1`

	var op domain.OrganizationPlan
	err := r.pool.QueryRow(ctx, query, orgID).Scan(
		&op.ID,
		&op.OrganizationID,
		&op.PlanID,
		&op.StripeSubscriptionID,
		&op.SubscriptionStartedAt,
		&op.CurrentPeriodStartsAt,
		&op.CurrentPeriodEndsAt,
		&op.Status,
		&op.EndedAt,
	)
	if err != nil {
		return nil, scanErr(err, "scan organization plan")
	}
	return &op, nil
}

// UpsertSubscription keys on stripe_subscription_id. subscription_started_at
// is only written by the insert branch so the billing anchor never moves.
func (r *OrganizationPlanRepository) UpsertSubscription(ctx context.Context, op *domain.OrganizationPlan) error {
	query := `
		INSERT INTO organization_plan (
			organization_id, plan_id, stripe_subscription_id, subscription_started_at,
			current_period_starts_at, current_period_ends_at, status, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			current_period_starts_at = EXCLUDED.current_period_starts_at,
			current_period_ends_at = EXCLUDED.current_period_ends_at,
			status = EXCLUDED.status,
			updated_at = now()
		RETURNING id, subscription_started_at`

	err := r.pool.QueryRow(ctx, query,
		op.OrganizationID,
		op.PlanID,
		op.StripeSubscriptionID,
		op.SubscriptionStartedAt,
		op.CurrentPeriodStartsAt,
		op.CurrentPeriodEndsAt,
		op.Status,
	).Scan(&op.ID, &op.SubscriptionStartedAt)
	if err != nil {
		return fmt.Errorf("upsert organization plan: %w", err)
	}
	return nil
}

func (r *OrganizationPlanRepository) EndSubscription(ctx context.Context, subscriptionID, status string, endedAt time.Time) error {
	query := `
		UPDATE organization_plan
		SET status = $1, ended_at = $2, updated_at = now()
		WHERE stripe_subscription_id = $3`

	ct, err := r.pool.Exec(ctx, query, status, endedAt, subscriptionID)
	if err != nil {
		return fmt.Errorf("end subscription: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("subscription", subscriptionID)
	}
	return nil
}
