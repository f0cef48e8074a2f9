package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/database"
)

const planColumns = `id, name, description, features, is_default, stripe_product_id`

// PlanRepository implements repository.PlanRepository using PostgreSQL.
type PlanRepository struct {
	pool database.DBTX
}

func NewPlanRepository(pool database.DBTX) *PlanRepository {
	return &PlanRepository{pool: pool}
}

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plan WHERE id = $1`
	return scanPlan(r.pool.QueryRow(ctx, query, id))
}

func (r *PlanRepository) GetDefault(ctx context.Context) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plan WHERE is_default ORDER BY id LIMIT 1`
	return scanPlan(r.pool.QueryRow(ctx, query))
}

func (r *PlanRepository) GetByStripeProductID(ctx context.Context, productID string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plan WHERE stripe_product_id = $1`
	return scanPlan(r.pool.QueryRow(ctx, query, productID))
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var (
		p        domain.Plan
		features []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &features, &p.IsDefault, &p.StripeProductID); err != nil {
		return nil, scanErr(err, "scan plan")
	}

	p.Features = map[string]json.RawMessage{}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, fmt.Errorf("decode features of plan %d: %w", p.ID, err)
		}
	}
	return &p, nil
}
