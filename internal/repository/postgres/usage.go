package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/harunzafer/fastsvelte/pkg/database"
)

// UsageRepository implements repository.UsageRepository using PostgreSQL.
type UsageRepository struct {
	pool database.DBTX
}

func NewUsageRepository(pool database.DBTX) *UsageRepository {
	return &UsageRepository{pool: pool}
}

func (r *UsageRepository) Get(ctx context.Context, orgID int64, feature string, periodStart time.Time) (_ int64, err error) {
	query := `
		SELECT usage_count FROM org_usage
		WHERE organization_id = $1 AND feature_key = $2 AND period_start = $3`

	ctx, end := database.TraceQuery(ctx, "GetUsage", query)
	defer func() { end(err) }()

	var count int64
	err = r.pool.QueryRow(ctx, query, orgID, feature, periodStart).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage: %w", err)
	}
	return count, nil
}

// Add is a single upsert on (organization_id, feature_key, period_start), so
// concurrent callers serialize on the row and the count never drops below zero.
func (r *UsageRepository) Add(ctx context.Context, orgID int64, feature string, periodStart, periodEnd time.Time, amount int64) (_ int64, err error) {
	query := `
		INSERT INTO org_usage (organization_id, feature_key, usage_count, period_start, period_end)
		VALUES ($1, $2, GREATEST($3::bigint, 0), $4, $5)
		ON CONFLICT (organization_id, feature_key, period_start) DO UPDATE
		SET usage_count = GREATEST(org_usage.usage_count + $3::bigint, 0),
		    updated_at = now()
		RETURNING usage_count`

	ctx, end := database.TraceQuery(ctx, "AddUsage", query)
	defer func() { end(err) }()

	var count int64
	if err = r.pool.QueryRow(ctx, query, orgID, feature, amount, periodStart, periodEnd).Scan(&count); err != nil {
		return 0, fmt.Errorf("upsert usage: %w", err)
	}
	return count, nil
}
