package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunzafer/fastsvelte/internal/domain"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

var (
	orgCols  = []string{"id", "name", "stripe_customer_id", "first_seen_at", "onboarding_complete_at", "created_at"}
	planCols = []string{"id", "name", "description", "features", "is_default", "stripe_product_id"}
	opCols   = []string{
		"id", "organization_id", "plan_id", "stripe_subscription_id", "subscription_started_at",
		"current_period_starts_at", "current_period_ends_at", "status", "ended_at",
	}
)

func TestOrganizationRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrganizationRepository(mock)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO organization").
		WithArgs("ada@example.com's Organization").
		WillReturnRows(pgxmock.NewRows(orgCols).
			AddRow(int64(10), "ada@example.com's Organization", (*string)(nil), (*time.Time)(nil), (*time.Time)(nil), now))

	org, err := repo.Create(context.Background(), domain.DefaultOrganizationName("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), org.ID)
	assert.Nil(t, org.StripeCustomerID)
}

func TestOrganizationRepository_GetByStripeCustomerID_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrganizationRepository(mock)

	mock.ExpectQuery("WHERE stripe_customer_id").
		WithArgs("cus_x").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByStripeCustomerID(context.Background(), "cus_x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrganizationRepository_MarkFirstSeen(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrganizationRepository(mock)
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("first_seen_at IS NULL").
		WithArgs(at, int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("first_seen_at IS NULL").
		WithArgs(at, int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	first, err := repo.MarkFirstSeen(context.Background(), 10, at)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.MarkFirstSeen(context.Background(), 10, at)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestPlanRepository_GetDefault(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPlanRepository(mock)

	features := []byte(`{"max_notes": 10, "token_limit": 1000, "enable_ai": true}`)
	mock.ExpectQuery("WHERE is_default").
		WillReturnRows(pgxmock.NewRows(planCols).AddRow(int64(1), "Free", (*string)(nil), features, true, (*string)(nil)))

	p, err := repo.GetDefault(context.Background())
	require.NoError(t, err)
	assert.True(t, p.IsDefault)
	limit, err := p.Limit(domain.FeatureMaxNotes)
	require.NoError(t, err)
	assert.Equal(t, int64(10), limit)
	assert.Equal(t, json.RawMessage("true"), p.Features[domain.FeatureEnableAI])
}

func TestPlanRepository_GetByID_BadFeatures(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPlanRepository(mock)

	mock.ExpectQuery("FROM plan WHERE id").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(planCols).AddRow(int64(2), "Pro", (*string)(nil), []byte(`[1,2]`), false, strPtr("prod_1")))

	_, err := repo.GetByID(context.Background(), 2)
	assert.ErrorContains(t, err, "decode features")
}

func TestOrganizationPlanRepository_GetCurrent(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrganizationPlanRepository(mock)
	anchor := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM organization_plan").
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(opCols).AddRow(int64(3), int64(10), int64(2), strPtr("sub_1"), anchor,
			(*time.Time)(nil), (*time.Time)(nil), "active", (*time.Time)(nil)))

	op, err := repo.GetCurrent(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, anchor, op.SubscriptionStartedAt)
	assert.True(t, op.IsActive())
}

func TestOrganizationPlanRepository_UpsertSubscription_KeepsAnchor(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrganizationPlanRepository(mock)
	original := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	renewed := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	op := &domain.OrganizationPlan{
		OrganizationID:        10,
		PlanID:                2,
		StripeSubscriptionID:  strPtr("sub_1"),
		SubscriptionStartedAt: renewed,
		Status:                "active",
	}
	mock.ExpectQuery("ON CONFLICT \\(stripe_subscription_id\\) DO UPDATE").
		WithArgs(int64(10), int64(2), op.StripeSubscriptionID, renewed, (*time.Time)(nil), (*time.Time)(nil), "active").
		WillReturnRows(pgxmock.NewRows([]string{"id", "subscription_started_at"}).AddRow(int64(3), original))

	require.NoError(t, repo.UpsertSubscription(context.Background(), op))
	assert.Equal(t, original, op.SubscriptionStartedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationPlanRepository_EndSubscription_Unknown(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrganizationPlanRepository(mock)

	mock.ExpectExec("UPDATE organization_plan").
		WithArgs("canceled", pgxmock.AnyArg(), "sub_x").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.EndSubscription(context.Background(), "sub_x", "canceled", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUsageRepository_Get_NoRowIsZero(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUsageRepository(mock)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT usage_count FROM org_usage").
		WithArgs(int64(10), "max_notes", start).
		WillReturnError(pgx.ErrNoRows)

	n, err := repo.Get(context.Background(), 10, "max_notes", start)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUsageRepository_Add(t *testing.T) {
	mock := newMockPool(t)
	repo := NewUsageRepository(mock)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	mock.ExpectQuery("GREATEST\\(org_usage.usage_count").
		WithArgs(int64(10), "token_limit", int64(-5), start, end).
		WillReturnRows(pgxmock.NewRows([]string{"usage_count"}).AddRow(int64(0)))

	n, err := repo.Add(context.Background(), 10, "token_limit", start, end, -5)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthAccountRepository(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOAuthAccountRepository(mock)

	mock.ExpectQuery("SELECT user_id FROM oauth_account").
		WithArgs("google", "sub-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO oauth_account").
		WithArgs("google", "sub-1", int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err := repo.GetUserID(context.Background(), "google", "sub-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Link(context.Background(), &domain.OAuthAccount{ProviderID: "google", ProviderUserID: "sub-1", UserID: 42}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
