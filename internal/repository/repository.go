package repository

import (
	"context"
	"time"

	"github.com/harunzafer/fastsvelte/internal/domain"
)

// SessionRepository persists sessions keyed by token hash.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error

	// GetByID returns apperrors.ErrNotFound when no row matches.
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// Delete is idempotent.
	Delete(ctx context.Context, id string) error

	DeleteByUserID(ctx context.Context, userID int64) (int64, error)

	// DeleteOlderThan removes sessions created before cutoff, regardless of
	// expires_at.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	// Create inserts u and fills its ID and timestamps.
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)

	// UpdateProfile changes only the non-nil name fields.
	UpdateProfile(ctx context.Context, id int64, firstName, lastName *string) (*domain.User, error)

	// SetAvatarIfEmpty never overwrites an existing avatar.
	SetAvatarIfEmpty(ctx context.Context, id int64, url string) error

	SetActive(ctx context.Context, id int64, active bool) error
}

// OAuthAccountRepository links identity-provider subjects to users.
type OAuthAccountRepository interface {
	// GetUserID returns apperrors.ErrNotFound when no link exists.
	GetUserID(ctx context.Context, providerID, providerUserID string) (int64, error)

	// Link inserts the account; an existing link is left untouched.
	Link(ctx context.Context, a *domain.OAuthAccount) error
}

// OrganizationRepository defines organization persistence operations.
type OrganizationRepository interface {
	Create(ctx context.Context, name string) (*domain.Organization, error)
	GetByID(ctx context.Context, id int64) (*domain.Organization, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Organization, error)
	SetStripeCustomerID(ctx context.Context, id int64, customerID string) error

	// MarkFirstSeen sets first_seen_at if it is null and reports whether it did.
	MarkFirstSeen(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkOnboardingComplete(ctx context.Context, id int64, at time.Time) error
}

// PlanRepository reads plan definitions.
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Plan, error)
	GetDefault(ctx context.Context) (*domain.Plan, error)
	GetByStripeProductID(ctx context.Context, productID string) (*domain.Plan, error)
}

// OrganizationPlanRepository tracks which plan an organization is on.
type OrganizationPlanRepository interface {
	// GetCurrent returns the row with the latest subscription_started_at.
	GetCurrent(ctx context.Context, orgID int64) (*domain.OrganizationPlan, error)

	// UpsertSubscription inserts or updates by stripe_subscription_id. The
	// stored subscription_started_at is never changed by an update.
	UpsertSubscription(ctx context.Context, op *domain.OrganizationPlan) error

	EndSubscription(ctx context.Context, subscriptionID, status string, endedAt time.Time) error
}

// UsageRepository is the per-period feature usage ledger.
type UsageRepository interface {
	// Get returns 0 when no row exists for the period.
	Get(ctx context.Context, orgID int64, feature string, periodStart time.Time) (int64, error)

	// Add atomically adds amount (which may be negative) to the period's
	// counter, flooring the stored value at zero, and returns the new count.
	Add(ctx context.Context, orgID int64, feature string, periodStart, periodEnd time.Time, amount int64) (int64, error)
}

// NoteRepository defines note persistence. Every lookup is scoped to the owner.
type NoteRepository interface {
	Create(ctx context.Context, n *domain.Note) error
	GetByID(ctx context.Context, userID, id int64) (*domain.Note, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Note, int, error)
	Update(ctx context.Context, userID, id int64, upd domain.NoteUpdate) (*domain.Note, error)
	Delete(ctx context.Context, userID, id int64) error
	SetSummary(ctx context.Context, userID, id int64, summary string) error
}

// UnitOfWork is a transaction-scoped set of repositories. Callers defer
// Rollback immediately after Begin; Rollback after Commit is a no-op.
type UnitOfWork interface {
	Users() UserRepository
	Organizations() OrganizationRepository
	OAuthAccounts() OAuthAccountRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transactor starts units of work.
type Transactor interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
