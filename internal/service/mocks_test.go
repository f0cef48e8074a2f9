package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/harunzafer/fastsvelte/internal/billing"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mock Session Repository ---

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	args := m.Called(ctx, id, expiresAt)
	return args.Error(0)
}

func (m *mockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionRepository) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id int64, firstName, lastName *string) (*domain.User, error) {
	args := m.Called(ctx, id, firstName, lastName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) SetAvatarIfEmpty(ctx context.Context, id int64, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

func (m *mockUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// --- Mock OAuth Account Repository ---

type mockOAuthAccountRepository struct {
	mock.Mock
}

func (m *mockOAuthAccountRepository) GetUserID(ctx context.Context, providerID, providerUserID string) (int64, error) {
	args := m.Called(ctx, providerID, providerUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOAuthAccountRepository) Link(ctx context.Context, a *domain.OAuthAccount) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

// --- Mock Organization Repository ---

type mockOrganizationRepository struct {
	mock.Mock
}

func (m *mockOrganizationRepository) Create(ctx context.Context, name string) (*domain.Organization, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *mockOrganizationRepository) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *mockOrganizationRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.Organization, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *mockOrganizationRepository) SetStripeCustomerID(ctx context.Context, id int64, customerID string) error {
	args := m.Called(ctx, id, customerID)
	return args.Error(0)
}

func (m *mockOrganizationRepository) MarkFirstSeen(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockOrganizationRepository) MarkOnboardingComplete(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// --- Mock Plan Repositories ---

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *mockPlanRepository) GetDefault(ctx context.Context) (*domain.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *mockPlanRepository) GetByStripeProductID(ctx context.Context, productID string) (*domain.Plan, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

type mockOrganizationPlanRepository struct {
	mock.Mock
}

func (m *mockOrganizationPlanRepository) GetCurrent(ctx context.Context, orgID int64) (*domain.OrganizationPlan, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationPlan), args.Error(1)
}

func (m *mockOrganizationPlanRepository) UpsertSubscription(ctx context.Context, op *domain.OrganizationPlan) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *mockOrganizationPlanRepository) EndSubscription(ctx context.Context, subscriptionID, status string, endedAt time.Time) error {
	args := m.Called(ctx, subscriptionID, status, endedAt)
	return args.Error(0)
}

// --- Mock Usage Repository ---

type mockUsageRepository struct {
	mock.Mock
}

func (m *mockUsageRepository) Get(ctx context.Context, orgID int64, feature string, periodStart time.Time) (int64, error) {
	args := m.Called(ctx, orgID, feature, periodStart)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageRepository) Add(ctx context.Context, orgID int64, feature string, periodStart, periodEnd time.Time, amount int64) (int64, error) {
	args := m.Called(ctx, orgID, feature, periodStart, periodEnd, amount)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Note Repository ---

type mockNoteRepository struct {
	mock.Mock
}

func (m *mockNoteRepository) Create(ctx context.Context, n *domain.Note) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockNoteRepository) GetByID(ctx context.Context, userID, id int64) (*domain.Note, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Note, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Note), args.Int(1), args.Error(2)
}

func (m *mockNoteRepository) Update(ctx context.Context, userID, id int64, upd domain.NoteUpdate) (*domain.Note, error) {
	args := m.Called(ctx, userID, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *mockNoteRepository) Delete(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockNoteRepository) SetSummary(ctx context.Context, userID, id int64, summary string) error {
	args := m.Called(ctx, userID, id, summary)
	return args.Error(0)
}

// --- Mock Transactor ---

// mockTransactor hands out a unit of work backed by the given mocks.
type mockTransactor struct {
	mock.Mock
	uow *mockUnitOfWork
}

func (m *mockTransactor) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return m.uow, nil
}

type mockUnitOfWork struct {
	mock.Mock
	users    *mockUserRepository
	orgs     *mockOrganizationRepository
	accounts *mockOAuthAccountRepository
}

func (m *mockUnitOfWork) Users() repository.UserRepository                 { return m.users }
func (m *mockUnitOfWork) Organizations() repository.OrganizationRepository { return m.orgs }
func (m *mockUnitOfWork) OAuthAccounts() repository.OAuthAccountRepository { return m.accounts }

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newMockTransactor() (*mockTransactor, *mockUnitOfWork) {
	uow := &mockUnitOfWork{
		users:    &mockUserRepository{},
		orgs:     &mockOrganizationRepository{},
		accounts: &mockOAuthAccountRepository{},
	}
	return &mockTransactor{uow: uow}, uow
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
	enabled bool
}

func (m *mockPublisher) Enabled() bool { return m.enabled }

func (m *mockPublisher) PublishUserRegistered(ctx context.Context, u *domain.User, method string) error {
	args := m.Called(ctx, u, method)
	return args.Error(0)
}

func (m *mockPublisher) PublishOrganizationFirstSeen(ctx context.Context, orgID, userID int64) error {
	args := m.Called(ctx, orgID, userID)
	return args.Error(0)
}

func (m *mockPublisher) PublishSubscriptionChanged(ctx context.Context, op *domain.OrganizationPlan) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

// --- Mock Billing Gateway ---

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCustomer(ctx context.Context, name, email string, orgID int64) (string, error) {
	args := m.Called(ctx, name, email, orgID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) ListActivePrices(ctx context.Context, productID string) ([]billing.Price, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Price), args.Error(1)
}

func (m *mockGateway) CreateSubscription(ctx context.Context, customerID, priceID string, orgID int64) (string, error) {
	args := m.Called(ctx, customerID, priceID, orgID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) BillingPortalURL(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CheckoutURL(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	args := m.Called(ctx, customerID, priceID, successURL, cancelURL)
	return args.String(0), args.Error(1)
}

// --- Fixtures ---

func strPtr(s string) *string { return &s }

func testActor(userID, orgID int64, role domain.Role) *domain.AuthenticatedUser {
	return &domain.AuthenticatedUser{
		User: &domain.User{
			ID:             userID,
			Email:          "ada@example.com",
			Role:           role,
			OrganizationID: orgID,
			IsActive:       true,
		},
		SessionID: "session-hash",
	}
}
