package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/billing"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/service"
	"github.com/harunzafer/fastsvelte/pkg/health"
	"github.com/harunzafer/fastsvelte/pkg/httputil"
	"github.com/harunzafer/fastsvelte/pkg/pagination"
)

// ============================================================================
// Mocks
// ============================================================================

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) Signup(ctx context.Context, in service.SignupInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.User), args.String(1), args.Error(2)
}

func (m *mockAuth) Logout(ctx context.Context, actor *domain.AuthenticatedUser) error {
	args := m.Called(ctx, actor)
	return args.Error(0)
}

type mockOAuth struct {
	mock.Mock
}

func (m *mockOAuth) LoginURL() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockOAuth) Callback(ctx context.Context, code, state string) (*domain.User, string, error) {
	args := m.Called(ctx, code, state)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*domain.User), args.String(1), args.Error(2)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) UpdateProfile(ctx context.Context, actor *domain.AuthenticatedUser, in service.UpdateProfileInput) (*domain.User, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUsers) List(ctx context.Context, p pagination.Params) (pagination.Page[domain.User], error) {
	args := m.Called(ctx, p)
	return args.Get(0).(pagination.Page[domain.User]), args.Error(1)
}

func (m *mockUsers) Suspend(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) Activate(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) LogoutAll(ctx context.Context, actor *domain.AuthenticatedUser, targetID int64) (int64, error) {
	args := m.Called(ctx, actor, targetID)
	return args.Get(0).(int64), args.Error(1)
}

type mockOnboarding struct {
	mock.Mock
}

func (m *mockOnboarding) GetStatus(ctx context.Context, actor *domain.AuthenticatedUser) (domain.OnboardingStatus, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(domain.OnboardingStatus), args.Error(1)
}

type mockUsage struct {
	mock.Mock
}

func (m *mockUsage) Usage(ctx context.Context, orgID int64) ([]domain.FeatureUsage, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeatureUsage), args.Error(1)
}

type mockNotes struct {
	mock.Mock
}

func (m *mockNotes) note(args mock.Arguments) (*domain.Note, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Note), args.Error(1)
}

func (m *mockNotes) Create(ctx context.Context, actor *domain.AuthenticatedUser, in service.CreateNoteInput) (*domain.Note, error) {
	return m.note(m.Called(ctx, actor, in))
}

func (m *mockNotes) Get(ctx context.Context, actor *domain.AuthenticatedUser, id int64) (*domain.Note, error) {
	return m.note(m.Called(ctx, actor, id))
}

func (m *mockNotes) List(ctx context.Context, actor *domain.AuthenticatedUser, p pagination.Params) (pagination.Page[domain.Note], error) {
	args := m.Called(ctx, actor, p)
	return args.Get(0).(pagination.Page[domain.Note]), args.Error(1)
}

func (m *mockNotes) Update(ctx context.Context, actor *domain.AuthenticatedUser, id int64, in service.UpdateNoteInput) (*domain.Note, error) {
	return m.note(m.Called(ctx, actor, id, in))
}

func (m *mockNotes) Delete(ctx context.Context, actor *domain.AuthenticatedUser, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockNotes) Summarize(ctx context.Context, actor *domain.AuthenticatedUser, id int64) (*domain.Note, error) {
	return m.note(m.Called(ctx, actor, id))
}

type mockSubscriptions struct {
	mock.Mock
}

func (m *mockSubscriptions) ManageURL(ctx context.Context, actor *domain.AuthenticatedUser) (string, error) {
	args := m.Called(ctx, actor)
	return args.String(0), args.Error(1)
}

func (m *mockSubscriptions) CheckoutURL(ctx context.Context, actor *domain.AuthenticatedUser, in service.CheckoutInput) (string, error) {
	args := m.Called(ctx, actor, in)
	return args.String(0), args.Error(1)
}

func (m *mockSubscriptions) HandleWebhook(ctx context.Context, ev *billing.Event) error {
	return m.Called(ctx, ev).Error(0)
}

type mockWebhooks struct {
	mock.Mock
}

func (m *mockWebhooks) Parse(payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Event), args.Error(1)
}

type mockReaper struct {
	mock.Mock
}

func (m *mockReaper) DeleteOldSessions(ctx context.Context, days int) (int64, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(int64), args.Error(1)
}

// fakeSessions resolves fixed tokens to actors.
type fakeSessions map[string]*domain.AuthenticatedUser

func (f fakeSessions) Validate(_ context.Context, token string) (*domain.AuthenticatedUser, error) {
	if a, ok := f[token]; ok {
		return a, nil
	}
	return nil, domain.Unauthenticated()
}

// ============================================================================
// Test Helpers
// ============================================================================

const (
	testWebURL     = "https://app.example.com"
	testCronSecret = "cron-secret"
	testCookieName = "fs_session"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testActor(id, orgID int64, role domain.Role) *domain.AuthenticatedUser {
	return &domain.AuthenticatedUser{
		User: &domain.User{
			ID:             id,
			Email:          fmt.Sprintf("user%d@example.com", id),
			Role:           role,
			OrganizationID: orgID,
			IsActive:       true,
			EmailVerified:  true,
		},
		SessionID: "sess",
	}
}

var (
	readonlyActor = testActor(1, 10, domain.RoleReadonly)
	memberActor   = testActor(2, 10, domain.RoleMember)
	orgAdminActor = testActor(3, 10, domain.RoleOrgAdmin)
	sysAdminActor = testActor(4, 20, domain.RoleSystemAdmin)
)

type testServer struct {
	handler    http.Handler
	auth       *mockAuth
	oauth      *mockOAuth
	users      *mockUsers
	onboarding *mockOnboarding
	usage      *mockUsage
	notes      *mockNotes
	subs       *mockSubscriptions
	webhooks   *mockWebhooks
	reaper     *mockReaper
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		auth:       new(mockAuth),
		oauth:      new(mockOAuth),
		users:      new(mockUsers),
		onboarding: new(mockOnboarding),
		usage:      new(mockUsage),
		notes:      new(mockNotes),
		subs:       new(mockSubscriptions),
		webhooks:   new(mockWebhooks),
		reaper:     new(mockReaper),
	}
	cookies := auth.NewCookieManager(testCookieName, time.Hour, false)
	sessions := fakeSessions{
		"tok-readonly": readonlyActor,
		"tok-member":   memberActor,
		"tok-orgadmin": orgAdminActor,
		"tok-sysadmin": sysAdminActor,
	}

	s.handler = NewRouter(RouterConfig{
		Auth:           NewAuthHandler(s.auth, s.oauth, cookies, testWebURL, discardLogger),
		Users:          NewUserHandler(s.users, s.onboarding, s.usage, discardLogger),
		Notes:          NewNoteHandler(s.notes, discardLogger),
		Billing:        NewBillingHandler(s.subs, s.webhooks, discardLogger),
		Cron:           NewCronHandler(s.reaper, 30, discardLogger),
		Health:         health.NewHandler(),
		Sessions:       sessions,
		Cookies:        cookies,
		CORSOrigins:    []string{testWebURL},
		CronSecret:     testCronSecret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, discardLogger)

	t.Cleanup(func() {
		s.auth.AssertExpectations(t)
		s.oauth.AssertExpectations(t)
		s.users.AssertExpectations(t)
		s.onboarding.AssertExpectations(t)
		s.usage.AssertExpectations(t)
		s.notes.AssertExpectations(t)
		s.subs.AssertExpectations(t)
		s.webhooks.AssertExpectations(t)
		s.reaper.AssertExpectations(t)
	})
	return s
}

// do sends a request through the full router. A non-empty token is sent as
// the session cookie.
func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body: %s", rr.Body.String())
	return env
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, rr)
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rr)
	require.NotNil(t, env.Error, "body: %s", rr.Body.String())
	return env.Error.Code
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
