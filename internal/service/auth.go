package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// AuthOptions selects tenancy and verification policy.
type AuthOptions struct {
	B2B                      bool
	RequireEmailVerification bool
}

// AuthService implements password signup, login and logout.
type AuthService struct {
	tx       repository.Transactor
	users    repository.UserRepository
	sessions *SessionManager
	events   EventPublisher
	opts     AuthOptions
	logger   *slog.Logger
}

func NewAuthService(
	tx repository.Transactor,
	users repository.UserRepository,
	sessions *SessionManager,
	events EventPublisher,
	opts AuthOptions,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		tx:       tx,
		users:    users,
		sessions: sessions,
		events:   events,
		opts:     opts,
		logger:   logger,
	}
}

// SignupInput holds the parameters for a password signup.
type SignupInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Signup creates an organization and its first user. The email is checked
// before the transaction so duplicate signups do not consume sequence ids;
// a racing duplicate is still caught by the unique index.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, domain.EmailAlreadyExists(email)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Email:         email,
		PasswordHash:  &hash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Role:          domain.SignupRole(s.opts.B2B),
		IsActive:      true,
		EmailVerified: !s.opts.RequireEmailVerification,
	}
	if err := createAccount(ctx, s.tx, u, nil); err != nil {
		return nil, err
	}

	if err := s.events.PublishUserRegistered(ctx, u, "password"); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user signed up",
		slog.Int64("user_id", u.ID),
		slog.Int64("organization_id", u.OrganizationID),
		slog.String("role", u.Role.String()),
	)
	return u, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming spends one password verification so unknown emails take
// as long to reject as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("timing-equalizer-password")
	})
	_ = auth.VerifyPassword(dummyHash, password)
}

// Login checks credentials and creates a session. It returns the user and
// the raw session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = domain.NormalizeEmail(email)

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		equalizeTiming(password)
		return nil, "", domain.InvalidCredentials()
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}

	if u.PasswordHash == nil || !auth.VerifyPassword(*u.PasswordHash, password) || !u.CanAuthenticate() {
		return nil, "", domain.InvalidCredentials()
	}
	if s.opts.RequireEmailVerification && !u.EmailVerified {
		return nil, "", domain.EmailNotVerified()
	}

	_, token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", u.ID))
	return u, token, nil
}

// Logout invalidates the caller's current session.
func (s *AuthService) Logout(ctx context.Context, actor *domain.AuthenticatedUser) error {
	return s.sessions.Invalidate(ctx, actor.SessionID)
}
