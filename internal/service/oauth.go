package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunzafer/fastsvelte/internal/auth"
	"github.com/harunzafer/fastsvelte/internal/cache"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// IdentityProvider runs the authorization-code flow. *oauth.Google implements it.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.OAuthIdentity, error)
}

// OAuthService logs users in through an external identity provider.
type OAuthService struct {
	provider IdentityProvider
	state    *auth.StateSigner
	nonces   cache.Claimer
	tx       repository.Transactor
	users    repository.UserRepository
	accounts repository.OAuthAccountRepository
	sessions *SessionManager
	events   EventPublisher
	b2b      bool
	logger   *slog.Logger
}

// NewOAuthService builds the service. nonces may be nil, in which case a
// state token can be replayed until it expires.
func NewOAuthService(
	provider IdentityProvider,
	state *auth.StateSigner,
	nonces cache.Claimer,
	tx repository.Transactor,
	users repository.UserRepository,
	accounts repository.OAuthAccountRepository,
	sessions *SessionManager,
	events EventPublisher,
	b2b bool,
	logger *slog.Logger,
) *OAuthService {
	if nonces == nil {
		nonces = cache.Noop{}
	}
	return &OAuthService{
		provider: provider,
		state:    state,
		nonces:   nonces,
		tx:       tx,
		users:    users,
		accounts: accounts,
		sessions: sessions,
		events:   events,
		b2b:      b2b,
		logger:   logger,
	}
}

// LoginURL returns the provider consent URL with a fresh state token.
func (s *OAuthService) LoginURL() (string, error) {
	state, err := s.state.Generate()
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// Callback validates state, exchanges the code, resolves the user and
// creates a session. It returns the user and the raw session token.
func (s *OAuthService) Callback(ctx context.Context, code, state string) (*domain.User, string, error) {
	claims, err := s.state.Validate(state)
	if err != nil {
		return nil, "", err
	}

	first, err := s.nonces.Claim(ctx, claims.Nonce)
	if err != nil {
		return nil, "", fmt.Errorf("claim state nonce: %w", err)
	}
	if !first {
		return nil, "", fmt.Errorf("%w: replayed", domain.ErrOAuthState)
	}

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", err
	}

	u, err := s.ResolveOrCreateUser(ctx, identity)
	if err != nil {
		return nil, "", err
	}
	if !u.CanAuthenticate() {
		return nil, "", domain.Unauthenticated()
	}

	_, token, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.Int64("user_id", u.ID),
		slog.String("provider", identity.ProviderID),
	)
	return u, token, nil
}

// ResolveOrCreateUser maps an identity to a local user. An existing link
// wins over an email match, and an email match is linked rather than
// duplicated. Only a provider-verified email may link or create.
func (s *OAuthService) ResolveOrCreateUser(ctx context.Context, id *domain.OAuthIdentity) (*domain.User, error) {
	userID, err := s.accounts.GetUserID(ctx, id.ProviderID, id.Subject)
	switch {
	case err == nil:
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load linked user: %w", err)
		}
		return u, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("lookup oauth account: %w", err)
	}

	if !id.EmailVerified {
		s.logger.WarnContext(ctx, "rejected unverified provider email", slog.String("provider", id.ProviderID))
		return nil, domain.EmailNotVerified()
	}

	existing, err := s.users.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		return s.link(ctx, existing, id)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	return s.create(ctx, id)
}

func (s *OAuthService) link(ctx context.Context, u *domain.User, id *domain.OAuthIdentity) (*domain.User, error) {
	err := s.accounts.Link(ctx, &domain.OAuthAccount{
		ProviderID:     id.ProviderID,
		ProviderUserID: id.Subject,
		UserID:         u.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("link oauth account: %w", err)
	}

	if u.AvatarURL == nil && id.Picture != "" {
		if err := s.users.SetAvatarIfEmpty(ctx, u.ID, id.Picture); err != nil {
			s.logger.WarnContext(ctx, "failed to backfill avatar",
				slog.Int64("user_id", u.ID),
				slog.String("error", err.Error()),
			)
		} else {
			u.AvatarURL = &id.Picture
		}
	}

	s.logger.InfoContext(ctx, "linked oauth account",
		slog.Int64("user_id", u.ID),
		slog.String("provider", id.ProviderID),
	)
	return u, nil
}

func (s *OAuthService) create(ctx context.Context, id *domain.OAuthIdentity) (*domain.User, error) {
	u := &domain.User{
		Email:         id.Email,
		FirstName:     optionalString(id.GivenName),
		LastName:      optionalString(id.FamilyName),
		AvatarURL:     optionalString(id.Picture),
		Role:          domain.SignupRole(s.b2b),
		IsActive:      true,
		EmailVerified: true,
	}
	link := &domain.OAuthAccount{ProviderID: id.ProviderID, ProviderUserID: id.Subject}

	if err := createAccount(ctx, s.tx, u, link); err != nil {
		return nil, err
	}

	if err := s.events.PublishUserRegistered(ctx, u, id.ProviderID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.Int64("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "created user from oauth identity",
		slog.Int64("user_id", u.ID),
		slog.Int64("organization_id", u.OrganizationID),
		slog.String("provider", id.ProviderID),
	)
	return u, nil
}
