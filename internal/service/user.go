package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	"github.com/harunzafer/fastsvelte/pkg/pagination"
)

// UserService handles profile and account administration.
type UserService struct {
	users    repository.UserRepository
	sessions *SessionManager
	logger   *slog.Logger
}

func NewUserService(users repository.UserRepository, sessions *SessionManager, logger *slog.Logger) *UserService {
	return &UserService{users: users, sessions: sessions, logger: logger}
}

// UpdateProfileInput holds the editable profile fields.
type UpdateProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,maxrunes=100"`
	LastName  *string `json:"last_name" validate:"omitempty,maxrunes=100"`
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.AuthenticatedUser, in UpdateProfileInput) (*domain.User, error) {
	u, err := s.users.UpdateProfile(ctx, actor.UserID(), in.FirstName, in.LastName)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, p pagination.Params) (pagination.Page[domain.User], error) {
	items, total, err := s.users.List(ctx, p.Limit(), p.Offset())
	if err != nil {
		return pagination.Page[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return pagination.NewPage(items, total, p), nil
}

// Suspend deactivates a user and ends all of their sessions.
func (s *UserService) Suspend(ctx context.Context, id int64) error {
	if err := s.users.SetActive(ctx, id, false); err != nil {
		return err
	}
	if _, err := s.sessions.InvalidateAll(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user suspended", slog.Int64("user_id", id))
	return nil
}

func (s *UserService) Activate(ctx context.Context, id int64) error {
	if err := s.users.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user activated", slog.Int64("user_id", id))
	return nil
}

// LogoutAll ends every session of the target user. The actor must be a
// system admin or belong to the target's organization.
func (s *UserService) LogoutAll(ctx context.Context, actor *domain.AuthenticatedUser, targetID int64) (int64, error) {
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return 0, err
	}
	if err := authorizeSameOrg(actor, target); err != nil {
		return 0, err
	}
	return s.sessions.InvalidateAll(ctx, targetID)
}
