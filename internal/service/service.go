// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// EventPublisher emits domain events. *event.Producer implements it.
type EventPublisher interface {
	Enabled() bool
	PublishUserRegistered(ctx context.Context, u *domain.User, method string) error
	PublishOrganizationFirstSeen(ctx context.Context, orgID, userID int64) error
	PublishSubscriptionChanged(ctx context.Context, op *domain.OrganizationPlan) error
}

// createAccount creates an organization, its first user and, when link is
// set, the user's OAuth account in one transaction.
func createAccount(ctx context.Context, tr repository.Transactor, u *domain.User, link *domain.OAuthAccount) error {
	uow, err := tr.Begin(ctx)
	if err != nil {
		return domain.SignupFailed(err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	org, err := uow.Organizations().Create(ctx, domain.DefaultOrganizationName(u.Email))
	if err != nil {
		return domain.SignupFailed(fmt.Errorf("create organization: %w", err))
	}

	u.OrganizationID = org.ID
	if err := uow.Users().Create(ctx, u); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return domain.EmailAlreadyExists(u.Email)
		}
		return domain.SignupFailed(fmt.Errorf("create user: %w", err))
	}

	if link != nil {
		link.UserID = u.ID
		if err := uow.OAuthAccounts().Link(ctx, link); err != nil {
			return domain.SignupFailed(fmt.Errorf("link oauth account: %w", err))
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return domain.SignupFailed(err)
	}
	return nil
}

// authorizeSameOrg allows system admins and members of the target's organization.
func authorizeSameOrg(actor *domain.AuthenticatedUser, target *domain.User) error {
	if actor.Role().AtLeast(domain.RoleSystemAdmin) || actor.OrganizationID() == target.OrganizationID {
		return nil
	}
	return domain.AccessDenied()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
