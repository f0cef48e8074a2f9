package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// onboardingGrace is how long provisioning may run before the status is
// reported as an error.
const onboardingGrace = 20 * time.Second

// Provisioner subscribes an organization to its starting plan.
type Provisioner interface {
	ProvisionFreeSubscriptionIfNeeded(ctx context.Context, orgID int64, u *domain.User) error
}

// OnboardingService runs the one-time setup of an organization the first
// time one of its users checks their status.
type OnboardingService struct {
	orgs        repository.OrganizationRepository
	users       repository.UserRepository
	resolver    *PlanResolver
	provisioner Provisioner
	events      EventPublisher
	now         func() time.Time
	logger      *slog.Logger
}

func NewOnboardingService(
	orgs repository.OrganizationRepository,
	users repository.UserRepository,
	resolver *PlanResolver,
	provisioner Provisioner,
	events EventPublisher,
	logger *slog.Logger,
) *OnboardingService {
	return &OnboardingService{
		orgs:        orgs,
		users:       users,
		resolver:    resolver,
		provisioner: provisioner,
		events:      events,
		now:         time.Now,
		logger:      logger,
	}
}

// GetStatus reports the onboarding state of the actor's organization,
// starting onboarding if it has never run.
func (s *OnboardingService) GetStatus(ctx context.Context, actor *domain.AuthenticatedUser) (domain.OnboardingStatus, error) {
	org, err := s.orgs.GetByID(ctx, actor.OrganizationID())
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", domain.OrgNotFound(strconv.FormatInt(actor.OrganizationID(), 10))
	}
	if err != nil {
		return "", fmt.Errorf("load organization: %w", err)
	}

	if org.FirstSeenAt == nil {
		if err := s.RunFirstSeen(ctx, org.ID, actor.User); err != nil {
			return "", err
		}
		return domain.OnboardingNotStarted, nil
	}

	active, err := s.resolver.HasActivePlan(ctx, org.ID)
	if err != nil {
		return "", err
	}
	switch {
	case active:
		return domain.OnboardingComplete, nil
	case s.now().Sub(*org.FirstSeenAt) > onboardingGrace:
		return domain.OnboardingError, nil
	default:
		return domain.OnboardingInProgress, nil
	}
}

// RunFirstSeen marks the organization as seen and starts provisioning. Only
// the caller that sets first_seen_at proceeds. Provisioning is handed to the
// event consumer when events are enabled and runs inline otherwise.
func (s *OnboardingService) RunFirstSeen(ctx context.Context, orgID int64, u *domain.User) error {
	marked, err := s.orgs.MarkFirstSeen(ctx, orgID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("mark first seen: %w", err)
	}
	if !marked {
		return nil
	}

	if s.events.Enabled() {
		err := s.events.PublishOrganizationFirstSeen(ctx, orgID, u.ID)
		if err == nil {
			return nil
		}
		s.logger.WarnContext(ctx, "publishing first_seen failed, provisioning inline",
			slog.Int64("organization_id", orgID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.complete(ctx, orgID, u); err != nil {
		s.logger.ErrorContext(ctx, "onboarding failed",
			slog.Int64("organization_id", orgID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// CompleteOnboarding provisions the organization's plan on behalf of userID.
// It is called by the organization.first_seen consumer.
func (s *OnboardingService) CompleteOnboarding(ctx context.Context, orgID, userID int64) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load onboarding user: %w", err)
	}
	return s.complete(ctx, orgID, u)
}

func (s *OnboardingService) complete(ctx context.Context, orgID int64, u *domain.User) error {
	if err := s.provisioner.ProvisionFreeSubscriptionIfNeeded(ctx, orgID, u); err != nil {
		return err
	}
	if err := s.orgs.MarkOnboardingComplete(ctx, orgID, s.now().UTC()); err != nil {
		return fmt.Errorf("mark onboarding complete: %w", err)
	}
	s.logger.InfoContext(ctx, "onboarding complete", slog.Int64("organization_id", orgID))
	return nil
}
