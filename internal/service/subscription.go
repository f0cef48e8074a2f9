package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/harunzafer/fastsvelte/internal/billing"
	"github.com/harunzafer/fastsvelte/internal/cache"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// SubscriptionService connects organizations to payment-provider subscriptions.
type SubscriptionService struct {
	gateway  billing.Gateway
	orgs     repository.OrganizationRepository
	plans    repository.PlanRepository
	orgPlans repository.OrganizationPlanRepository
	resolver *PlanResolver
	seen     cache.Claimer
	events   EventPublisher
	b2b      bool
	webURL   string
	now      func() time.Time
	logger   *slog.Logger
}

// SubscriptionConfig carries the settings of a SubscriptionService.
type SubscriptionConfig struct {
	B2B        bool
	BaseWebURL string
}

func NewSubscriptionService(
	gateway billing.Gateway,
	orgs repository.OrganizationRepository,
	plans repository.PlanRepository,
	orgPlans repository.OrganizationPlanRepository,
	resolver *PlanResolver,
	seen cache.Claimer,
	events EventPublisher,
	cfg SubscriptionConfig,
	logger *slog.Logger,
) *SubscriptionService {
	if seen == nil {
		seen = cache.Noop{}
	}
	return &SubscriptionService{
		gateway:  gateway,
		orgs:     orgs,
		plans:    plans,
		orgPlans: orgPlans,
		resolver: resolver,
		seen:     seen,
		events:   events,
		b2b:      cfg.B2B,
		webURL:   cfg.BaseWebURL,
		now:      time.Now,
		logger:   logger,
	}
}

// ManageURL returns a billing portal session URL for the actor's organization.
func (s *SubscriptionService) ManageURL(ctx context.Context, actor *domain.AuthenticatedUser) (string, error) {
	org, err := s.loadOrg(ctx, actor.OrganizationID())
	if err != nil {
		return "", err
	}
	if org.StripeCustomerID == nil {
		return "", domain.StripeCustomerNotFound(org.ID)
	}
	return s.gateway.BillingPortalURL(ctx, *org.StripeCustomerID, s.webURL+"/billing")
}

// CheckoutInput selects the price to subscribe to.
type CheckoutInput struct {
	PriceID string `json:"price_id" validate:"notblank"`
}

// CheckoutURL returns a checkout session URL, creating the customer first
// if the organization has none.
func (s *SubscriptionService) CheckoutURL(ctx context.Context, actor *domain.AuthenticatedUser, in CheckoutInput) (string, error) {
	org, err := s.loadOrg(ctx, actor.OrganizationID())
	if err != nil {
		return "", err
	}
	customerID, err := s.ensureCustomer(ctx, org, actor.User)
	if err != nil {
		return "", err
	}
	return s.gateway.CheckoutURL(ctx, customerID, in.PriceID,
		s.webURL+"/billing?checkout=success", s.webURL+"/billing?checkout=canceled")
}

func (s *SubscriptionService) loadOrg(ctx context.Context, orgID int64) (*domain.Organization, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.OrgNotFound(strconv.FormatInt(orgID, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	return org, nil
}

func (s *SubscriptionService) ensureCustomer(ctx context.Context, org *domain.Organization, u *domain.User) (string, error) {
	if org.StripeCustomerID != nil {
		return *org.StripeCustomerID, nil
	}

	name := u.DisplayName()
	if s.b2b {
		name = org.Name
	}
	customerID, err := s.gateway.CreateCustomer(ctx, name, u.Email, org.ID)
	if err != nil {
		return "", err
	}
	if err := s.orgs.SetStripeCustomerID(ctx, org.ID, customerID); err != nil {
		return "", fmt.Errorf("store customer id: %w", err)
	}
	org.StripeCustomerID = &customerID

	s.logger.InfoContext(ctx, "created billing customer", slog.Int64("organization_id", org.ID))
	return customerID, nil
}

// HandleWebhook applies a verified webhook event. Redelivered events are
// skipped; a failed event is released so the provider's retry is processed.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, ev *billing.Event) error {
	first, err := s.seen.Claim(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("dedupe webhook: %w", err)
	}
	if !first {
		s.logger.DebugContext(ctx, "duplicate webhook event", slog.String("event_id", ev.ID))
		return nil
	}

	if err := s.applyEvent(ctx, ev); err != nil {
		if rerr := s.seen.Release(ctx, ev.ID); rerr != nil {
			s.logger.WarnContext(ctx, "failed to release webhook event", slog.String("error", rerr.Error()))
		}
		return err
	}
	return nil
}

func (s *SubscriptionService) applyEvent(ctx context.Context, ev *billing.Event) error {
	switch ev.Type {
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		return s.upsertSubscription(ctx, ev.Subscription)
	case billing.EventSubscriptionDeleted:
		return s.endSubscription(ctx, ev.Subscription)
	default:
		s.logger.DebugContext(ctx, "ignoring webhook event", slog.String("type", ev.Type))
		return nil
	}
}

func (s *SubscriptionService) upsertSubscription(ctx context.Context, sub *billing.Subscription) error {
	if sub == nil {
		return apperrors.InvalidInput("subscription event without subscription")
	}

	org, err := s.orgs.GetByStripeCustomerID(ctx, sub.CustomerID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.OrgNotFound(sub.CustomerID)
	}
	if err != nil {
		return fmt.Errorf("load organization: %w", err)
	}

	plan, err := s.plans.GetByStripeProductID(ctx, sub.ProductID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.PlanNotFound(sub.ProductID)
	}
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	op := &domain.OrganizationPlan{
		OrganizationID:        org.ID,
		PlanID:                plan.ID,
		StripeSubscriptionID:  &sub.ID,
		SubscriptionStartedAt: sub.StartedAt,
		CurrentPeriodStartsAt: sub.PeriodStart,
		CurrentPeriodEndsAt:   sub.PeriodEnd,
		Status:                sub.Status,
	}
	if err := s.orgPlans.UpsertSubscription(ctx, op); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription updated",
		slog.Int64("organization_id", org.ID),
		slog.String("plan", plan.Name),
		slog.String("status", sub.Status),
	)
	if err := s.events.PublishSubscriptionChanged(ctx, op); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish subscription.changed event", slog.String("error", err.Error()))
	}
	return nil
}

func (s *SubscriptionService) endSubscription(ctx context.Context, sub *billing.Subscription) error {
	if sub == nil {
		return apperrors.InvalidInput("subscription event without subscription")
	}

	endedAt := s.now().UTC()
	if sub.CanceledAt != nil {
		endedAt = *sub.CanceledAt
	}
	if err := s.orgPlans.EndSubscription(ctx, sub.ID, "canceled", endedAt); err != nil {
		return fmt.Errorf("end subscription: %w", err)
	}

	s.logger.InfoContext(ctx, "subscription canceled", slog.Time("ended_at", endedAt))
	return nil
}

// ProvisionFreeSubscriptionIfNeeded subscribes an organization without an
// active plan to the default plan. The default plan's price must be free;
// the resulting webhook records the organization plan.
func (s *SubscriptionService) ProvisionFreeSubscriptionIfNeeded(ctx context.Context, orgID int64, u *domain.User) error {
	active, err := s.resolver.HasActivePlan(ctx, orgID)
	if err != nil {
		return err
	}
	if active {
		return nil
	}

	plan, err := s.plans.GetDefault(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.NoDefaultPlan()
	}
	if err != nil {
		return fmt.Errorf("load default plan: %w", err)
	}
	if plan.StripeProductID == nil {
		return domain.PlanNotFound(plan.Name)
	}

	org, err := s.loadOrg(ctx, orgID)
	if err != nil {
		return err
	}
	customerID, err := s.ensureCustomer(ctx, org, u)
	if err != nil {
		return err
	}

	prices, err := s.gateway.ListActivePrices(ctx, *plan.StripeProductID)
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		return domain.PlanNotFound(plan.Name)
	}
	price := prices[0]
	if price.UnitAmount > 0 {
		return domain.DefaultPlanNotFree(plan.Name)
	}

	subID, err := s.gateway.CreateSubscription(ctx, customerID, price.ID, orgID)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "provisioned free subscription",
		slog.Int64("organization_id", orgID),
		slog.String("plan", plan.Name),
		slog.String("subscription_id", subID),
	)
	return nil
}
