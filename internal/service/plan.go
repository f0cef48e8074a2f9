package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// PlanResolver maps an organization to the plan its quotas are measured against.
type PlanResolver struct {
	plans    repository.PlanRepository
	orgPlans repository.OrganizationPlanRepository
	orgs     repository.OrganizationRepository
}

func NewPlanResolver(
	plans repository.PlanRepository,
	orgPlans repository.OrganizationPlanRepository,
	orgs repository.OrganizationRepository,
) *PlanResolver {
	return &PlanResolver{plans: plans, orgPlans: orgPlans, orgs: orgs}
}

// EffectivePlan returns the organization's current plan and billing anchor.
// An organization without a subscription gets the default plan anchored at
// the organization's creation time. A canceled subscription falls back to the default plan but keeps
// its original anchor.
func (r *PlanResolver) EffectivePlan(ctx context.Context, orgID int64) (*domain.EffectivePlan, error) {
	current, err := r.orgPlans.GetCurrent(ctx, orgID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("load organization plan: %w", err)
	}

	if current != nil && current.IsActive() {
		plan, err := r.plans.GetByID(ctx, current.PlanID)
		if err != nil {
			return nil, fmt.Errorf("load plan %d: %w", current.PlanID, err)
		}
		return &domain.EffectivePlan{Plan: plan, Anchor: current.SubscriptionStartedAt}, nil
	}

	plan, err := r.plans.GetDefault(ctx)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.NoDefaultPlan()
	}
	if err != nil {
		return nil, fmt.Errorf("load default plan: %w", err)
	}

	if current != nil {
		return &domain.EffectivePlan{Plan: plan, Anchor: current.SubscriptionStartedAt}, nil
	}

	org, err := r.orgs.GetByID(ctx, orgID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.OrgNotFound(strconv.FormatInt(orgID, 10))
	}
	if err != nil {
		return nil, fmt.Errorf("load organization %d: %w", orgID, err)
	}
	return &domain.EffectivePlan{Plan: plan, Anchor: org.CreatedAt.UTC()}, nil
}

// HasActivePlan reports whether the organization holds a live subscription.
func (r *PlanResolver) HasActivePlan(ctx context.Context, orgID int64) (bool, error) {
	current, err := r.orgPlans.GetCurrent(ctx, orgID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load organization plan: %w", err)
	}
	return current.IsActive(), nil
}
