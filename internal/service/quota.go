package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/quota"
	"github.com/harunzafer/fastsvelte/internal/repository"
)

// QuotaService enforces per-organization feature limits over the current
// billing period.
//
// Callers check, act, then commit. The check and the commit are separate
// statements, so concurrent requests may overshoot a limit by one unit each.
type QuotaService struct {
	plans  *PlanResolver
	usage  repository.UsageRepository
	now    func() time.Time
	logger *slog.Logger
}

func NewQuotaService(plans *PlanResolver, usage repository.UsageRepository, logger *slog.Logger) *QuotaService {
	return &QuotaService{plans: plans, usage: usage, now: time.Now, logger: logger}
}

type quotaState struct {
	limit       int64
	used        int64
	periodStart time.Time
	periodEnd   time.Time
}

func (s *QuotaService) state(ctx context.Context, orgID int64, feature string) (*quotaState, error) {
	ep, err := s.plans.EffectivePlan(ctx, orgID)
	if err != nil {
		return nil, err
	}
	limit, err := ep.Plan.Limit(feature)
	if err != nil {
		return nil, err
	}

	start, end := quota.CurrentPeriod(ep.Anchor, s.now())
	used, err := s.usage.Get(ctx, orgID, feature, start)
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}
	return &quotaState{limit: limit, used: used, periodStart: start, periodEnd: end}, nil
}

// Check reports whether amount more units of feature fit in the current
// period. It never writes.
func (s *QuotaService) Check(ctx context.Context, orgID int64, feature string, amount int64) (bool, error) {
	st, err := s.state(ctx, orgID, feature)
	if err != nil {
		return false, err
	}
	return st.used+amount <= st.limit, nil
}

// Require is Check that returns QUOTA_EXCEEDED instead of false.
func (s *QuotaService) Require(ctx context.Context, orgID int64, feature string, amount int64) error {
	st, err := s.state(ctx, orgID, feature)
	if err != nil {
		return err
	}
	if st.used+amount > st.limit {
		quotaDenials.WithLabelValues(feature).Inc()
		s.logger.InfoContext(ctx, "quota exceeded",
			slog.Int64("organization_id", orgID),
			slog.String("feature", feature),
			slog.Int64("used", st.used),
			slog.Int64("limit", st.limit),
		)
		return domain.QuotaExceeded(feature, st.limit)
	}
	return nil
}

// Commit records amount units of usage. A negative amount frees quota; the
// stored count never drops below zero.
func (s *QuotaService) Commit(ctx context.Context, orgID int64, feature string, amount int64) error {
	ep, err := s.plans.EffectivePlan(ctx, orgID)
	if err != nil {
		return err
	}
	if _, err := ep.Plan.Limit(feature); err != nil {
		return err
	}

	start, end := quota.CurrentPeriod(ep.Anchor, s.now())
	if _, err := s.usage.Add(ctx, orgID, feature, start, end, amount); err != nil {
		return fmt.Errorf("commit usage: %w", err)
	}
	return nil
}

// FeatureEnabled reads a boolean feature of the effective plan.
func (s *QuotaService) FeatureEnabled(ctx context.Context, orgID int64, feature string) (bool, error) {
	ep, err := s.plans.EffectivePlan(ctx, orgID)
	if err != nil {
		return false, err
	}
	return ep.Plan.Enabled(feature)
}

// Usage reports every numeric feature of the effective plan with its usage
// in the current period, ordered by feature key.
func (s *QuotaService) Usage(ctx context.Context, orgID int64) ([]domain.FeatureUsage, error) {
	ep, err := s.plans.EffectivePlan(ctx, orgID)
	if err != nil {
		return nil, err
	}

	start, end := quota.CurrentPeriod(ep.Anchor, s.now())
	limits := ep.Plan.NumericFeatures()
	out := make([]domain.FeatureUsage, 0, len(limits))
	for feature, limit := range limits {
		used, err := s.usage.Get(ctx, orgID, feature, start)
		if err != nil {
			return nil, fmt.Errorf("read usage for %s: %w", feature, err)
		}
		out = append(out, domain.FeatureUsage{
			Feature:     feature,
			Limit:       limit,
			Used:        used,
			PeriodStart: start,
			PeriodEnd:   end,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Feature < out[j].Feature })
	return out, nil
}
