package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Feature keys stored in Plan.Features.
const (
	FeatureMaxNotes   = "max_notes"
	FeatureTokenLimit = "token_limit"
	FeatureEnableAI   = "enable_ai"
)

// Plan is a purchasable tier. Features holds raw JSON values so a
// misconfigured feature is detected at enforcement time.
type Plan struct {
	ID              int64                      `json:"id"`
	Name            string                     `json:"name"`
	Description     *string                    `json:"description,omitempty"`
	Features        map[string]json.RawMessage `json:"features"`
	IsDefault       bool                       `json:"is_default"`
	StripeProductID *string                    `json:"-"`
}

// Limit returns the integer value of a numeric feature. The raw JSON must be
// an integer literal that fits in int64; anything else is a configuration
// error.
func (p *Plan) Limit(feature string) (int64, error) {
	raw, ok := p.Features[feature]
	if !ok {
		return 0, InvalidPlanFeature(p.Name, feature, fmt.Errorf("feature not set"))
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, InvalidPlanFeature(p.Name, feature, err)
	}
	if v < 0 {
		return 0, InvalidPlanFeature(p.Name, feature, fmt.Errorf("value %d is negative", v))
	}
	return v, nil
}

// Enabled returns the value of a boolean feature.
func (p *Plan) Enabled(feature string) (bool, error) {
	raw, ok := p.Features[feature]
	if !ok {
		return false, InvalidPlanFeature(p.Name, feature, fmt.Errorf("feature not set"))
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, InvalidPlanFeature(p.Name, feature, err)
	}
	return v, nil
}

// NumericFeatures returns every feature whose value is an integer.
func (p *Plan) NumericFeatures() map[string]int64 {
	out := make(map[string]int64)
	for key := range p.Features {
		if v, err := p.Limit(key); err == nil {
			out[key] = v
		}
	}
	return out
}

// Subscription statuses that count as an active plan.
var activeStatuses = map[string]bool{
	"active":   true,
	"trialing": true,
	"past_due": true,
	"unpaid":   true,
}

// OrganizationPlan binds an organization to a plan. SubscriptionStartedAt is
// the permanent billing anchor and never changes after the first insert.
type OrganizationPlan struct {
	ID                    int64
	OrganizationID        int64
	PlanID                int64
	StripeSubscriptionID  *string
	SubscriptionStartedAt time.Time
	CurrentPeriodStartsAt *time.Time
	CurrentPeriodEndsAt   *time.Time
	Status                string
	EndedAt               *time.Time
}

// IsActive reports whether the subscription currently grants its plan.
func (op *OrganizationPlan) IsActive() bool {
	return op.EndedAt == nil && activeStatuses[op.Status]
}

// EffectivePlan is the plan used for quota decisions and its billing anchor.
type EffectivePlan struct {
	Plan   *Plan
	Anchor time.Time
}
