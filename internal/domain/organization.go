package domain

import (
	"fmt"
	"time"
)

// Organization is the billing and data-isolation tenant.
type Organization struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	StripeCustomerID     *string    `json:"-"`
	FirstSeenAt          *time.Time `json:"first_seen_at,omitempty"`
	OnboardingCompleteAt *time.Time `json:"onboarding_complete_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// DefaultOrganizationName is the name given to an organization created at signup.
func DefaultOrganizationName(email string) string {
	return fmt.Sprintf("%s's Organization", email)
}

// OnboardingStatus is reported by GET /users/status.
type OnboardingStatus string

const (
	OnboardingNotStarted OnboardingStatus = "not_started"
	OnboardingInProgress OnboardingStatus = "in_progress"
	OnboardingComplete   OnboardingStatus = "complete"
	OnboardingError      OnboardingStatus = "error"
)
