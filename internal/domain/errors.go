package domain

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// ErrOAuthState is the root of every OAuth state validation failure. The
// wrapped reason is logged but never shown to the client.
var ErrOAuthState = errors.New("invalid oauth state")

// Unauthenticated hides the reason a session or credential was rejected.
func Unauthenticated() *apperrors.AppError {
	return apperrors.Unauthorized("authentication required")
}

func AccessDenied() *apperrors.AppError {
	return apperrors.Forbidden("access denied")
}

func InvalidCredentials() *apperrors.AppError {
	return apperrors.New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password", apperrors.ErrUnauthorized)
}

func EmailNotVerified() *apperrors.AppError {
	return apperrors.New("EMAIL_NOT_VERIFIED", http.StatusForbidden, "email address has not been verified", apperrors.ErrForbidden)
}

func EmailAlreadyExists(email string) *apperrors.AppError {
	return apperrors.New("EMAIL_ALREADY_EXISTS", http.StatusConflict, fmt.Sprintf("an account with email %s already exists", email), apperrors.ErrAlreadyExists)
}

// SignupFailed is returned when a signup or OAuth account creation
// transaction was rolled back.
func SignupFailed(err error) *apperrors.AppError {
	return apperrors.New("SIGNUP_FAILED", http.StatusInternalServerError, "account creation failed", err)
}

func QuotaExceeded(feature string, limit int64) *apperrors.AppError {
	return apperrors.New("QUOTA_EXCEEDED", http.StatusTooManyRequests,
		fmt.Sprintf("quota exceeded for %s (limit %d)", feature, limit), apperrors.ErrRateLimited)
}

func OrgNotFound(ref string) *apperrors.AppError {
	return apperrors.New("ORG_NOT_FOUND", http.StatusNotFound, "organization not found: "+ref, apperrors.ErrNotFound)
}

func PlanNotFound(ref string) *apperrors.AppError {
	return apperrors.New("PLAN_NOT_FOUND", http.StatusNotFound, "plan not found: "+ref, apperrors.ErrNotFound)
}

func NoDefaultPlan() *apperrors.AppError {
	return apperrors.New("NO_DEFAULT_PLAN", http.StatusInternalServerError, "no default plan configured", apperrors.ErrInternal)
}

func DefaultPlanNotFree(plan string) *apperrors.AppError {
	return apperrors.New("DEFAULT_PLAN_NOT_FREE", http.StatusBadRequest, fmt.Sprintf("default plan %s has a paid price", plan), apperrors.ErrInvalidInput)
}

func StripeCustomerNotFound(orgID int64) *apperrors.AppError {
	return apperrors.New("STRIPE_CUSTOMER_NOT_FOUND", http.StatusBadRequest,
		fmt.Sprintf("organization %d has no billing customer", orgID), apperrors.ErrInvalidInput)
}

// InvalidPlanFeature signals operator misconfiguration of a plan.
func InvalidPlanFeature(plan, feature string, err error) *apperrors.AppError {
	return apperrors.New("INVALID_PLAN_FEATURE", http.StatusInternalServerError,
		"plan configuration error", fmt.Errorf("plan %q feature %q: %w", plan, feature, err))
}
