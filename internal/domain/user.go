package domain

import (
	"strings"
	"time"
)

// User is an account belonging to exactly one organization.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   *string    `json:"-"`
	FirstName      *string    `json:"first_name,omitempty"`
	LastName       *string    `json:"last_name,omitempty"`
	AvatarURL      *string    `json:"avatar_url,omitempty"`
	Role           Role       `json:"role"`
	OrganizationID int64      `json:"organization_id"`
	IsActive       bool       `json:"is_active"`
	EmailVerified  bool       `json:"email_verified"`
	DeletedAt      *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CanAuthenticate reports whether the user may hold a valid session.
func (u *User) CanAuthenticate() bool {
	return u.IsActive && u.DeletedAt == nil
}

// DisplayName returns "First Last" when available, else the email.
func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) == 0 {
		return u.Email
	}
	return strings.Join(parts, " ")
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AuthenticatedUser is the identity resolved from a valid session.
type AuthenticatedUser struct {
	User      *User
	SessionID string
}

func (a *AuthenticatedUser) UserID() int64         { return a.User.ID }
func (a *AuthenticatedUser) OrganizationID() int64 { return a.User.OrganizationID }
func (a *AuthenticatedUser) Role() Role            { return a.User.Role }
