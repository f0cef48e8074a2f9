package domain

// ProviderGoogle identifies Google in oauth_account.provider_id.
const ProviderGoogle = "google"

// OAuthAccount links an identity-provider subject to a local user.
type OAuthAccount struct {
	ProviderID     string
	ProviderUserID string
	UserID         int64
}

// OAuthIdentity is the verified set of claims returned by an identity provider.
type OAuthIdentity struct {
	ProviderID    string
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}
