package ports

import "context"

// GoogleIdentity holds the verified profile claims returned by the provider.
type GoogleIdentity struct {
	Email          string
	GivenName      string
	FamilyName     string
	ProfilePicture string
}

// IdentityVerifier validates an OAuth ID token against the provider and
// returns verified claims. Implementations must reject tokens whose audience
// does not match this application's client ID with domain.ErrInvalidGoogleToken.
type IdentityVerifier interface {
	Verify(ctx context.Context, accessToken, idToken string) (*GoogleIdentity, error)
}
