package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/medibook/appointment-api/internal/core/domain"
	"github.com/medibook/appointment-api/internal/core/ports"
)

const userinfoEndpoint = "https://www.googleapis.com/oauth2/v1/userinfo"

// Verifier validates Google ID tokens and fetches the signed-in user's
// profile. It implements ports.IdentityVerifier.
type Verifier struct {
	clientID string
	client   *http.Client
}

// NewVerifier creates a Verifier bound to this application's OAuth client ID.
func NewVerifier(clientID string) *Verifier {
	return &Verifier{
		clientID: clientID,
		client:   &http.Client{},
	}
}

// Verify checks the ID token against Google's tokeninfo endpoint, rejects
// audiences that do not match the configured client ID, and resolves the
// profile claims with the access token.
func (v *Verifier) Verify(ctx context.Context, accessToken, idToken string) (*ports.GoogleIdentity, error) {
	svc, err := oauth2.NewService(ctx, option.WithHTTPClient(v.client))
	if err != nil {
		return nil, fmt.Errorf("google oauth2 service: %w", err)
	}

	info, err := svc.Tokeninfo().IdToken(idToken).Context(ctx).Do()
	if err != nil {
		// Only a provider rejection means the token is bad. A transport or
		// Google outage surfaces as a server error, not a 401.
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 {
			return nil, domain.ErrInvalidGoogleToken
		}
		return nil, fmt.Errorf("google tokeninfo: %w", err)
	}

	// A valid token minted for a different application must not be accepted.
	if info.Audience != v.clientID {
		return nil, domain.ErrInvalidGoogleToken
	}

	userInfo, err := v.fetchUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if userInfo.Email != info.Email {
		return nil, domain.ErrInvalidGoogleToken
	}

	return &ports.GoogleIdentity{
		Email:          userInfo.Email,
		GivenName:      userInfo.GivenName,
		FamilyName:     userInfo.FamilyName,
		ProfilePicture: userInfo.Picture,
	}, nil
}

func (v *Verifier) fetchUserInfo(ctx context.Context, accessToken string) (*oauth2.Userinfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, domain.ErrInvalidGoogleToken
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo: unexpected status %d", resp.StatusCode)
	}

	var userInfo oauth2.Userinfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	return &userInfo, nil
}
