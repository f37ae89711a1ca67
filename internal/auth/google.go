package auth

import (
	"context"
	"time"

	"google.golang.org/api/idtoken"
)

// providerTimeout bounds every outbound call to an OAuth provider.
const providerTimeout = 10 * time.Second

// ProviderIdentity is the verified (email, name, picture) tuple a provider
// assertion resolves to.
type ProviderIdentity struct {
	Email      string
	Name       string
	Username   string
	PictureURL string
}

// GoogleVerifier validates signed Google ID tokens against the configured
// OAuth client ID.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*ProviderIdentity, error) {
	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	payload, err := idtoken.Validate(ctx, token, g.clientID)
	if err != nil {
		return nil, ErrInvalidAssertion
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, ErrMissingEmail
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return &ProviderIdentity{
		Email:      email,
		Name:       name,
		PictureURL: picture,
	}, nil
}
