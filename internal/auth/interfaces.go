package auth

import "context"

// TokenService defines the interface for JWT token operations.
type TokenService interface {
	GenerateToken(userID uint, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// ProviderVerifier resolves a provider-specific credential to a verified
// identity tuple.
type ProviderVerifier interface {
	Verify(ctx context.Context, token string) (*ProviderIdentity, error)
}

// ProviderExchanger trades an authorization code for a verified identity
// tuple.
type ProviderExchanger interface {
	Exchange(ctx context.Context, code string) (*ProviderIdentity, error)
}

// Compile-time interface satisfaction checks
var (
	_ TokenService      = (*JWTService)(nil)
	_ ProviderVerifier  = (*GoogleVerifier)(nil)
	_ ProviderExchanger = (*GitHubClient)(nil)
)
