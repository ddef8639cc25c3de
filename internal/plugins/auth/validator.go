package auth

import (
	"context"
	"log/slog"

	"github.com/spendloop/spendloop/internal/keycloak"
)

// userinfoClient is the slice of the provider client the validator needs.
// Narrowed for testability.
type userinfoClient interface {
	UserInfo(ctx context.Context, accessToken string) (keycloak.Claims, error)
}

// TokenValidator checks a bearer token against the identity provider and
// returns its claims. This is a remote check on every call: the provider's
// userinfo endpoint is the single source of truth, so revoked sessions are
// rejected immediately rather than at token expiry.
//
// Validation is fail-closed. A provider outage, a transport error, and a
// rejected token all produce the same answer: not valid.
type TokenValidator interface {
	Validate(ctx context.Context, accessToken string) (keycloak.Claims, bool)
}

// validator implements TokenValidator against the userinfo endpoint.
type validator struct {
	provider userinfoClient
}

// NewValidator creates a TokenValidator backed by the given provider client.
func NewValidator(provider userinfoClient) TokenValidator {
	return &validator{provider: provider}
}

// Validate returns the token's claims and true, or nil and false if the
// provider rejects the token or cannot be reached. The cause is logged at
// debug level only; callers never see why a token failed.
func (v *validator) Validate(ctx context.Context, accessToken string) (keycloak.Claims, bool) {
	if accessToken == "" {
		return nil, false
	}

	claims, err := v.provider.UserInfo(ctx, accessToken)
	if err != nil {
		slog.Debug("token validation failed", slog.Any("error", err))
		return nil, false
	}
	return claims, true
}
