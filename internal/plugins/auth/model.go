// Package auth handles authentication and session orchestration for
// Spendloop. Credential verification is delegated to an external OpenID
// Connect identity provider (Keycloak): login exchanges credentials for a
// bearer token pair, every request re-validates its token against the
// provider's userinfo endpoint, and logout revokes the provider session
// through the administrative API on a best-effort basis.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"github.com/spendloop/spendloop/internal/keycloak"
)

// RoleUser is the single authorization role granted to every authenticated
// principal. There is no role hierarchy.
const RoleUser = "USER"

// Principal is the resolved, request-scoped identity attached after
// successful token validation or login. Never persisted; destroyed with
// the request.
//
// A principal comes in two variants, resolved once at the authentication
// boundary: a rich one built from verified provider claims, and a bare one
// carrying only a username (no claims, no subject). Downstream code checks
// Bare instead of re-inspecting claim presence ad hoc.
type Principal struct {
	// Subject is the identity provider's stable user id.
	Subject string

	// Email is the verified email claim.
	Email string

	// Username is the preferred_username claim.
	Username string

	GivenName   string
	FamilyName  string
	DisplayName string

	EmailVerified bool

	// SessionState is the provider session identifier, when the provider
	// included one. Used by session termination.
	SessionState string

	// Roles is the authorization role set. Always exactly {USER} for a
	// principal produced by this package.
	Roles []string

	// Claims is the raw claim map, passed through opaquely.
	Claims keycloak.Claims

	// Bare marks a principal that was resolved from a plain username with
	// no provider claims available.
	Bare bool
}

// PrincipalFromClaims builds a rich principal from a verified claim set.
func PrincipalFromClaims(claims keycloak.Claims) *Principal {
	return &Principal{
		Subject:       claims.Subject(),
		Email:         claims.Email(),
		Username:      claims.PreferredUsername(),
		GivenName:     claims.GivenName(),
		FamilyName:    claims.FamilyName(),
		DisplayName:   claims.Name(),
		EmailVerified: claims.EmailVerified(),
		SessionState:  claims.SessionState(),
		Roles:         []string{RoleUser},
		Claims:        claims,
	}
}

// BarePrincipal builds the claims-less variant from a plain username.
func BarePrincipal(username string) *Principal {
	return &Principal{
		Username: username,
		Roles:    []string{RoleUser},
		Bare:     true,
	}
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DirectoryUsername is the join key used against the local user directory:
// the preferred username, falling back to email when the provider did not
// supply one.
func (p *Principal) DirectoryUsername() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// TokenPair is the ephemeral access/refresh token pair handed to the SPA.
// Never stored server-side; optionally persisted client-side as HTTP-only
// cookies.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// --- Request DTOs ---

// LoginRequest is the login payload from the SPA.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// SignupRequest is the signup payload from the SPA.
type SignupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// --- Response DTOs ---

// UserInfo is the profile fragment embedded in auth responses.
type UserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}

// AuthResponse is the uniform body for login, signup, validate, and
// refresh. Failure responses carry success=false and a generic message
// only -- provider error details never appear here.
type AuthResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresIn    int64     `json:"expiresIn,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
}
