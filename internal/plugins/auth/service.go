package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spendloop/spendloop/internal/apperror"
	"github.com/spendloop/spendloop/internal/keycloak"
	"github.com/spendloop/spendloop/internal/sanitize"
)

// Provider is the slice of the identity-provider client the auth service
// uses. *keycloak.Client satisfies it; tests substitute a fake.
type Provider interface {
	PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenSet, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error)
	UserInfo(ctx context.Context, accessToken string) (keycloak.Claims, error)
	AdminToken(ctx context.Context) (string, error)
	CreateUser(ctx context.Context, adminToken string, user keycloak.NewUser) (string, error)
	UserExistsByEmail(ctx context.Context, adminToken, email string) (bool, error)
}

// UserDirectory is the local shadow-account contract the login flow upserts
// into. Defined here on the consumer side; the users plugin provides the
// implementation.
type UserDirectory interface {
	FindOrCreate(ctx context.Context, principal *Principal) error
}

// LoginResult is what a successful credential exchange produces: the token
// pair for the client plus the principal resolved from the verified claims.
type LoginResult struct {
	Tokens    TokenPair
	Principal *Principal
}

// AuthService orchestrates credential login, token refresh, and signup
// against the identity provider. It holds no session state of its own.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Register(ctx context.Context, req SignupRequest) error
}

type service struct {
	provider  Provider
	directory UserDirectory
}

// NewService creates the auth service.
func NewService(provider Provider, directory UserDirectory) AuthService {
	return &service{provider: provider, directory: directory}
}

// Login exchanges credentials for a token pair via the password grant, then
// verifies the access token against userinfo and upserts the local shadow
// user. The provider's rejection body never reaches the caller: any grant
// failure collapses into a generic authentication error.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Email == "" || req.Password == "" {
		return nil, apperror.NewBadRequest("email and password are required")
	}

	tokens, err := s.provider.PasswordGrant(ctx, req.Email, req.Password)
	if err != nil {
		return nil, apperror.NewAuthenticationFailed(err)
	}

	// The grant succeeded, but the claims come from userinfo, not from
	// decoding the token locally. This keeps the provider authoritative.
	claims, err := s.provider.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, apperror.NewAuthenticationFailed(fmt.Errorf("fetching userinfo after grant: %w", err))
	}

	principal := PrincipalFromClaims(claims)
	if err := s.directory.FindOrCreate(ctx, principal); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("syncing local user: %w", err))
	}

	slog.Info("user logged in",
		slog.String("subject", principal.Subject),
		slog.String("username", principal.DirectoryUsername()),
	)

	return &LoginResult{
		Tokens: TokenPair{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			ExpiresIn:    tokens.ExpiresIn,
		},
		Principal: principal,
	}, nil
}

// Refresh exchanges a refresh token for a fresh pair. A missing token and a
// rejected token are the same failure to the caller.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperror.NewRefreshFailed(errors.New("no refresh token provided"))
	}

	tokens, err := s.provider.RefreshGrant(ctx, refreshToken)
	if err != nil {
		return nil, apperror.NewRefreshFailed(err)
	}

	return &TokenPair{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	}, nil
}

// Register creates the account in the identity provider through the admin
// API. The caller is expected to follow up with Login using the same
// credentials; a provider account left behind by a failed follow-up login
// is accepted rather than rolled back.
func (s *service) Register(ctx context.Context, req SignupRequest) error {
	if msg := validateSignup(&req); msg != "" {
		return apperror.NewBadRequest(msg)
	}

	adminToken, err := s.provider.AdminToken(ctx)
	if err != nil {
		return apperror.NewAdminTokenUnavailable(err)
	}

	exists, err := s.provider.UserExistsByEmail(ctx, adminToken, req.Email)
	if err != nil {
		return apperror.NewRegistrationFailed(fmt.Errorf("checking existing account: %w", err))
	}
	if exists {
		return apperror.NewBadRequest("an account with this email already exists")
	}

	id, err := s.provider.CreateUser(ctx, adminToken, keycloak.NewUser{
		Email:     req.Email,
		FirstName: sanitize.Text(req.FirstName),
		LastName:  sanitize.Text(req.LastName),
		Password:  req.Password,
	})
	if err != nil {
		return apperror.NewRegistrationFailed(err)
	}

	slog.Info("provider account created",
		slog.String("provider_user_id", id),
	)
	return nil
}

// validateSignup performs basic server-side validation on the signup
// payload. Returns an error message or empty string.
func validateSignup(req *SignupRequest) string {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return "email is required"
	}
	if !strings.Contains(req.Email, "@") {
		return "email is invalid"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	if len(req.Password) > 128 {
		return "password must be at most 128 characters"
	}
	return ""
}
