package users

import (
	"context"

	"github.com/spendloop/spendloop/internal/plugins/auth"
)

// authDirectory adapts the users service to the auth plugin's UserDirectory
// contract, mapping the principal onto this package's claim DTO.
type authDirectory struct {
	svc Service
}

// NewAuthDirectory wraps the users service for consumption by the auth
// plugin's login flow.
func NewAuthDirectory(svc Service) auth.UserDirectory {
	return &authDirectory{svc: svc}
}

// FindOrCreate upserts the local shadow row for the authenticated principal.
func (d *authDirectory) FindOrCreate(ctx context.Context, p *auth.Principal) error {
	_, err := d.svc.FindOrCreate(ctx, ProfileClaims{
		Subject:           p.Subject,
		Email:             p.Email,
		PreferredUsername: p.Username,
		GivenName:         p.GivenName,
		FamilyName:        p.FamilyName,
		EmailVerified:     p.EmailVerified,
	})
	return err
}
