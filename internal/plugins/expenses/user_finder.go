package expenses

import (
	"context"

	"github.com/spendloop/spendloop/internal/plugins/users"
)

// UserFinder resolves the local user id behind an authenticated username.
// Defined here on the consumer side; the users plugin provides it.
type UserFinder interface {
	FindIDByUsername(ctx context.Context, username string) (string, error)
}

// userFinder adapts the users service to the UserFinder contract.
type userFinder struct {
	svc users.Service
}

// NewUserFinder wraps the users service for expense ownership resolution.
func NewUserFinder(svc users.Service) UserFinder {
	return &userFinder{svc: svc}
}

// FindIDByUsername returns the local id for a username.
func (f *userFinder) FindIDByUsername(ctx context.Context, username string) (string, error) {
	user, err := f.svc.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
