package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/spendloop/spendloop/internal/apperror"
	"github.com/spendloop/spendloop/internal/sanitize"
)

// mysqlDuplicateEntry is the MariaDB error number for a UNIQUE violation.
const mysqlDuplicateEntry = 1062

// Directory is the lookup-or-create contract the auth flow depends on.
// FindOrCreate is idempotent per identity: repeated calls with the same
// claims return the same local row, only bumping its login timestamp.
type Directory interface {
	FindOrCreate(ctx context.Context, claims ProfileClaims) (*User, error)
}

// Service is the business logic for profile and preferences management,
// plus the Directory used by authentication.
type Service interface {
	Directory

	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, username string, input UpdateProfileInput) (*User, error)
	UpdatePreferences(ctx context.Context, username string, input UpdatePreferencesInput) (*Preferences, error)
}

// CategoryValidator reports whether a category name is one the expense
// domain accepts. Injected so this package doesn't import the expenses
// plugin (which depends on this one).
type CategoryValidator func(name string) bool

// service implements Service on top of the repository.
type service struct {
	repo          Repository
	validCategory CategoryValidator
}

// NewService creates the users service. validCategory may be nil, in which
// case default-category updates are accepted verbatim.
func NewService(repo Repository, validCategory CategoryValidator) Service {
	return &service{repo: repo, validCategory: validCategory}
}

// FindOrCreate resolves the local shadow row for an identity-provider
// account. Lookup order is email first, then username. A found row gets its
// login bookkeeping refreshed; an unseen identity gets a new row with
// default preferences.
//
// The users table enforces UNIQUE(email) and UNIQUE(username), so two
// concurrent first-logins for the same identity cannot both insert: the
// loser's insert fails with a duplicate-key error and we retry the lookup,
// which now finds the winner's row.
func (s *service) FindOrCreate(ctx context.Context, claims ProfileClaims) (*User, error) {
	user, err := s.lookup(ctx, claims)
	if err == nil {
		if err := s.repo.TouchLogin(ctx, user.ID, claims.EmailVerified, claims.Email); err != nil {
			// Non-critical: the login itself succeeded.
			slog.Warn("failed to record login",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		return user, nil
	}
	if !isNotFound(err) {
		return nil, apperror.NewInternal(fmt.Errorf("looking up user: %w", err))
	}

	now := time.Now().UTC()
	username := claims.PreferredUsername
	if username == "" {
		// Provider did not supply a preferred username.
		username = claims.Email
	}

	prefs := defaultPreferences()
	prefs.ID = uuid.NewString()

	newUser := &User{
		ID:            uuid.NewString(),
		Username:      username,
		Email:         claims.Email,
		FirstName:     claims.GivenName,
		LastName:      claims.FamilyName,
		EmailVerified: claims.EmailVerified,
		CreatedAt:     now,
		LastLoginAt:   &now,
		Preferences:   prefs,
	}
	newUser.Preferences.UserID = newUser.ID

	if err := s.repo.Create(ctx, newUser); err != nil {
		if isDuplicateEntry(err) {
			// Lost a concurrent first-login race. The winner's row exists
			// now; return it instead.
			if existing, lookupErr := s.lookup(ctx, claims); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("local user created",
		slog.String("user_id", newUser.ID),
		slog.String("username", newUser.Username),
	)

	return newUser, nil
}

// lookup finds a user by the claim join keys: email first, then username.
func (s *service) lookup(ctx context.Context, claims ProfileClaims) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, claims.Email)
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) || claims.PreferredUsername == "" {
		return nil, err
	}
	return s.repo.FindByUsername(ctx, claims.PreferredUsername)
}

// GetByUsername returns the full profile for a username.
func (s *service) GetByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// UpdateProfile applies a partial profile update and returns the fresh row.
func (s *service) UpdateProfile(ctx context.Context, username string, input UpdateProfileInput) (*User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = sanitize.Text(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = sanitize.Text(*input.LastName)
	}

	if err := s.repo.UpdateProfile(ctx, user.ID, user.FirstName, user.LastName); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating profile: %w", err))
	}
	return user, nil
}

// UpdatePreferences applies a partial preferences update and returns the
// merged record.
func (s *service) UpdatePreferences(ctx context.Context, username string, input UpdatePreferencesInput) (*Preferences, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	prefs := user.Preferences
	if input.Currency != nil {
		if len(*input.Currency) != 3 {
			return nil, apperror.NewInvalidInput("currency must be a 3-letter code")
		}
		prefs.Currency = *input.Currency
	}
	if input.DateFormat != nil {
		prefs.DateFormat = *input.DateFormat
	}
	if input.DefaultCategory != nil {
		if s.validCategory != nil && !s.validCategory(*input.DefaultCategory) {
			return nil, apperror.NewInvalidInput("unknown expense category")
		}
		prefs.DefaultCategory = *input.DefaultCategory
	}
	if input.EnableNotifications != nil {
		prefs.EnableNotifications = *input.EnableNotifications
	}
	if input.Theme != nil {
		prefs.Theme = *input.Theme
	}

	if err := s.repo.UpdatePreferences(ctx, prefs); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating preferences: %w", err))
	}
	return prefs, nil
}

// --- Helpers ---

// isNotFound reports whether err is the repository's not-found error.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

// isDuplicateEntry reports whether err is a MariaDB UNIQUE violation.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
