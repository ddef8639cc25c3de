package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spendloop/spendloop/internal/apperror"
)

// Repository defines the data access contract for local users and their
// preferences. All SQL lives in the concrete implementation.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	TouchLogin(ctx context.Context, id string, emailVerified bool, email string) error
	UpdateProfile(ctx context.Context, id, firstName, lastName string) error
	UpdatePreferences(ctx context.Context, prefs *Preferences) error
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a user repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Create inserts the user row and its preferences row in one transaction.
// The users table carries UNIQUE constraints on email and username, so a
// concurrent first-login race surfaces here as a duplicate-key error
// instead of a second row (see Directory.FindOrCreate).
func (r *repository) Create(ctx context.Context, user *User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, username, email, first_name, last_name, email_verified, created_at, last_login_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.EmailVerified,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	p := user.Preferences
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_preferences (id, user_id, currency, date_format, default_category, enable_notifications, theme)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		user.ID,
		p.Currency,
		p.DateFormat,
		p.DefaultCategory,
		p.EnableNotifications,
		p.Theme,
	)
	if err != nil {
		return fmt.Errorf("inserting preferences: %w", err)
	}

	return tx.Commit()
}

// userColumns is the SELECT list shared by the find queries, joined with
// the preferences row.
const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name,
	       u.email_verified, u.created_at, u.last_login_at,
	       p.id, p.currency, p.date_format, p.default_category,
	       p.enable_notifications, p.theme`

// findOne runs a single-row user query with the standard column set.
func (r *repository) findOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `SELECT ` + userColumns + `
	          FROM users u
	          JOIN user_preferences p ON p.user_id = u.id
	          WHERE ` + where

	user := &User{Preferences: &Preferences{}}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.LastLoginAt,
		&user.Preferences.ID,
		&user.Preferences.Currency,
		&user.Preferences.DateFormat,
		&user.Preferences.DefaultCategory,
		&user.Preferences.EnableNotifications,
		&user.Preferences.Theme,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	user.Preferences.UserID = user.ID

	return user, nil
}

// FindByID retrieves a user by their local UUID.
func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "u.id = ?", id)
}

// FindByEmail retrieves a user by email address.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "u.email = ?", email)
}

// FindByUsername retrieves a user by username.
func (r *repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "u.username = ?", username)
}

// TouchLogin records a successful authentication: bumps last_login_at and
// refreshes the claims-derived fields that can drift (email verification,
// email itself).
func (r *repository) TouchLogin(ctx context.Context, id string, emailVerified bool, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = NOW(), email_verified = ?, email = ? WHERE id = ?`,
		emailVerified, email, id,
	)
	if err != nil {
		return fmt.Errorf("touching login: %w", err)
	}
	return nil
}

// UpdateProfile sets the mutable profile fields.
func (r *repository) UpdateProfile(ctx context.Context, id, firstName, lastName string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ? WHERE id = ?`,
		firstName, lastName, id,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// UpdatePreferences persists the full preferences record for a user.
func (r *repository) UpdatePreferences(ctx context.Context, prefs *Preferences) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_preferences
		 SET currency = ?, date_format = ?, default_category = ?, enable_notifications = ?, theme = ?
		 WHERE user_id = ?`,
		prefs.Currency,
		prefs.DateFormat,
		prefs.DefaultCategory,
		prefs.EnableNotifications,
		prefs.Theme,
		prefs.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating preferences: %w", err)
	}
	return nil
}
