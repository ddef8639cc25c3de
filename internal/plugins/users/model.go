// Package users maintains the local shadow table of identity-provider
// accounts. The identity provider owns credentials; this package owns the
// application-side user row (join keys: email and username), its
// last-login bookkeeping, and the one-to-one preferences record.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package users

import (
	"time"
)

// User is the persisted shadow record mirroring an identity-provider
// account. Created on first successful authentication for a previously
// unseen identity, updated (never re-created) on every one after that.
type User struct {
	ID            string       `json:"id"`
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	EmailVerified bool         `json:"emailVerified"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastLoginAt   *time.Time   `json:"lastLoginAt,omitempty"`
	Preferences   *Preferences `json:"preferences,omitempty"`
}

// Preferences is the per-user settings record, owned one-to-one by User and
// created alongside it with defaults. Mutated only through explicit
// profile-update requests.
type Preferences struct {
	ID                  string `json:"-"`
	UserID              string `json:"-"`
	Currency            string `json:"currency"`
	DateFormat          string `json:"dateFormat"`
	DefaultCategory     string `json:"defaultCategory"`
	EnableNotifications bool   `json:"enableNotifications"`
	Theme               string `json:"theme"`
}

// defaultPreferences returns the preferences a brand-new user starts with.
func defaultPreferences() *Preferences {
	return &Preferences{
		Currency:            "USD",
		DateFormat:          "MM/dd/yyyy",
		DefaultCategory:     "OTHER",
		EnableNotifications: true,
		Theme:               "light",
	}
}

// --- Service DTOs ---

// ProfileClaims is the subset of identity-provider claims the directory
// consumes. Decoupled from the keycloak package so the directory can be
// tested without a provider.
type ProfileClaims struct {
	Subject           string
	Email             string
	PreferredUsername string
	GivenName         string
	FamilyName        string
	EmailVerified     bool
}

// UpdateProfileInput carries a partial profile update. Nil fields are left
// unchanged.
type UpdateProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// UpdatePreferencesInput carries a partial preferences update. Nil fields
// are left unchanged.
type UpdatePreferencesInput struct {
	Currency            *string `json:"currency"`
	DateFormat          *string `json:"dateFormat"`
	DefaultCategory     *string `json:"defaultCategory"`
	EnableNotifications *bool   `json:"enableNotifications"`
	Theme               *string `json:"theme"`
}
