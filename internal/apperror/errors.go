// Package apperror provides domain-specific error types for Spendloop.
// These errors carry an HTTP status code and a user-safe message. The Echo
// error handler maps them to appropriate HTTP responses automatically.
//
// NEVER return raw database or identity-provider errors to the client.
// Always wrap them in an apperror type or return a generic internal error.
// Auth errors in particular must stay generic: the provider's error body is
// a credential oracle and never leaves the server.
package apperror

import (
	"fmt"
	"net/http"
)

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Generic constructors ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    "not_found",
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "bad_request",
		Message: message,
	}
}

// NewInvalidInput creates a 400 error for semantically invalid input
// (e.g., a date range where start is after end).
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    "invalid_input",
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    "unauthorized",
		Message: message,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "internal_error",
		Message:  "An unexpected error occurred. Please try again.",
		Internal: err,
	}
}

// --- Authentication taxonomy ---
//
// All identity-provider failures surface as one of these kinds with a fixed
// generic message. The underlying cause goes into Internal for logs only.

// NewAuthenticationFailed creates a 400 error for a rejected credential
// exchange (bad credentials or non-200 from the token endpoint).
func NewAuthenticationFailed(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadRequest,
		Type:     "authentication_failed",
		Message:  "Authentication failed",
		Internal: err,
	}
}

// NewRefreshFailed creates a 400 error for a missing or rejected refresh token.
func NewRefreshFailed(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadRequest,
		Type:     "refresh_failed",
		Message:  "Token refresh failed",
		Internal: err,
	}
}

// NewValidationFailed creates a 401 error for a bearer token the identity
// provider's userinfo endpoint rejects.
func NewValidationFailed(err error) *AppError {
	return &AppError{
		Code:     http.StatusUnauthorized,
		Type:     "validation_failed",
		Message:  "Token is invalid or expired",
		Internal: err,
	}
}

// NewAdminTokenUnavailable creates a 500 error for a failed administrative
// token grant. Session termination converts this to a boolean outcome
// instead of propagating it; registration surfaces it as a generic failure.
func NewAdminTokenUnavailable(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     "admin_token_unavailable",
		Message:  "Identity provider is unavailable",
		Internal: err,
	}
}

// NewRegistrationFailed creates a 400 error for a failed signup: admin
// user-creation returned non-201, or the follow-up login failed.
func NewRegistrationFailed(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadRequest,
		Type:     "registration_failed",
		Message:  "Registration failed",
		Internal: err,
	}
}

// --- Safe accessors ---

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns a generic message to prevent leaking
// internal details like query structure or provider error bodies.
func SafeMessage(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Message
	}
	return "an unexpected error occurred"
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
