// Package common defines shared constants and sentinel errors used across
// authgate components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Credential verification. Unknown email and wrong password both map
	// here; callers must not be able to tell which check failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Access-token validation. Malformed, expired, bad signature, wrong
	// token type and unknown user all collapse to this one value.
	ErrInvalidToken = errors.New("invalid token")

	// Refresh-token validation. Unknown, expired and revoked are
	// indistinguishable.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Password hashing primitive failure. Fatal configuration or resource
	// problem, classified as a server error, never retried.
	ErrHashingFailure = errors.New("password hashing failed")

	// OAuth login with an email that already belongs to an account from a
	// different origin. Accounts are never linked implicitly.
	ErrAccountConflict = errors.New("account exists with a different login method")
)
