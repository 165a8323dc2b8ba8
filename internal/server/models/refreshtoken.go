package models

import "time"

// RefreshToken is the persisted form of a refresh token. Only the SHA-256
// hash of the secret is stored; the plaintext is returned to the caller
// once at issue time and never kept.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time

	// Joined from the owning user when resolved for a refresh.
	Email    string
	Username string
}
