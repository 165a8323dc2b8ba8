// Package refreshtokens declares the repository contract for refresh-token
// records. Tokens are identified by the SHA-256 hash of their secret; the
// plaintext never reaches this layer's storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authgate/internal/server/models"
)

type Repository interface {
	// Create persists a new token record in the non-revoked state.
	Create(ctx context.Context, userID int64, tokenHash string, createdAt, expiresAt time.Time) error

	// Find returns the live record for tokenHash joined with the owning
	// user's current email and username. Unknown, expired and revoked
	// hashes are indistinguishable: all yield common.ErrNotFound.
	Find(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)

	// Revoke soft-revokes the record for tokenHash. Revoking an unknown or
	// already-revoked hash is not an error.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeIfActive revokes the record only if it is still valid at now,
	// reporting whether a row was claimed. Running it inside the rotation
	// transaction guarantees at most one concurrent caller wins.
	RevokeIfActive(ctx context.Context, tokenHash string, now time.Time) (bool, error)

	// RevokeAllForUser revokes every record owned by userID.
	RevokeAllForUser(ctx context.Context, userID int64) error
}
