// Package users declares the repository contract for identity records.
// Lookups only ever see active users; a deactivated account is invisible to
// authentication as if it did not exist.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authgate/internal/server/models"
)

type Repository interface {
	// Create inserts a new user and fills in its assigned id. A violated
	// uniqueness constraint (email, or the provider pair) is reported as
	// common.ErrDuplicateEmail.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*models.User, error)

	// TouchLogin records a successful login at the given instant.
	TouchLogin(ctx context.Context, id int64, now time.Time) error
}
