package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/oauth"
)

// ProfileFetcher retrieves a normalized identity profile for an access
// token issued by the named provider. Implemented by oauth.Client;
// substituted in tests.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, provider, accessToken string) (*oauth.Profile, error)
}

// OAuthService maps externally authenticated identities onto local users
// and delegates token issuance to the AuthService. It never links an
// existing account to a new provider implicitly.
type OAuthService struct {
	auth    *AuthService
	fetcher ProfileFetcher
	logger  logging.Logger
}

func NewOAuthService(a *AuthService, f ProfileFetcher, l logging.Logger) *OAuthService {
	return &OAuthService{auth: a, fetcher: f, logger: l.With("module", "oauth_service")}
}

// Login resolves the provider token to a profile, finds or creates the
// local user, records the login and returns a TokenPair.
//
// Resolution order:
//  1. an existing user for (provider, provider_id) wins;
//  2. the same email under a different origin is rejected with
//     common.ErrAccountConflict, never linked silently;
//  3. otherwise a new user is created with an empty password hash.
//
// A profile without an email fails closed: email is the mandatory join key.
func (s *OAuthService) Login(ctx context.Context, provider, providerToken string) (*TokenPair, *models.User, error) {
	profile, err := s.fetcher.FetchProfile(ctx, provider, providerToken)
	if err != nil {
		s.logger.Warn(ctx, "profile fetch failed", "provider", provider)
		return nil, nil, common.ErrInvalidCredentials
	}
	if profile == nil || profile.Email == "" || profile.ProviderID == "" {
		return nil, nil, common.ErrInvalidCredentials
	}

	repo := s.auth.repomanager.Users(s.auth.db)

	user, err := repo.GetByProvider(ctx, provider, profile.ProviderID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInternal
		}

		// First login through this provider identity. Refuse if the email
		// already belongs to an account from another origin.
		if _, err := repo.GetByEmail(ctx, profile.Email); err == nil {
			return nil, nil, common.ErrAccountConflict
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInternal
		}

		created := &models.User{
			Email:      profile.Email,
			Username:   profile.Username,
			Provider:   sql.NullString{String: provider, Valid: true},
			ProviderID: sql.NullString{String: profile.ProviderID, Valid: true},
		}
		if _, err := repo.Create(ctx, created); err != nil {
			return nil, nil, common.ErrInternal
		}

		// Re-read so the snapshot carries the stored defaults.
		user, err = repo.GetByEmail(ctx, profile.Email)
		if err != nil {
			return nil, nil, common.ErrInternal
		}
	}

	if err := repo.TouchLogin(ctx, user.ID, s.auth.now()); err != nil {
		return nil, nil, common.ErrInternal
	}

	pair, err := s.auth.generateTokenPair(ctx, user.ID, user.Email, s.auth.db)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}
