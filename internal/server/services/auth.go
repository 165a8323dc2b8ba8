// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, credential login, and issuing,
// refreshing and revoking tokens.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/dbx"
	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
	"github.com/dmitrijs2005/authgate/internal/server/config"
	"github.com/dmitrijs2005/authgate/internal/server/models"
	"github.com/dmitrijs2005/authgate/internal/server/password"
	"github.com/dmitrijs2005/authgate/internal/server/repositories/repomanager"
)

// refreshSecretBytes is the entropy of a refresh-token secret before
// URL-safe base64 encoding.
const refreshSecretBytes = 32

// TokenPair bundles a short-lived access token and a long-lived refresh
// token. RefreshToken is empty when a refresh was served without rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// AuthService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - Refresh: rotate refresh tokens and mint new access tokens
// - Verify: validate an access token against the live user record
// - Logout / RevokeAll: revoke refresh tokens
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       *password.Hasher
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

// NewAuthService constructs an AuthService using repositories, the password
// hasher and server config. All state is fixed at construction; the service
// is safe for concurrent use.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, h *password.Hasher, cfg *config.Config, l logging.Logger) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		hasher:                       h,
		logger:                       l.With("module", "auth_service"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a new user with the given email, username and password.
// common.ErrDuplicateEmail reports a taken email; common.ErrHashingFailure
// reports a fatal problem in the hashing primitive.
func (s *AuthService) Register(ctx context.Context, email, username, pwd string) (*models.User, error) {
	hash, err := s.hasher.Hash(pwd)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err.Error())
		return nil, err
	}

	user := &models.User{Email: email, Username: username, PasswordHash: hash}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the provided credentials and, on success, records the
// login time and returns a new TokenPair together with the user snapshot.
// An unknown email and a wrong password are indistinguishable: both yield
// common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, pwd string) (*TokenPair, *models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, common.ErrInternal
	}
	if !s.hasher.Verify(pwd, user.PasswordHash) {
		return nil, nil, common.ErrInvalidCredentials
	}

	if err := repo.TouchLogin(ctx, user.ID, s.now()); err != nil {
		return nil, nil, common.ErrInternal
	}

	pair, err := s.generateTokenPair(ctx, user.ID, user.Email, s.db)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh validates a refresh-token secret and mints a new access token for
// its owner. With rotate set, the presented token is atomically replaced:
// the conditional revoke and the insert of the successor run in one
// transaction, so concurrent refreshes of the same secret cannot both
// succeed. Unknown, expired and revoked secrets all yield
// common.ErrInvalidRefreshToken.
func (s *AuthService) Refresh(ctx context.Context, refreshSecret string, rotate bool) (*TokenPair, error) {
	tokenHash := hashRefreshSecret(refreshSecret)

	repo := s.repomanager.RefreshTokens(s.db)
	token, err := repo.Find(ctx, tokenHash, s.now())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	access, err := auth.GenerateAccessToken(token.UserID, token.Email, s.jwtSecret, s.now(), s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	pair := &TokenPair{AccessToken: access, TokenType: "bearer"}

	if !rotate {
		return pair, nil
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		claimed, err := repoTx.RevokeIfActive(ctx, tokenHash, s.now())
		if err != nil {
			return fmt.Errorf("error revoking refresh token: %w", err)
		}
		if !claimed {
			// Lost the race to a concurrent refresh, or the token died
			// between Find and here.
			return common.ErrInvalidRefreshToken
		}
		secret, err := s.issueRefreshToken(ctx, token.UserID, tx)
		if err != nil {
			return err
		}
		pair.RefreshToken = secret
		return nil
	}); err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, err
	}

	return pair, nil
}

// Verify validates an access token and re-resolves its owner. A token for
// a user that no longer exists or was deactivated is rejected even though
// its signature and expiry are valid. Every failure mode yields
// common.ErrInvalidToken.
func (s *AuthService) Verify(ctx context.Context, accessToken string) (*models.User, error) {
	data, err := auth.VerifyAccessToken(accessToken, s.jwtSecret, s.now())
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrInternal
	}

	return user, nil
}

// Logout revokes the presented refresh token. Revoking an unknown or
// already-revoked token is a no-op, not an error.
func (s *AuthService) Logout(ctx context.Context, refreshSecret string) error {
	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.Revoke(ctx, hashRefreshSecret(refreshSecret)); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// RevokeAll revokes every refresh token owned by userID. Used for forced
// logout during security incidents; exposed through the admin CLI.
func (s *AuthService) RevokeAll(ctx context.Context, userID int64) error {
	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("error revoking refresh tokens: %w", err)
	}
	return nil
}

// --- helpers below ---

// hashRefreshSecret computes the storage form of a refresh secret. SHA-256
// is deliberate here: the secret already carries 256 bits of entropy, so a
// fast hash is safe and keeps lookups cheap.
func hashRefreshSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// issueRefreshToken generates a fresh secret, stores its hash and returns
// the plaintext. The plaintext leaves this method exactly once and is never
// logged.
func (s *AuthService) issueRefreshToken(ctx context.Context, userID int64, db dbx.DBTX) (string, error) {
	secret, err := common.MakeRandURLSafeString(refreshSecretBytes)
	if err != nil {
		return "", common.ErrInternal
	}

	now := s.now()
	repo := s.repomanager.RefreshTokens(db)
	if err := repo.Create(ctx, userID, hashRefreshSecret(secret), now, now.Add(s.refreshTokenValidityDuration)); err != nil {
		return "", common.ErrInternal
	}

	return secret, nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, userID int64, email string, db dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(userID, email, s.jwtSecret, s.now(), s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.issueRefreshToken(ctx, userID, db)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}
