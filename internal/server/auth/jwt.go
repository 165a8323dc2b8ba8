// Package auth encodes and decodes signed access tokens. Tokens are JWTs
// signed with HS256 using a server-held symmetric secret. The claim set is
// {sub, email, type, exp} where sub is the numeric user id serialized as a
// string, as required by RFC 7519 for the subject claim.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/authgate/internal/common"
)

// TokenKind is the closed set of values the "type" claim decodes into.
// Anything but KindAccess is treated as unknown and rejected.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindUnknown TokenKind = ""
)

// KindOf maps a raw "type" claim value onto the closed TokenKind set.
func KindOf(s string) TokenKind {
	if s == string(KindAccess) {
		return KindAccess
	}
	return KindUnknown
}

// Claims is the access-token claim set: standard registered claims plus
// the user's email and the token-type discriminator.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	TokenType string `json:"type"`
}

// TokenData is the identity extracted from a verified access token.
type TokenData struct {
	UserID int64
	Email  string
}

// GenerateAccessToken builds a signed access token for the given user,
// expiring at now+validity.
func GenerateAccessToken(userID int64, email string, secretKey []byte, now time.Time, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Email:     email,
		TokenType: string(KindAccess),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyAccessToken checks the signature, expiry and token type, and parses
// the subject back into a numeric user id. Every failure mode (malformed
// input, bad signature, expired token, wrong type, missing or non-numeric
// fields) collapses to common.ErrInvalidToken so the caller cannot tell
// them apart.
func VerifyAccessToken(tokenString string, secretKey []byte, now time.Time) (*TokenData, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}

	if KindOf(claims.TokenType) != KindAccess {
		return nil, common.ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, common.ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	return &TokenData{UserID: userID, Email: claims.Email}, nil
}
