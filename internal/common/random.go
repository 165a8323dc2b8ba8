package common

import (
	"crypto/rand"
	"encoding/base64"
)

// MakeRandURLSafeString generates a random URL-safe base64 string carrying
// size bytes of entropy. Used for refresh-token secrets and OAuth state
// values.
//
// It returns an error if the random number generator fails.
func MakeRandURLSafeString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
