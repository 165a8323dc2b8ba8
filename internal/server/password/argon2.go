// Package password implements one-way password hashing and verification
// using Argon2id. Hashes are stored in PHC string format with the salt and
// cost parameters embedded, so verification never depends on current config.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/authgate/internal/common"
)

const algorithmID = "argon2id"

// Params holds the Argon2id cost parameters. The defaults follow the
// commonly recommended profile: 3 iterations over 64 MiB with a 16-byte
// salt and a 32-byte key.
type Params struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns the production cost profile.
func DefaultParams() Params {
	return Params{
		Time:        3,
		MemoryKiB:   64 * 1024,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	params Params
}

// NewHasher validates params and returns a Hasher. Parameter validation
// failure is a configuration error and maps to common.ErrHashingFailure.
func NewHasher(p Params) (*Hasher, error) {
	if p.Time < 1 || p.MemoryKiB < 8*1024 || p.Parallelism < 1 {
		return nil, fmt.Errorf("%w: cost parameters below minimum", common.ErrHashingFailure)
	}
	if p.SaltLength < 16 || p.KeyLength < 32 {
		return nil, fmt.Errorf("%w: salt or key length below minimum", common.ErrHashingFailure)
	}
	return &Hasher{params: p}, nil
}

// Hash derives an Argon2id hash of password with a fresh random salt and
// returns it in PHC format:
//
//	$argon2id$v=19$m=65536,t=3,p=1$<base64 salt>$<base64 hash>
//
// Errors wrap common.ErrHashingFailure and indicate a fatal environment
// problem (entropy source failure), not bad input.
func (h *Hasher) Hash(pwd string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrHashingFailure, err)
	}

	key := argon2.IDKey([]byte(pwd), salt, h.params.Time, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash of pwd using the parameters embedded in
// encoded and compares in constant time. Malformed hashes, unknown
// algorithms and parameter mismatches all report false; verification
// never returns an error to its caller.
func (h *Hasher) Verify(pwd, encoded string) bool {
	salt, key, time, memory, parallelism, ok := parsePHC(encoded)
	if !ok {
		return false
	}
	computed := argon2.IDKey([]byte(pwd), salt, time, memory, parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

func parsePHC(encoded string) (salt, key []byte, time, memory uint32, parallelism uint8, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil || m == 0 || t == 0 || p == 0 {
		return nil, nil, 0, 0, 0, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, 0, 0, 0, false
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, key, t, m, p, true
}
