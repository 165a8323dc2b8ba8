package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/authgate/internal/common"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateAndVerify_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateAccessToken(42, "alice@example.com", secret, testNow, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	data, err := VerifyAccessToken(tok, secret, testNow)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}
	if data.UserID != 42 {
		t.Fatalf("user id mismatch: got %d want 42", data.UserID)
	}
	if data.Email != "alice@example.com" {
		t.Fatalf("email mismatch: got %q", data.Email)
	}
}

func TestGenerate_SubjectIsString(t *testing.T) {
	t.Parallel()

	tok, err := GenerateAccessToken(7, "a@x.com", []byte("k"), testNow, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("expected compact JWT, got %q", tok)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("payload decode error: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("payload unmarshal error: %v", err)
	}
	if sub, ok := raw["sub"].(string); !ok || sub != "7" {
		t.Fatalf(`expected claim sub == "7" (string), got %v (%T)`, raw["sub"], raw["sub"])
	}
	if raw["type"] != "access" {
		t.Fatalf(`expected claim type == "access", got %v`, raw["type"])
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	ttl := time.Hour

	tok, err := GenerateAccessToken(1, "u@x.com", secret, testNow, ttl)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	if _, err := VerifyAccessToken(tok, secret, testNow.Add(ttl-time.Second)); err != nil {
		t.Fatalf("token rejected just before expiry: %v", err)
	}
	if _, err := VerifyAccessToken(tok, secret, testNow.Add(ttl+time.Second)); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken just after expiry, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateAccessToken(2, "u@x.com", []byte("right-secret"), testNow, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	if _, err := VerifyAccessToken(tok, []byte("wrong-secret"), testNow); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateAccessToken(3, "u@x.com", secret, testNow, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	// Flip one byte in the signature segment.
	i := strings.LastIndex(tok, ".") + 1
	b := []byte(tok)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}

	if _, err := VerifyAccessToken(string(b), secret, testNow); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	if _, err := VerifyAccessToken("not.a.jwt", []byte("k"), testNow); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken for malformed token, got %v", err)
	}
}

// signRaw produces a token with arbitrary claims so wrong-type and
// missing-field cases can be exercised.
func signRaw(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing error: %v", err)
	}
	return tok
}

func TestVerify_RejectsNonAccessKind(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	exp := testNow.Add(time.Hour).Unix()

	cases := []jwt.MapClaims{
		{"sub": "1", "email": "u@x.com", "type": "refresh", "exp": exp},
		{"sub": "1", "email": "u@x.com", "exp": exp},
		{"sub": "1", "email": "u@x.com", "type": "ACCESS", "exp": exp},
	}
	for i, c := range cases {
		tok := signRaw(t, secret, c)
		if _, err := VerifyAccessToken(tok, secret, testNow); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("case %d: expected common.ErrInvalidToken, got %v", i, err)
		}
	}
}

func TestVerify_RejectsMissingOrBadFields(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	exp := testNow.Add(time.Hour).Unix()

	cases := []jwt.MapClaims{
		{"email": "u@x.com", "type": "access", "exp": exp},              // no sub
		{"sub": "abc", "email": "u@x.com", "type": "access", "exp": exp}, // non-numeric sub
		{"sub": "1", "type": "access", "exp": exp},                       // no email
		{"sub": "1", "email": "u@x.com", "type": "access"},               // no exp
	}
	for i, c := range cases {
		tok := signRaw(t, secret, c)
		if _, err := VerifyAccessToken(tok, secret, testNow); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("case %d: expected common.ErrInvalidToken, got %v", i, err)
		}
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "1", "email": "u@x.com", "type": "access", "exp": testNow.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing error: %v", err)
	}

	if _, err := VerifyAccessToken(tok, []byte("secret"), testNow); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf(`expected common.ErrInvalidToken for alg "none", got %v`, err)
	}
}
