package password

import (
	"strings"
	"testing"
)

// testParams keeps hashing cheap in tests while staying above the
// validation minimums.
func testParams() Params {
	return Params{Time: 1, MemoryKiB: 8 * 1024, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(testParams())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashVerify_RoundTrip(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if !h.Verify("correct horse battery staple", encoded) {
		t.Fatal("Verify rejected the original password")
	}
	if h.Verify("wrong password", encoded) {
		t.Fatal("Verify accepted a different password")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical; salt is not random")
	}
	if !h.Verify("pw123", a) || !h.Verify("pw123", b) {
		t.Fatal("Verify failed for freshly produced hashes")
	}
}

func TestVerify_MalformedHashIsNoMatch(t *testing.T) {
	h := newTestHasher(t)

	cases := []string{
		"",
		"not-a-phc-string",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$AAAA",
		"$argon2id$v=19$bogus$AAAA$AAAA",
		"$bcrypt$v=19$m=8192,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$AAAA$AAAA",
	}
	for _, c := range cases {
		if h.Verify("pw123", c) {
			t.Fatalf("Verify accepted malformed hash %q", c)
		}
	}
}

func TestVerify_EmptyStoredHash(t *testing.T) {
	// OAuth-only accounts carry an empty password hash; any password
	// attempt against them must fail without an error.
	h := newTestHasher(t)
	if h.Verify("anything", "") {
		t.Fatal("Verify accepted a password against an empty stored hash")
	}
}

func TestNewHasher_RejectsWeakParams(t *testing.T) {
	weak := []Params{
		{Time: 0, MemoryKiB: 8192, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Time: 1, MemoryKiB: 1024, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Time: 1, MemoryKiB: 8192, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Time: 1, MemoryKiB: 8192, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Time: 1, MemoryKiB: 8192, Parallelism: 1, SaltLength: 16, KeyLength: 16},
	}
	for i, p := range weak {
		if _, err := NewHasher(p); err == nil {
			t.Fatalf("case %d: NewHasher accepted weak params %+v", i, p)
		}
	}
}

func TestDefaultParams_MatchRecommendedProfile(t *testing.T) {
	p := DefaultParams()
	if p.Time != 3 || p.MemoryKiB != 64*1024 || p.Parallelism != 1 {
		t.Fatalf("unexpected default cost parameters: %+v", p)
	}
	if p.SaltLength != 16 || p.KeyLength != 32 {
		t.Fatalf("unexpected default lengths: %+v", p)
	}
	if _, err := NewHasher(p); err != nil {
		t.Fatalf("default params rejected: %v", err)
	}
}
