package security

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, hash, expireAt, err := Generate(opts, "u1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if hash != HashToken(token) {
		t.Fatal("returned hash does not match HashToken")
	}
	if !expireAt.After(time.Now()) {
		t.Fatal("token already expired")
	}

	claims, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject() != "u1" {
		t.Fatalf("Subject() = %q, want u1", claims.Subject())
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, _, err := Generate(DefaultOptions([]byte("right")), "u1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := Verify(DefaultOptions([]byte("wrong")), token); err == nil {
		t.Fatal("token signed with another secret should fail")
	}
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions([]byte("secret"))
	opts.TTL = -time.Minute
	token, _, _, err := Generate(opts, "u1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := Verify(opts, token); err == nil {
		t.Fatal("expired token should fail")
	}
}

func TestUnsupportedAlg(t *testing.T) {
	opts := Options{Secret: []byte("s"), Alg: "RS256"}
	if _, _, _, err := Generate(opts, "u1"); err == nil {
		t.Fatal("non-HMAC alg should be rejected")
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("hash not stable")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("distinct tokens collided")
	}
}
