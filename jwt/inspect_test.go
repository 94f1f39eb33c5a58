package jwt

import (
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwtlib.RegisteredClaims) string {
	t.Helper()

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return signed
}

func TestInspectReadsRegisteredClaims(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	expires := issued.Add(15 * time.Minute)

	raw := signedToken(t, jwtlib.RegisteredClaims{
		Subject:   "u1",
		IssuedAt:  jwtlib.NewNumericDate(issued),
		ExpiresAt: jwtlib.NewNumericDate(expires),
	})

	claims, err := Inspect(raw)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if !claims.ExpiresAt.Equal(expires) {
		t.Fatalf("expires %v want %v", claims.ExpiresAt, expires)
	}
	if !claims.IssuedAt.Equal(issued) {
		t.Fatalf("issued %v want %v", claims.IssuedAt, issued)
	}
}

func TestInspectDoesNotVerifySignature(t *testing.T) {
	raw := signedToken(t, jwtlib.RegisteredClaims{Subject: "u1"})

	// Corrupt the signature; parsing must still succeed because the client
	// only schedules refreshes, it never trusts the token.
	tampered := raw[:len(raw)-4] + "AAAA"
	claims, err := Inspect(tampered)
	if err != nil {
		t.Fatalf("Inspect failed on tampered signature: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestInspectMalformed(t *testing.T) {
	for _, raw := range []string{"", "not-a-token", "a.b"} {
		if _, err := Inspect(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Inspect(%q) = %v, want ErrMalformed", raw, err)
		}
	}
}

func TestExpiresWithin(t *testing.T) {
	now := time.Now()

	soon := &Claims{ExpiresAt: now.Add(30 * time.Second)}
	if !soon.ExpiresWithin(time.Minute, now) {
		t.Fatal("token expiring in 30s must be inside a 1m window")
	}

	later := &Claims{ExpiresAt: now.Add(10 * time.Minute)}
	if later.ExpiresWithin(time.Minute, now) {
		t.Fatal("token expiring in 10m must be outside a 1m window")
	}

	expired := &Claims{ExpiresAt: now.Add(-time.Minute)}
	if !expired.ExpiresWithin(time.Minute, now) {
		t.Fatal("already-expired token must report true")
	}

	noExpiry := &Claims{}
	if noExpiry.ExpiresWithin(time.Hour, now) {
		t.Fatal("token without expiry must never report true")
	}

	var nilClaims *Claims
	if nilClaims.ExpiresWithin(time.Hour, now) {
		t.Fatal("nil claims must report false")
	}
}
