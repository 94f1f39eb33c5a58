package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a token cannot be parsed at all.
var ErrMalformed = errors.New("malformed token")

// Claims holds the registered claims the client cares about. Zero times
// mean the claim was absent.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Inspect parses the token without verifying its signature and returns its
// registered claims. The server remains the only party that validates
// tokens; Inspect exists so the client can schedule refreshes.
func Inspect(token string) (*Claims, error) {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(token, &jwtlib.RegisteredClaims{})
	if err != nil {
		return nil, ErrMalformed
	}

	registered, ok := parsed.Claims.(*jwtlib.RegisteredClaims)
	if !ok {
		return nil, ErrMalformed
	}

	claims := &Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	if registered.IssuedAt != nil {
		claims.IssuedAt = registered.IssuedAt.Time
	}
	return claims, nil
}

// ExpiresWithin reports whether the token expires inside the window starting
// at now. Tokens without an expiry claim never report true.
func (c *Claims) ExpiresWithin(window time.Duration, now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !c.ExpiresAt.After(now.Add(window))
}
