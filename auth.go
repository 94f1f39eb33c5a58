package vidya

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// RequestOTP normalizes the phone number and asks the backend to send a
// one-time password to it. The returned string is the normalized number the
// code was sent to; pass the same value to [Client.VerifyOTP].
func (c *Client) RequestOTP(ctx context.Context, phone string) (string, error) {
	if c.closed.Load() {
		return "", ErrClientClosed
	}

	normalized, err := c.normalizePhone(phone)
	if err != nil {
		return "", err
	}

	body := map[string]string{"phone": normalized}
	if err := c.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     c.config.Auth.OTPRequestPath,
		body:     body,
		skipAuth: true,
	}, nil); err != nil {
		c.emitEvent(ctx, EventOTPRequested, false, err, nil)
		return "", err
	}

	c.metricInc(MetricOTPRequested)
	c.emitEvent(ctx, EventOTPRequested, true, nil, func() map[string]string {
		return map[string]string{"phone": normalized}
	})
	return normalized, nil
}

// VerifyOTP exchanges a delivered code for a session. On success the token
// pair and user record are persisted in a single storage write before the
// response is returned, so a crash between verify and return cannot leave a
// half-written session.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*AuthResponse, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	normalized, err := c.normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{Field: "code", Reason: "must not be empty"}
	}

	var auth AuthResponse
	if err := c.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     c.config.Auth.OTPVerifyPath,
		body:     map[string]string{"phone": normalized, "code": code},
		skipAuth: true,
	}, &auth); err != nil {
		c.emitEvent(ctx, EventOTPVerified, false, err, nil)
		return nil, err
	}
	if auth.AccessToken == "" || auth.RefreshToken == "" {
		return nil, &ProtocolError{Preview: "verify response missing tokens"}
	}

	userJSON, err := json.Marshal(auth.User)
	if err != nil {
		return nil, err
	}
	if err := c.tokens.SetSession(ctx, auth.AccessToken, auth.RefreshToken, userJSON); err != nil {
		return nil, err
	}

	c.metricInc(MetricOTPVerified)
	c.emitEvent(ctx, EventOTPVerified, true, nil, func() map[string]string {
		return map[string]string{"user_id": auth.User.UserID}
	})
	return &auth, nil
}

// RefreshTokens forces a token refresh and returns the new pair. Concurrent
// callers and gateway-triggered refreshes share a single network call; the
// pair is persisted before this returns.
func (c *Client) RefreshTokens(ctx context.Context) (*TokenPair, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	pair, err := c.coordinateRefresh(ctx, true)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Logout ends the session. The server-side revocation is best effort: the
// local session is cleared unconditionally, and only a storage failure is
// returned.
func (c *Client) Logout(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	if err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   c.config.Auth.LogoutPath,
	}, nil); err != nil {
		log.Print("vidya: server logout failed, clearing local session anyway")
	}

	if err := c.tokens.Clear(ctx); err != nil {
		return err
	}

	c.metricInc(MetricLogout)
	c.emitEvent(ctx, EventLogout, true, nil, nil)
	return nil
}

// CurrentUser fetches the authenticated user's record and caches it locally.
// Any failure collapses to a nil record: callers treat nil as "not signed
// in" and route to login.
func (c *Client) CurrentUser(ctx context.Context) *UserRecord {
	if c.closed.Load() {
		return nil
	}

	var user UserRecord
	if err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   c.config.Auth.MePath,
	}, &user); err != nil {
		return nil
	}
	if user.UserID == "" {
		return nil
	}

	if userJSON, err := json.Marshal(user); err == nil {
		if err := c.tokens.SetCachedUser(ctx, userJSON); err != nil {
			log.Print("vidya: user cache write failed")
		}
	}
	return &user
}

// CachedUser returns the locally cached user record without touching the
// network, or nil when none is stored.
func (c *Client) CachedUser(ctx context.Context) *UserRecord {
	raw, err := c.tokens.CachedUser(ctx)
	if err != nil || raw == nil {
		return nil
	}
	var user UserRecord
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil
	}
	return &user
}

// IsAuthenticated reports whether an access token is present locally. It is
// a routing hint, not a validity check: the token may already be expired and
// the gateway will refresh on first use.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	access, err := c.tokens.Access(ctx)
	if err != nil {
		return false, err
	}
	return access != "", nil
}

// normalizePhone strips formatting, enforces the minimum national length and
// prefixes the configured country code unless the number already carries
// one.
func (c *Client) normalizePhone(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	hasPrefix := strings.HasPrefix(trimmed, "+")

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	national := digits.String()
	if len(national) < c.config.Auth.MinPhoneDigits {
		return "", &ValidationError{Field: "phone", Reason: "too few digits"}
	}

	if hasPrefix {
		return "+" + national, nil
	}
	return c.config.Auth.CountryCode + national, nil
}
