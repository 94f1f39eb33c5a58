package vidya

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines the engine's static configuration. Configure once, pass to
// [Builder.WithConfig], and treat as immutable afterwards.
type Config struct {
	API     APIConfig
	Auth    AuthConfig
	Token   TokenConfig
	Events  EventsConfig
	Metrics MetricsConfig
}

// APIConfig describes the remote surfaces the engine consumes.
type APIConfig struct {
	// BaseURL is the versioned REST prefix, e.g. "https://api.vidya.app/v1".
	BaseURL string
	// GraphQLURL is the single GraphQL POST endpoint. Optional; GraphQL
	// operations fail validation at Build when empty and used.
	GraphQLURL string
	// Timeout bounds each request when the caller's context has no earlier
	// deadline.
	Timeout time.Duration
	// UserAgent is sent on every request.
	UserAgent string
}

// AuthConfig describes the authentication endpoints and the phone policy.
// The country code is deliberately configuration, not a constant: the
// engine serves more than one market.
type AuthConfig struct {
	OTPRequestPath string
	OTPVerifyPath  string
	RefreshPath    string
	LogoutPath     string
	MePath         string

	// CountryCode is prefixed to bare national numbers, e.g. "+91".
	CountryCode string
	// MinPhoneDigits is the minimum digit count accepted before any network
	// call.
	MinPhoneDigits int
}

// TokenConfig tunes credential handling.
type TokenConfig struct {
	// RefreshEarlyWindow, when positive, refreshes the access token before
	// sending a request whose token expires inside the window. Best-effort:
	// a failed early refresh falls back to the stored token and the normal
	// unauthorized path. Zero disables the behavior.
	RefreshEarlyWindow time.Duration
}

// EventsConfig controls the async session-event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   15 * time.Second,
			UserAgent: "vidya-client",
		},
		Auth: AuthConfig{
			OTPRequestPath: "/auth/otp/request",
			OTPVerifyPath:  "/auth/otp/verify",
			RefreshPath:    "/auth/refresh",
			LogoutPath:     "/auth/logout",
			MePath:         "/users/me",
			CountryCode:    "+91",
			MinPhoneDigits: 10,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

// Validate reports configuration a [Builder] must refuse to build with.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("API BaseURL required")
	}
	if _, err := url.ParseRequestURI(c.API.BaseURL); err != nil {
		return errors.New("API BaseURL must be a valid URL")
	}
	if c.API.GraphQLURL != "" {
		if _, err := url.ParseRequestURI(c.API.GraphQLURL); err != nil {
			return errors.New("API GraphQLURL must be a valid URL")
		}
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must not be negative")
	}
	if c.Auth.MinPhoneDigits <= 0 {
		return errors.New("Auth MinPhoneDigits must be positive")
	}
	if c.Auth.CountryCode != "" && !strings.HasPrefix(c.Auth.CountryCode, "+") {
		return errors.New("Auth CountryCode must start with +")
	}
	if c.Token.RefreshEarlyWindow < 0 {
		return errors.New("Token RefreshEarlyWindow must not be negative")
	}
	for _, p := range []string{
		c.Auth.OTPRequestPath,
		c.Auth.OTPVerifyPath,
		c.Auth.RefreshPath,
		c.Auth.LogoutPath,
		c.Auth.MePath,
	} {
		if p == "" || !strings.HasPrefix(p, "/") {
			return errors.New("Auth endpoint paths must start with /")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a shallow copy is a deep copy.
	return cfg
}
