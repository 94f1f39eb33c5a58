package token

import (
	"context"
	"strconv"
)

// Persisted key layout. These are stable external contract: a host that
// migrates between KV backends must carry the same keys.
const (
	KeyAccessToken  = "auth/access_token"
	KeyRefreshToken = "auth/refresh_token"
	KeyCachedUser   = "auth/user"

	KeyOnboardingDone = "app/onboarding_done"
	KeyDisplayName    = "app/display_name"
	KeyDeviceID       = "app/device_id"
)

// Store wraps a [KV] with typed accessors for the credential pair, the
// cached user record, and app-level flags.
//
// The access and refresh tokens are set and cleared together: SetPair and
// Clear are the only mutators, both backed by multi-key operations. The
// cached user is stored as raw JSON; the engine owns its schema.
type Store struct {
	kv KV
}

// NewStore creates a [Store] over the given key-value backend.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Access returns the stored access token, or "" when absent.
func (s *Store) Access(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyAccessToken)
	return v, err
}

// Refresh returns the stored refresh token, or "" when absent.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyRefreshToken)
	return v, err
}

// SetPair persists both tokens in a single multi-key write.
func (s *Store) SetPair(ctx context.Context, access, refresh string) error {
	return s.kv.MultiSet(ctx, map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	})
}

// SetSession persists both tokens and the serialized user record in one
// multi-key write, so a crash cannot leave tokens without a user or vice
// versa.
func (s *Store) SetSession(ctx context.Context, access, refresh string, userJSON []byte) error {
	return s.kv.MultiSet(ctx, map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
		KeyCachedUser:   string(userJSON),
	})
}

// Clear removes both tokens and the cached user record.
func (s *Store) Clear(ctx context.Context) error {
	return s.kv.MultiRemove(ctx, []string{KeyAccessToken, KeyRefreshToken, KeyCachedUser})
}

// CachedUser returns the serialized user record, or nil when absent.
func (s *Store) CachedUser(ctx context.Context) ([]byte, error) {
	v, ok, err := s.kv.Get(ctx, KeyCachedUser)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// SetCachedUser stores the serialized user record.
func (s *Store) SetCachedUser(ctx context.Context, userJSON []byte) error {
	return s.kv.Set(ctx, KeyCachedUser, string(userJSON))
}

// OnboardingDone reports whether the onboarding-completed marker is set.
func (s *Store) OnboardingDone(ctx context.Context) (bool, error) {
	v, ok, err := s.kv.Get(ctx, KeyOnboardingDone)
	if err != nil || !ok {
		return false, err
	}
	done, _ := strconv.ParseBool(v)
	return done, nil
}

// SetOnboardingDone records the onboarding-completed marker.
func (s *Store) SetOnboardingDone(ctx context.Context, done bool) error {
	return s.kv.Set(ctx, KeyOnboardingDone, strconv.FormatBool(done))
}

// DisplayName returns the cached display name, or "" when absent.
func (s *Store) DisplayName(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyDisplayName)
	return v, err
}

// SetDisplayName caches the display name for offline rendering.
func (s *Store) SetDisplayName(ctx context.Context, name string) error {
	return s.kv.Set(ctx, KeyDisplayName, name)
}

// DeviceID returns the persisted device identifier, or "" when none has
// been minted yet.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyDeviceID)
	return v, err
}

// SetDeviceID persists the device identifier.
func (s *Store) SetDeviceID(ctx context.Context, id string) error {
	return s.kv.Set(ctx, KeyDeviceID, id)
}
