package vidya

import (
	"context"

	"github.com/google/uuid"
)

// OnboardingDone reports whether the first-run flow has completed on this
// device. Absent means not completed.
func (c *Client) OnboardingDone(ctx context.Context) (bool, error) {
	return c.tokens.OnboardingDone(ctx)
}

// SetOnboardingDone records the first-run flow outcome.
func (c *Client) SetOnboardingDone(ctx context.Context, done bool) error {
	return c.tokens.SetOnboardingDone(ctx, done)
}

// DisplayName returns the locally stored display name, empty when unset.
func (c *Client) DisplayName(ctx context.Context) (string, error) {
	return c.tokens.DisplayName(ctx)
}

// SetDisplayName stores the display name locally.
func (c *Client) SetDisplayName(ctx context.Context, name string) error {
	return c.tokens.SetDisplayName(ctx, name)
}

// DeviceID returns this installation's stable identifier, minting and
// persisting one on first use. It survives logout: [token.Store.Clear] only
// removes session keys.
func (c *Client) DeviceID(ctx context.Context) (string, error) {
	id, err := c.tokens.DeviceID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := c.tokens.SetDeviceID(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

const statsQuery = `query MyStats {
  myStats {
    xp
    streak
    quizzes_taken
    correct_answers
    rank
  }
}`

// Stats fetches the authenticated user's aggregate quiz statistics.
func (c *Client) Stats(ctx context.Context) (*UserStats, error) {
	var payload struct {
		MyStats UserStats `json:"myStats"`
	}
	if err := c.Query(ctx, statsQuery, nil, &payload); err != nil {
		return nil, err
	}
	return &payload.MyStats, nil
}

const leaderboardQuery = `query Leaderboard($limit: Int!) {
  leaderboard(limit: $limit) {
    user_id
    name
    xp
    rank
  }
}`

// LeaderboardTop fetches the top limit leaderboard entries in rank order.
func (c *Client) LeaderboardTop(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, &ValidationError{Field: "limit", Reason: "must be positive"}
	}

	var payload struct {
		Leaderboard []LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.Query(ctx, leaderboardQuery, map[string]any{"limit": limit}, &payload); err != nil {
		return nil, err
	}
	return payload.Leaderboard, nil
}
