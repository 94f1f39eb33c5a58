package vidya

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/anveshlabs/vidya/token"
	"github.com/anveshlabs/vidya/transport"
)

// refreshOutcome is what every caller blocked on a refresh receives once it
// settles: the freshly persisted pair on success, or the terminal error
// otherwise. Carrying the whole pair keeps callers that need both tokens
// from re-reading storage and pairing tokens across generations.
type refreshOutcome struct {
	pair TokenPair
	err  error
}

// refreshCoordinator serializes token refreshes. At most one refresh call is
// in flight at any time; concurrent callers queue in arrival order and all
// receive the same outcome.
type refreshCoordinator struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshOutcome
}

// awaitRefresh returns a fresh access token for a request that was actually
// rejected: a failed refresh here ends the session. At most one refresh
// network call is issued no matter how many goroutines arrive concurrently;
// the first caller leads, the rest wait for its outcome, and the leader
// persists the new pair before any waiter is released.
func (c *Client) awaitRefresh(ctx context.Context) (string, error) {
	pair, err := c.coordinateRefresh(ctx, true)
	return pair.AccessToken, err
}

// awaitEarlyRefresh is the proactive variant used before a token has been
// rejected. It shares the same coordinator, but a failure is returned to the
// caller without tearing the session down: the stored token is still valid
// and the normal unauthorized path remains available.
func (c *Client) awaitEarlyRefresh(ctx context.Context) (string, error) {
	pair, err := c.coordinateRefresh(ctx, false)
	return pair.AccessToken, err
}

func (c *Client) coordinateRefresh(ctx context.Context, teardown bool) (TokenPair, error) {
	c.refresh.mu.Lock()
	if c.refresh.inFlight {
		ch := make(chan refreshOutcome, 1)
		c.refresh.waiters = append(c.refresh.waiters, ch)
		c.refresh.mu.Unlock()
		c.metricInc(MetricWaiterEnqueued)

		select {
		case outcome := <-ch:
			return outcome.pair, outcome.err
		case <-ctx.Done():
			return TokenPair{}, &NetworkError{
				Method: http.MethodPost,
				URL:    c.endpoint(c.config.Auth.RefreshPath),
				Err:    ctx.Err(),
			}
		}
	}
	c.refresh.inFlight = true
	c.refresh.mu.Unlock()

	// The in-flight flag must clear even if the refresh panics, otherwise
	// every later 401 would block forever.
	outcome := refreshOutcome{err: ErrSessionExpired}
	defer func() { c.settleRefresh(outcome) }()

	outcome = c.leadRefresh(ctx, teardown)
	return outcome.pair, outcome.err
}

// leadRefresh is the leader's half of a coordinated refresh: read the stored
// refresh token, exchange it at the refresh endpoint, and persist the new
// pair. With teardown set, a failed exchange ends the session; a proactive
// leader instead hands the error back and leaves credentials untouched. A
// storage failure is surfaced as-is either way and never logs the user out.
func (c *Client) leadRefresh(ctx context.Context, teardown bool) refreshOutcome {
	refresh, err := c.tokens.Refresh(ctx)
	if err != nil {
		return refreshOutcome{err: err}
	}
	if refresh == "" {
		c.metricInc(MetricRefreshFailure)
		if !teardown {
			return refreshOutcome{err: ErrSessionExpired}
		}
		c.expireSession(ctx, errors.New("no refresh token stored"))
		return refreshOutcome{err: ErrSessionExpired}
	}

	pair, err := c.callRefreshEndpoint(ctx, refresh)
	if err != nil {
		c.metricInc(MetricRefreshFailure)
		c.emitEvent(ctx, EventRefreshFailure, false, err, nil)
		if errors.Is(err, token.ErrUnavailable) || !teardown {
			return refreshOutcome{err: err}
		}
		c.expireSession(ctx, err)
		return refreshOutcome{err: ErrSessionExpired}
	}

	if err := c.tokens.SetPair(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		c.metricInc(MetricRefreshFailure)
		c.emitEvent(ctx, EventRefreshFailure, false, err, nil)
		return refreshOutcome{err: err}
	}

	c.metricInc(MetricRefreshSuccess)
	c.emitEvent(ctx, EventRefreshSuccess, true, nil, nil)
	return refreshOutcome{pair: *pair}
}

// settleRefresh clears the in-flight flag and releases waiters in arrival
// order, each with the shared outcome. Every waiter then replays its own
// original request.
func (c *Client) settleRefresh(outcome refreshOutcome) {
	c.refresh.mu.Lock()
	waiters := c.refresh.waiters
	c.refresh.waiters = nil
	c.refresh.inFlight = false
	c.refresh.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome
	}
	if n := uint64(len(waiters)); n > 0 {
		if outcome.err == nil {
			c.metrics.Add(MetricWaiterReplayed, n)
		} else {
			c.metrics.Add(MetricWaiterRejected, n)
		}
	}
}

// callRefreshEndpoint exchanges a refresh token for a new pair. It talks to
// the transport directly so a 401 here surfaces as a ServerError instead of
// re-entering the gateway's refresh handling.
func (c *Client) callRefreshEndpoint(ctx context.Context, refresh string) (*TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refresh})
	if err != nil {
		return nil, err
	}
	header := c.baseHeader(ctx, "")
	header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.endpoint(c.config.Auth.RefreshPath),
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := decodeResponse(resp, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, &ProtocolError{
			ContentType: resp.Header.Get("Content-Type"),
			Preview:     bodyPreview(resp.Body),
		}
	}
	return &pair, nil
}

// expireSession tears the local session down: credentials are cleared and
// the expiry is announced so the embedding app can route to login.
func (c *Client) expireSession(ctx context.Context, cause error) {
	if err := c.tokens.Clear(ctx); err != nil {
		log.Print("vidya: credential clear failed during session expiry")
	}
	c.metricInc(MetricSessionExpired)
	c.emitEvent(ctx, EventSessionExpired, false, cause, nil)
}
