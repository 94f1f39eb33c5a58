package vidya

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/anveshlabs/vidya/token"
	"github.com/anveshlabs/vidya/transport"
)

// Client is the engine instance: the authenticated gateway, the session
// operations built on it, and the refresh coordinator they share. Construct
// exactly one per logical device through [Builder.Build]; the
// at-most-one-refresh-in-flight invariant holds per Client.
type Client struct {
	config  Config
	http    transport.Doer
	tokens  *token.Store
	events  *eventDispatcher
	metrics *Metrics
	refresh refreshCoordinator
	closed  atomic.Bool
}

// Close drains and stops the event dispatcher. In-flight requests finish;
// new operations fail with [ErrClientClosed].
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.closed.CompareAndSwap(false, true) {
		c.events.Close()
	}
}

// MetricsSnapshot returns a point-in-time copy of the client's metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// EventsDropped reports how many session events were dropped due to
// dispatcher backpressure.
func (c *Client) EventsDropped() uint64 {
	if c == nil || c.events == nil {
		return 0
	}
	return c.events.Dropped()
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) observeLatency(start time.Time) {
	if c.metrics != nil && c.metrics.LatencyEnabled() {
		c.metrics.Observe(MetricRequestLatency, time.Since(start))
	}
}

func (c *Client) emitEvent(ctx context.Context, eventType string, success bool, opErr error, metadata func() map[string]string) {
	if c == nil || c.events == nil {
		return
	}

	event := Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	c.events.Emit(ctx, event)
}
