package vidya

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anveshlabs/vidya/jwt"
	"github.com/anveshlabs/vidya/transport"
)

// apiRequest is a REST call as the gateway sees it: method, path relative to
// the configured base URL, an optional JSON body, and whether the call runs
// outside the authenticated session (OTP request/verify, token refresh).
type apiRequest struct {
	method   string
	path     string
	body     any
	skipAuth bool
}

// do issues a REST request through the full gateway pipeline: header
// attachment, proactive refresh, 401 recovery with single-flight refresh and
// one replay, and response classification. On success the body is decoded
// into out (which may be nil for operations without a response payload).
func (c *Client) do(ctx context.Context, req apiRequest, out any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	start := time.Now()
	defer c.observeLatency(start)

	access := ""
	if !req.skipAuth {
		var err error
		access, err = c.tokens.Access(ctx)
		if err != nil {
			c.metricInc(MetricRequestFailure)
			return err
		}
		access = c.maybeRefreshEarly(ctx, access)
	}

	resp, err := c.send(ctx, req, access)
	if err != nil {
		c.metricInc(MetricRequestFailure)
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.skipAuth {
		c.metricInc(MetricRequestUnauthorized)
		fresh, rerr := c.awaitRefresh(ctx)
		if rerr != nil {
			c.metricInc(MetricRequestFailure)
			return rerr
		}
		resp, err = c.send(ctx, req, fresh)
		if err != nil {
			c.metricInc(MetricRequestFailure)
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			// A just-minted token that is still rejected cannot be repaired
			// by another refresh.
			c.metricInc(MetricRequestFailure)
			return ErrSessionExpired
		}
	}

	if err := decodeResponse(resp, out); err != nil {
		c.metricInc(MetricRequestFailure)
		return err
	}
	c.metricInc(MetricRequestSuccess)
	return nil
}

// send performs a single HTTP round trip with the gateway headers attached.
func (c *Client) send(ctx context.Context, req apiRequest, access string) (*transport.Response, error) {
	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, &ValidationError{Field: "body", Reason: err.Error()}
		}
		payload = b
	}

	header := c.baseHeader(ctx, access)
	if payload != nil {
		header.Set("Content-Type", "application/json")
	}
	return c.http.Do(ctx, transport.Request{
		Method: req.method,
		URL:    c.endpoint(req.path),
		Header: header,
		Body:   payload,
	})
}

func (c *Client) baseHeader(ctx context.Context, access string) http.Header {
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", c.config.API.UserAgent)
	header.Set("X-Request-ID", requestIDFromContext(ctx))
	if access != "" {
		header.Set("Authorization", "Bearer "+access)
	}
	return header
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.config.API.BaseURL, "/") + path
}

// maybeRefreshEarly refreshes ahead of expiry when the stored access token
// falls inside the configured early window. Best effort: any failure leaves
// the original token in play and the request proceeds with it.
func (c *Client) maybeRefreshEarly(ctx context.Context, access string) string {
	window := c.config.Token.RefreshEarlyWindow
	if window <= 0 || access == "" {
		return access
	}
	claims, err := jwt.Inspect(access)
	if err != nil || !claims.ExpiresWithin(window, time.Now()) {
		return access
	}
	if refresh, err := c.tokens.Refresh(ctx); err != nil || refresh == "" {
		return access
	}
	fresh, err := c.awaitEarlyRefresh(ctx)
	if err != nil {
		log.Print("vidya: early refresh failed, proceeding with stored token")
		return access
	}
	return fresh
}

// decodeResponse classifies a completed round trip. Non-2xx becomes a
// ServerError, an empty 2xx body is success, and a 2xx body that does not
// decode as JSON becomes a ProtocolError carrying a bounded preview.
func decodeResponse(resp *transport.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverErrorFrom(resp)
	}
	body := bytes.TrimSpace(resp.Body)
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{
			ContentType: resp.Header.Get("Content-Type"),
			Preview:     bodyPreview(resp.Body),
		}
	}
	return nil
}

// serverErrorFrom extracts a human-readable message from an error response.
// Servers answer with {"message": ...} or {"error": ...}; anything else
// falls back to the HTTP status text.
func serverErrorFrom(resp *transport.Response) *ServerError {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := ""
	if json.Unmarshal(resp.Body, &envelope) == nil {
		message = envelope.Message
		if message == "" {
			message = envelope.Error
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: message}
}

const previewLimit = 160

func bodyPreview(body []byte) string {
	preview := strings.TrimSpace(string(body))
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}
	return preview
}
