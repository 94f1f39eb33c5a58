package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes caps how much of a response body is read into memory.
// Learning-app payloads are small; anything past this is a misbehaving peer.
const maxBodyBytes = 4 << 20

// Request is a fully prepared HTTP request: the gateway has already attached
// authorization and content headers before it reaches transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the raw outcome of a single request. Body is fully read and
// the connection released before Do returns.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// NetworkError reports that no response was received: DNS failure, refused
// connection, timeout, or a canceled context. It is never produced for a
// response with any status code.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Doer issues one HTTP request. Implementations must be safe for concurrent
// use; the gateway fans many logical calls into a single Doer.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPClient is the net/http-backed [Doer] used by default.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPClient creates an [HTTPClient] with the given default per-request
// timeout. A zero timeout disables the default; callers can still bound
// individual requests through their context.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// NewHTTPClientWith wraps an existing *http.Client, keeping its transport
// and cookie configuration.
func NewHTTPClientWith(client *http.Client, timeout time.Duration) *HTTPClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPClient{
		client:  client,
		timeout: timeout,
	}
}

// Do issues the request and reads the full body. The default timeout applies
// only when the caller's context carries no earlier deadline.
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: err}
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Method: req.Method, URL: req.URL, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
