package vidya

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anveshlabs/vidya/transport"
)

// ErrNoGraphQLEndpoint is returned by [Client.Query] when no GraphQL URL
// was configured.
var ErrNoGraphQLEndpoint = errors.New("vidya: no GraphQL endpoint configured")

const graphQLUnauthorizedCode = "UNAUTHORIZED"

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type graphQLEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// graphQLResult is one round trip against the GraphQL endpoint, envelope
// already parsed.
type graphQLResult struct {
	status   int
	envelope graphQLEnvelope
	header   http.Header
	body     []byte
}

// unauthorized reports whether the result signals an expired access token.
// GraphQL carries this as an error entry with extensions.code UNAUTHORIZED
// even under a 200 status; a plain 401 counts too.
func (r *graphQLResult) unauthorized() bool {
	if r.status == http.StatusUnauthorized {
		return true
	}
	for _, e := range r.envelope.Errors {
		if e.Extensions.Code == graphQLUnauthorizedCode {
			return true
		}
	}
	return false
}

// Query executes an authenticated GraphQL operation and decodes the data
// payload into out. Unauthorized results go through the same single-flight
// refresh and replay-once handling as REST 401s.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if c.config.API.GraphQLURL == "" {
		return ErrNoGraphQLEndpoint
	}
	start := time.Now()
	defer c.observeLatency(start)

	access, err := c.tokens.Access(ctx)
	if err != nil {
		c.metricInc(MetricRequestFailure)
		return err
	}
	access = c.maybeRefreshEarly(ctx, access)

	result, err := c.sendGraphQL(ctx, query, variables, access)
	if err != nil {
		c.metricInc(MetricRequestFailure)
		return err
	}

	if result.unauthorized() {
		c.metricInc(MetricRequestUnauthorized)
		fresh, rerr := c.awaitRefresh(ctx)
		if rerr != nil {
			c.metricInc(MetricRequestFailure)
			return rerr
		}
		result, err = c.sendGraphQL(ctx, query, variables, fresh)
		if err != nil {
			c.metricInc(MetricRequestFailure)
			return err
		}
		if result.unauthorized() {
			c.metricInc(MetricRequestFailure)
			return ErrSessionExpired
		}
	}

	if len(result.envelope.Errors) > 0 {
		c.metricInc(MetricRequestFailure)
		return &ServerError{
			StatusCode: result.status,
			Message:    joinGraphQLErrors(result.envelope.Errors),
		}
	}

	if out != nil && len(result.envelope.Data) > 0 {
		if err := json.Unmarshal(result.envelope.Data, out); err != nil {
			c.metricInc(MetricRequestFailure)
			return &ProtocolError{
				ContentType: result.header.Get("Content-Type"),
				Preview:     bodyPreview(result.body),
			}
		}
	}
	c.metricInc(MetricRequestSuccess)
	return nil
}

func (c *Client) sendGraphQL(ctx context.Context, query string, variables map[string]any, access string) (*graphQLResult, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, &ValidationError{Field: "variables", Reason: err.Error()}
	}

	header := c.baseHeader(ctx, access)
	header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.config.API.GraphQLURL,
		Header: header,
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}

	result := &graphQLResult{status: resp.StatusCode, header: resp.Header, body: resp.Body}
	if resp.StatusCode == http.StatusUnauthorized {
		return result, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverErrorFrom(resp)
	}
	if err := json.Unmarshal(resp.Body, &result.envelope); err != nil {
		return nil, &ProtocolError{
			ContentType: resp.Header.Get("Content-Type"),
			Preview:     bodyPreview(resp.Body),
		}
	}
	return result, nil
}

func joinGraphQLErrors(errs []graphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	if len(msgs) == 0 {
		return "graphql operation failed"
	}
	return strings.Join(msgs, "; ")
}
