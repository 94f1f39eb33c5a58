package vidya

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anveshlabs/vidya/token"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New().
		WithBaseURL(server.URL).
		WithGraphQLURL(server.URL + "/graphql").
		WithKV(token.NewMemoryKV()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(client.Close)

	return client, server
}

func seedSession(t *testing.T, client *Client, access, refresh string) {
	t.Helper()
	if err := client.tokens.SetPair(context.Background(), access, refresh); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}
}

func TestGatewayDecodesJSONResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing request id header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":"u1","phone":"+911234567890","name":"Asha"}`))
	}))
	seedSession(t, client, "access-1", "refresh-1")

	var user UserRecord
	if err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/users/me"}, &user); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if user.UserID != "u1" || user.Name != "Asha" {
		t.Fatalf("unexpected user %+v", user)
	}
	if got := client.MetricsSnapshot().Counters[MetricRequestSuccess]; got != 1 {
		t.Fatalf("expected 1 request success, got %d", got)
	}
}

func TestGatewayEmptyBodyIsSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	seedSession(t, client, "access-1", "refresh-1")

	var out map[string]any
	if err := client.do(context.Background(), apiRequest{method: http.MethodPost, path: "/noop"}, &out); err != nil {
		t.Fatalf("expected empty 2xx body to succeed, got %v", err)
	}
}

func TestGatewayServerErrorMessageExtraction(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"phone already registered"}`))
	}))

	err := client.do(context.Background(), apiRequest{method: http.MethodPost, path: "/x", skipAuth: true}, nil)
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.StatusCode != http.StatusBadRequest || serverErr.Message != "phone already registered" {
		t.Fatalf("unexpected server error %+v", serverErr)
	}
}

func TestGatewayServerErrorFallsBackToStatusText(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream truncated"))
	}))

	err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/x", skipAuth: true}, nil)
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.Message != http.StatusText(http.StatusServiceUnavailable) {
		t.Fatalf("expected status text fallback, got %q", serverErr.Message)
	}
}

func TestGatewayProtocolErrorOnNonJSONBody(t *testing.T) {
	page := "<html><body>" + strings.Repeat("captive portal ", 40) + "</body></html>"
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))

	var out map[string]any
	err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/x", skipAuth: true}, &out)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if protoErr.ContentType != "text/html" {
		t.Fatalf("unexpected content type %q", protoErr.ContentType)
	}
	if len(protoErr.Preview) > previewLimit+3 {
		t.Fatalf("preview not bounded: %d bytes", len(protoErr.Preview))
	}
}

func TestGatewayNetworkError(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close()

	err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/x", skipAuth: true}, nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestGatewayRetriedRequestStillUnauthorized(t *testing.T) {
	var refreshCalls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			refreshCalls++
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2"}`))
			return
		}
		// The resource rejects even the freshly minted token.
		w.WriteHeader(http.StatusUnauthorized)
	}))
	seedSession(t, client, "access-1", "refresh-1")

	err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/protected"}, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if refreshCalls != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", refreshCalls)
	}
}

func TestGatewayReplayUsesFreshToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/refresh":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2"}`))
		case r.Header.Get("Authorization") == "Bearer access-2":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	seedSession(t, client, "access-1", "refresh-1")

	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/protected"}, &out); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if !out.OK {
		t.Fatal("expected replayed request to decode response")
	}

	// The rotated pair must have been persisted.
	access, err := client.tokens.Access(context.Background())
	if err != nil || access != "access-2" {
		t.Fatalf("expected persisted access-2, got %q err %v", access, err)
	}
	refresh, err := client.tokens.Refresh(context.Background())
	if err != nil || refresh != "refresh-2" {
		t.Fatalf("expected persisted refresh-2, got %q err %v", refresh, err)
	}
}

func TestGatewayRejectsAfterClose(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	client.Close()

	err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/x", skipAuth: true}, nil)
	if !errors.Is(err, ErrClientClosed) {
		t.Fatalf("expected ErrClientClosed, got %v", err)
	}
}

func TestRequestIDFromContextIsForwarded(t *testing.T) {
	var seen string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx := WithRequestID(context.Background(), "fixed-id-1")
	if err := client.do(ctx, apiRequest{method: http.MethodGet, path: "/x", skipAuth: true}, nil); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if seen != "fixed-id-1" {
		t.Fatalf("expected pinned request id, got %q", seen)
	}
}

func TestGatewayEarlyRefreshBeforeExpiry(t *testing.T) {
	var refreshed atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/auth/refresh":
			refreshed.Store(true)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2"}`))
		case r.Header.Get("Authorization") == "Bearer access-2":
			w.WriteHeader(http.StatusNoContent)
		default:
			// The old token would still be accepted; the client should not
			// have sent it.
			t.Errorf("request used stale token %q", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(server.Close)

	cfg := defaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.Token.RefreshEarlyWindow = 5 * time.Minute

	client, err := New().
		WithConfig(cfg).
		WithKV(token.NewMemoryKV()).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(client.Close)

	// Access token expiring inside the early window.
	expiring := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Minute)),
	})
	raw, err := expiring.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	seedSession(t, client, raw, "refresh-1")

	if err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/x"}, nil); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if !refreshed.Load() {
		t.Fatal("expected a proactive refresh before the request")
	}
}

func TestGatewayEarlyRefreshFailureKeepsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"refresh backend down"}`))
			return
		}
		// The stored token has not actually expired yet, so the request
		// must still carry it and succeed.
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ey") {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	cfg := defaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.Token.RefreshEarlyWindow = 5 * time.Minute

	sink := NewChannelSink(32)
	client, err := New().
		WithConfig(cfg).
		WithKV(token.NewMemoryKV()).
		WithEventSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(client.Close)

	expiring := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Minute)),
	})
	raw, err := expiring.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	seedSession(t, client, raw, "refresh-1")

	if err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/x"}, nil); err != nil {
		t.Fatalf("do failed: %v", err)
	}

	// Credentials must survive a failed proactive refresh.
	access, err := client.tokens.Access(context.Background())
	if err != nil || access != raw {
		t.Fatalf("expected stored access token to survive, got %q err %v", access, err)
	}
	refresh, err := client.tokens.Refresh(context.Background())
	if err != nil || refresh != "refresh-1" {
		t.Fatalf("expected stored refresh token to survive, got %q err %v", refresh, err)
	}

	// The failure is reported, but the session is never torn down. Events
	// dispatch in order, so once the failure event arrives a short drain is
	// enough to prove no expiry followed it.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.Type == EventSessionExpired {
				t.Fatal("proactive refresh failure must not expire the session")
			}
			if event.Type == EventRefreshFailure {
				select {
				case event := <-sink.Events():
					if event.Type == EventSessionExpired {
						t.Fatal("proactive refresh failure must not expire the session")
					}
				case <-time.After(100 * time.Millisecond):
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for refresh failure event")
		}
	}
}

func TestDecodeResponseArrayBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]LeaderboardEntry{{Rank: 1, UserID: "u1", Name: "Asha", XP: 900}})
	}))

	var entries []LeaderboardEntry
	if err := client.do(context.Background(), apiRequest{method: http.MethodGet, path: "/x", skipAuth: true}, &entries); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u1" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}
