package vidya

import (
	"testing"

	"github.com/anveshlabs/vidya/token"
	"github.com/anveshlabs/vidya/transport"
)

func TestBuilderRequiresKV(t *testing.T) {
	_, err := New().WithBaseURL("https://api.vidya.app/v1").Build()
	if err == nil {
		t.Fatal("expected error without a key-value store")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	_, err := New().WithKV(token.NewMemoryKV()).Build()
	if err == nil {
		t.Fatal("expected error without a base URL")
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	b := New().
		WithBaseURL("https://api.vidya.app/v1").
		WithKV(token.NewMemoryKV())

	client, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	t.Cleanup(client.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second build to fail")
	}
}

func TestBuilderDefaultsTransport(t *testing.T) {
	client, err := New().
		WithBaseURL("https://api.vidya.app/v1").
		WithKV(token.NewMemoryKV()).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(client.Close)

	if _, ok := client.http.(*transport.HTTPClient); !ok {
		t.Fatalf("expected default HTTP transport, got %T", client.http)
	}
}

func TestBuilderConfigIsCopied(t *testing.T) {
	cfg := validTestConfig()
	b := New().WithConfig(cfg).WithKV(token.NewMemoryKV())

	// Mutating the caller's config after handing it over must not leak in.
	cfg.API.BaseURL = "https://evil.example"

	client, err := b.Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(client.Close)

	if client.config.API.BaseURL != "https://api.vidya.app/v1" {
		t.Fatalf("config not isolated: %q", client.config.API.BaseURL)
	}
}
