package vidya

import (
	"errors"

	"github.com/anveshlabs/vidya/token"
	"github.com/anveshlabs/vidya/transport"
)

// Builder assembles a [Client]. A Builder is single-use: Build succeeds at
// most once.
type Builder struct {
	config Config

	transport transport.Doer
	kv        token.KV
	sink      Sink

	built bool
}

// New returns a [Builder] carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBaseURL sets the REST base URL without replacing the whole config.
func (b *Builder) WithBaseURL(url string) *Builder {
	b.config.API.BaseURL = url
	return b
}

// WithGraphQLURL sets the GraphQL endpoint without replacing the whole
// config.
func (b *Builder) WithGraphQLURL(url string) *Builder {
	b.config.API.GraphQLURL = url
	return b
}

// WithTransport injects a [transport.Doer]. When omitted, Build creates an
// HTTP transport with the configured timeout.
func (b *Builder) WithTransport(doer transport.Doer) *Builder {
	b.transport = doer
	return b
}

// WithKV injects the persistent key-value store holding credentials and
// app flags. Required.
func (b *Builder) WithKV(kv token.KV) *Builder {
	b.kv = kv
	return b
}

// WithEventSink injects the session-event consumer, typically the host's
// navigation layer observing [EventSessionExpired].
func (b *Builder) WithEventSink(sink Sink) *Builder {
	b.sink = sink
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the [Client].
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.kv == nil {
		return nil, errors.New("key-value store required")
	}

	doer := b.transport
	if doer == nil {
		doer = transport.NewHTTPClient(cfg.API.Timeout)
	}

	client := &Client{
		config:  cfg,
		http:    doer,
		tokens:  token.NewStore(b.kv),
		events:  newEventDispatcher(cfg.Events, b.sink),
		metrics: NewMetrics(cfg.Metrics),
	}

	b.built = true

	return client, nil
}
