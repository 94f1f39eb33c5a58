// Package vidya is the client-side engine for the Vidya learning app:
// an authenticated API gateway with transparent token refresh, phone+OTP
// session management, persistent token storage, and session event dispatch.
//
// The package is designed for event-driven UI hosts: Client methods are safe
// to call from multiple goroutines after initialization through
// [Builder.Build], and the refresh protocol guarantees at most one token
// refresh is in flight per Client at any time.
//
// # Architecture boundaries
//
// vidya is the public surface. It exposes [Client], [Builder], [Config], and
// value types (UserRecord, AuthResponse, MetricsSnapshot, Event). Transport,
// token storage, token inspection, and the quiz state machine live in leaf
// subpackages (transport, token, jwt, quiz) that never import vidya.
//
// # What this package must NOT do
//
//   - Render UI, navigate, or assume anything about the host's screens. The
//     "show the login flow" collaborator is an event [Sink], nothing more.
//   - Retry network failures on its own. A [NetworkError] is surfaced once;
//     retry policy belongs to the caller.
//   - Hold module-level state. Every Client owns its refresh coordinator;
//     there are no package-level singletons.
//
// # Refresh contract
//
// A request that observes an unauthorized response triggers exactly one
// refresh call per Client process, no matter how many requests fail
// concurrently; the rest enqueue as FIFO waiters and replay their original
// requests with the new token. A refresh failure rejects all waiters with
// [ErrSessionExpired], clears stored credentials, and emits
// [EventSessionExpired].
package vidya
