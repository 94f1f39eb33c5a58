// Package token persists session credentials and small app-level values
// behind a key-value abstraction. Store is the typed surface the engine
// uses; KV is the raw collaborator the host supplies (device storage on
// mobile, Redis for server-side agents and load testing, memory in tests).
//
// A storage failure is never interpreted as "logged out": every accessor
// surfaces ErrUnavailable and leaves the decision to the caller.
package token
