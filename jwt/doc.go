// Package jwt inspects access tokens on the client side. Tokens are issued
// and validated by the server; the client only reads registered claims
// (subject, expiry) without verifying the signature, to decide when a
// proactive refresh is worthwhile. Nothing here is an authorization check.
package jwt
