// Package transport issues single HTTP requests on behalf of the vidya
// client engine. It knows nothing about authentication, refresh, or JSON
// contracts: it takes a fully prepared request, applies the configured
// timeout, and returns the raw response or a NetworkError. Classification
// of the response is the gateway's job, not transport's.
package transport
