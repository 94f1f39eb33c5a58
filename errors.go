package vidya

import (
	"errors"
	"fmt"

	"github.com/anveshlabs/vidya/token"
	"github.com/anveshlabs/vidya/transport"
)

var (
	// ErrSessionExpired is returned when no refresh token is stored, when the
	// refresh call itself fails, or when a request is still unauthorized after
	// being retried with a freshly minted token. The session is not
	// recoverable by retrying; the caller must re-authenticate.
	ErrSessionExpired = errors.New("session expired")
	// ErrClientClosed is returned by operations invoked after Client.Close.
	ErrClientClosed = errors.New("client closed")
)

// ErrStorageUnavailable reports that the underlying key-value store could not
// be reached. Storage failures are fatal for the operation in progress and
// are never silently treated as "logged out".
var ErrStorageUnavailable = token.ErrUnavailable

// NetworkError reports that a request produced no response at all. It is the
// transport-level failure type; see [transport.NetworkError].
type NetworkError = transport.NetworkError

// ServerError is a non-success response with a parseable or fallback message.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, e.Message)
}

// ProtocolError reports a response whose body could not be interpreted as
// the expected JSON. Preview is a bounded prefix of the offending body.
type ProtocolError struct {
	ContentType string
	Preview     string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: unexpected content type %q: %s", e.ContentType, e.Preview)
}

// ValidationError rejects caller-supplied input before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
