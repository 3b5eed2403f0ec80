package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for resolution and dispatch failures.
// All of them are terminal for the current send attempt; the core never
// retries on its own.
var (
	// ErrChannelUnresolved means no usable channel was found after the
	// full fallback chain. Configuration problem, surfaced to the admin.
	ErrChannelUnresolved = errors.New("no whatsapp channel configured")

	// ErrGatewayNotConfigured means an Evolution channel resolved but no
	// gateway row is marked connected
	ErrGatewayNotConfigured = errors.New("evolution gateway not configured")

	// ErrNoInstanceAvailable means the channel lacks an instance binding
	// and gateway discovery found none
	ErrNoInstanceAvailable = errors.New("no evolution instance available")
)

// ValidationError reports a malformed send request. Caller's fault, not
// retryable without fixing the input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError reports a rejected or failed upstream call. Status and
// body are carried verbatim so operators can diagnose provider-side
// issues without provider log access.
type UpstreamError struct {
	Provider   APIType
	StatusCode int
	Body       json.RawMessage
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s api call failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s api error %d: %s", e.Provider, e.StatusCode, string(e.Body))
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
