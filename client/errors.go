package client

import (
	"errors"
	"fmt"
)

// ErrHTTPStatus marks a TransportError caused by a non-2xx response.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// TransportError reports a failed POST to the event receiver. StatusCode is
// zero when no response was received.
type TransportError struct {
	Endpoint   string
	Action     string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s to %s: %v", e.Action, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s to %s failed: %v", e.Action, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
