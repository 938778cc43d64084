package aichat

import (
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned by sources asked to send a nil payload.
var ErrEmptyPayload = errors.New("nothing to send")

// InvocationError is returned when a model request fails: network failure,
// non-success HTTP status or a malformed response envelope.
type InvocationError struct {
	Model  string // Model name
	Op     string // "invoke" or "stream"
	Status int    // HTTP status code, 0 when no response was received
	Err    error
}

func (e *InvocationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Model, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Model, e.Op, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

// IsInvocationError reports whether err is or wraps an *InvocationError.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}
