package upstream

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced issue does not exist upstream.
var ErrNotFound = errors.New("not found upstream")

// UnavailableError indicates a network-level failure talking to the
// upstream tracker. Callers must not retry automatically; retrying would
// amplify load during an upstream outage.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// RejectedError indicates the upstream tracker returned a non-success
// status. Message is sanitized; it never carries the API credential.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upstream rejected request: %d %s", e.StatusCode, e.Message)
}
