package device

import (
	"errors"
	"fmt"
)

// ErrNotConnected is the sentinel cause for operations attempted on a
// disconnected capability.
var ErrNotConnected = errors.New("not connected")

// ConnectionError wraps any transport failure raised by a capability.
// The prober converts these into error-status results; they are never
// allowed to escape as a crash.
type ConnectionError struct {
	// Op is the capability operation that failed.
	Op string

	// Err is the underlying transport error.
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("device: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError wraps err as a ConnectionError for the given
// operation.
func NewConnectionError(op string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Err: err}
}

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
