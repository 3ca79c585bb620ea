package exception

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter returned when discovery is called with a missing
// destination, a retry budget below one, a negative timeout, or an
// unsupported protocol
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrNoResponse returned when the search converged without a single
// successful reply at any probed size
var ErrNoResponse = errors.New("no response from destination")

// ErrSocket matches every *SocketError via errors.Is
var ErrSocket = errors.New("socket error")

// SocketError reports a socket creation, bind, option, or I/O failure.
// These are fatal to a discovery run.
type SocketError struct {
	Op  string
	Err error
}

// NewSocketError returns a *SocketError for the given operation
func NewSocketError(op string, err error) *SocketError {
	return &SocketError{Op: op, Err: err}
}

func (e *SocketError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrSocket, e.Op)
	}

	return fmt.Sprintf("%s: %s: %s", ErrSocket, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *SocketError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, ErrSocket) for any *SocketError
func (e *SocketError) Is(target error) bool {
	return target == ErrSocket
}
