package ftpio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

var (
	// ErrDeadlineExceeded is matched by every *TimeoutError.
	ErrDeadlineExceeded = errors.New("ftpio: deadline exceeded")

	// ErrClosed is returned for I/O on a stream after Close.
	ErrClosed = fmt.Errorf("ftpio: stream closed: %w", net.ErrClosed)

	// ErrDone signals the normal end of an iteration. It is not a failure.
	ErrDone = errors.New("ftpio: no more items")

	// ErrUnknownThrottle is returned when a named throttle pair is not registered.
	ErrUnknownThrottle = errors.New("ftpio: unknown throttle")
)

// TimeoutError reports an operation that did not finish within the timeout
// resolved for it. The in-flight operation has been cancelled.
type TimeoutError struct {
	// Name is the timeout that fired (e.g. "read", "write", "timeout").
	Name string

	// Timeout is the value the name resolved to when the call started.
	Timeout time.Duration

	// Err is the error the cancelled operation returned, if any.
	Err error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ftpio: %s timeout after %s", e.Name, e.Timeout)
}

// Timeout reports true so a *TimeoutError satisfies net.Error-style checks.
func (e *TimeoutError) Timeout() bool { return true }

// Is matches ErrDeadlineExceeded and context.DeadlineExceeded.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrDeadlineExceeded || target == context.DeadlineExceeded
}

// Unwrap returns the error of the cancelled operation.
func (e *TimeoutError) Unwrap() error { return e.Err }

// IncompleteReadError is returned by ReadExactly when the transport reaches
// EOF before the requested number of bytes arrived.
type IncompleteReadError struct {
	// Expected is the number of bytes requested.
	Expected int

	// Partial holds the bytes that were read before EOF.
	Partial []byte
}

// Error implements the error interface.
func (e *IncompleteReadError) Error() string {
	return fmt.Sprintf("ftpio: %d bytes read on a total of %d expected bytes", len(e.Partial), e.Expected)
}

// Unwrap returns io.ErrUnexpectedEOF.
func (e *IncompleteReadError) Unwrap() error { return io.ErrUnexpectedEOF }

// IsTimeout reports whether err was caused by an expired ftpio timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
