package transfer

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a malformed call, such as a nil stream.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCancelled reports that the context was done at a chunk boundary.
	ErrCancelled = errors.New("transfer cancelled")
	// ErrIO matches every *IOError.
	ErrIO = errors.New("i/o failure")
)

// Operations recorded in IOError.Op.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// IOError is returned when the source or the destination fails mid-transfer.
// The destination may hold Transferred bytes of partial output.
type IOError struct {
	Op          string
	Transferred int64
	Err         error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s failed after %d bytes: %v", e.Op, e.Transferred, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// cancelError matches both ErrCancelled and the context's cancellation cause.
type cancelError struct {
	transferred int64
	cause       error
}

func cancelled(ctx context.Context, transferred int64) error {
	return &cancelError{transferred: transferred, cause: context.Cause(ctx)}
}

func (e *cancelError) Error() string {
	return fmt.Sprintf("%v after %d bytes: %v", ErrCancelled, e.transferred, e.cause)
}

func (e *cancelError) Unwrap() []error {
	return []error{ErrCancelled, e.cause}
}
