package gkbus

import (
	"errors"
	"fmt"
	"time"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	var u unrecoverableError
	return !errors.As(err, &u)
}

var (
	ErrTimeout      = errors.New("timeout")
	ErrPortClosed   = errors.New("port is not open")
	ErrNilHardware  = errors.New("hardware is nil")
	ErrUnknownFrame = errors.New("unexpected frame")
)

// TimeoutError is returned when the hardware did not deliver the
// requested amount of data in time.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Want    int
	Got     int
}

func (e *TimeoutError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("%s timeout (%dms), got %d of %d bytes", e.Op, e.Timeout.Milliseconds(), e.Got, e.Want)
	}
	return fmt.Sprintf("%s timeout (%dms)", e.Op, e.Timeout.Milliseconds())
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsTimeout reports whether err is or wraps a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

type OpeningPortError struct {
	Port string
	Err  error
}

func (e *OpeningPortError) Error() string {
	return fmt.Sprintf("failed to open port %q: %v", e.Port, e.Err)
}

func (e *OpeningPortError) Unwrap() error {
	return e.Err
}

// ArgumentError reports a request that can not be built from the given
// parameters.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Arg, e.Reason)
}

func NewArgumentError(arg, format string, v ...any) *ArgumentError {
	return &ArgumentError{Arg: arg, Reason: fmt.Sprintf(format, v...)}
}
