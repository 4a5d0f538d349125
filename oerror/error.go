package oerror

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is returned when a move record could not be decoded.
	ErrMalformedRecord = errors.New("malformed move record")
	// ErrUnsupportedVersion is returned when a move record carries a schema version this build can't read.
	ErrUnsupportedVersion = errors.New("unsupported move record version")
	// ErrBufferExhausted is returned when the saved move buffer had to drop its oldest entry.
	ErrBufferExhausted = errors.New("saved move buffer exhausted")
	// ErrDuplicateRecord is returned when a record with an already applied sequence is received.
	ErrDuplicateRecord = errors.New("duplicate move record")
	// ErrOutOfOrder is returned when a record older than the last applied one is received.
	ErrOutOfOrder = errors.New("move record out of order")
	// ErrClosed is returned when operating on a context, session or connection that was closed.
	ErrClosed = errors.New("use of closed movement context")
	// ErrUnknownFrame is returned by the frame codec for frames of an unknown kind.
	ErrUnknownFrame = errors.New("unknown frame kind")
)

type OomphError struct {
	Err string
	err error
}

// New formats an error message. Like fmt.Errorf, a %w verb wraps the given error
// so that it can be matched with errors.Is.
func New(format string, args ...any) *OomphError {
	err := fmt.Errorf(format, args...)
	return &OomphError{Err: err.Error(), err: errors.Unwrap(err)}
}

func NewOomphError(err string) *OomphError {
	return &OomphError{Err: err}
}

func (e *OomphError) Error() string {
	return e.Err
}

func (e *OomphError) Unwrap() error {
	return e.err
}
