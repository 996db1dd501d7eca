package sio

import (
	"errors"

	"github.com/karagenc/sio-core/adapter"
)

// This is a wrapper for the errors internal to sio-core.
//
// If you see this error, this means that the problem is
// neither a network error, nor an error caused by you, but
// the packet could not be encoded or decoded.
type InternalError struct {
	err error
}

func (e InternalError) Error() string {
	return "sio: internal error: " + e.err.Error()
}

func (e InternalError) Unwrap() error {
	return e.err
}

func wrapInternalError(err error) *InternalError {
	return &InternalError{err: err}
}

var ErrInvalidState = errors.New("sio: invalid socket state")

// InvalidStateError is returned by socket operations that
// are only valid while the socket is connected.
type InvalidStateError struct {
	Op    string
	State SocketState
}

func (e *InvalidStateError) Error() string {
	return "sio: " + e.Op + ": socket is " + e.State.String()
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

type AdapterUnavailableError = adapter.UnavailableError

var ErrAdapterUnavailable = adapter.ErrUnavailable
