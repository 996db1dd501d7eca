package adapter

import "errors"

var ErrUnavailable = errors.New("adapter: backend unavailable")

// UnavailableError is returned when an adapter could not reach its backend.
// The adapter's local state is left as it was before the call.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return "adapter: " + e.Op + ": backend unavailable"
	}
	return "adapter: " + e.Op + ": backend unavailable: " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }
