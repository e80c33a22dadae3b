package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package and by the request
// service matches exactly one of them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	// ErrDependency marks a store failure. The unit of work was rolled back
	// and the call may be retried.
	ErrDependency = errors.New("dependency failure")
)

var (
	// ErrAlreadyResolved is returned when resolving a request that has left
	// the pending state. Re-resolution never applies a second transfer.
	ErrAlreadyResolved = fmt.Errorf("%w: request already resolved", ErrConflict)
	// ErrSelfRequest is returned when requester and provider are the same user.
	ErrSelfRequest = fmt.Errorf("%w: cannot request your own skill", ErrValidation)
	// ErrHoursOutOfRange is returned for hours outside [1, 168].
	ErrHoursOutOfRange = fmt.Errorf("%w: hours must be a whole number between 1 and 168", ErrValidation)
)

func dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}

// classify makes sure err carries one of the error kinds; anything unknown
// (context cancellation, driver errors) is a dependency failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrConflict, ErrDependency} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return dependency("ledger", err)
}

// Kind returns a short label for err's kind, used for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "dependency"
	}
}
