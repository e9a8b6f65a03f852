package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the upstream answered a read with an empty body.
	ErrNotFound = errors.New("upstream: work order not found")

	// ErrIntegrityViolation means a read returned a different work order
	// than the one requested. The data must not be written back.
	ErrIntegrityViolation = errors.New("upstream: fetched work order does not match request")
)

// Error is a failed upstream call: a non-2xx answer, an unreadable body, or
// a transport failure (StatusCode 0).
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("upstream %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("upstream %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIntegrityViolation checks if error is an id mismatch on read
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrIntegrityViolation)
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr.StatusCode
	}
	return 0
}
