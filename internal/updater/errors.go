package updater

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/livinlefevreloca/wosync/internal/directory"
	"github.com/livinlefevreloca/wosync/internal/upstream"
)

var (
	// ErrInvalidInput means the request itself is malformed. Nothing was sent
	// upstream.
	ErrInvalidInput = errors.New("updater: invalid input")

	// ErrFallbackInactive means a reassignment was required but the
	// configured fallback field worker is not active either.
	ErrFallbackInactive = errors.New("updater: fallback field worker is not active")
)

// Error kinds reported in ledgers, API responses and CLI output
const (
	KindInvalidInput         = "invalid_input"
	KindNotFound             = "not_found"
	KindIntegrityViolation   = "integrity_violation"
	KindDirectoryUnavailable = "directory_unavailable"
	KindFallbackInactive     = "fallback_inactive"
	KindUpstreamError        = "upstream_error"
	KindCancelled            = "cancelled"
	KindInternal             = "internal"
)

// UpdateError carries enough context to retry a failed update by hand.
type UpdateError struct {
	WorkOrderID int
	StatusID    int
	Op          string
	Err         error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update work order %d to status %d: %s: %v", e.WorkOrderID, e.StatusID, e.Op, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// Kind classifies err into one of the Kind constants. nil maps to "".
func Kind(err error) string {
	var upErr *upstream.Error

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case upstream.IsNotFound(err):
		return KindNotFound
	case upstream.IsIntegrityViolation(err):
		return KindIntegrityViolation
	case directory.IsUnavailable(err):
		return KindDirectoryUnavailable
	case errors.Is(err, ErrFallbackInactive):
		return KindFallbackInactive
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.As(err, &upErr):
		// Includes the client's own per-call timeout
		return KindUpstreamError
	case errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}

// ParseStatusID validates a status id supplied as text. Only plain base-10
// positive integers are accepted; nothing is coerced.
func ParseStatusID(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: status id is empty", ErrInvalidInput)
	}

	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: status id %q is not an integer", ErrInvalidInput, s)
		}
	}

	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: status id %q: %v", ErrInvalidInput, s, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: status id must be positive, got %d", ErrInvalidInput, id)
	}

	return id, nil
}
