package location

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies a failed position request.
type ErrorCode int

const (
	// PermissionDenied means the user or platform refused access to position data.
	PermissionDenied ErrorCode = 1
	// PositionUnavailable means no fix could be obtained.
	PositionUnavailable ErrorCode = 2
	// Timeout means no fix arrived within Options.Timeout.
	Timeout ErrorCode = 3
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// PositionError is reported to error callbacks.
type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPositionError converts a provider failure into a PositionError.
func NewPositionError(err error) *PositionError {
	var pe *PositionError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &PositionError{Code: Timeout, Message: err.Error()}
	}
	return &PositionError{Code: PositionUnavailable, Message: err.Error()}
}
