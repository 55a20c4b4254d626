package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/cellsim/internal/world"
)

// RuntimeError represents an error detected while an event steps.
//
// Runtime errors include:
//   - Unsupported configuration: a shape/method combination that cannot run
//   - Count overflow: a computed release count outside the int32 range
//   - Invalid region expression: wrong leaf kind for the evaluation mode
//   - Placement failure: reported under the error policy
//   - Invalid state: a broken scheduling invariant
//
// Every RuntimeError returned from Step terminates the run.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Event names the event that failed, if any.
	Event string

	// Iteration is the event time at failure.
	Iteration float64

	// Details contains additional context.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnsupportedConfig indicates a configuration the event cannot run.
	ErrCodeUnsupportedConfig RuntimeErrorCode = "UNSUPPORTED_CONFIG"

	// ErrCodeCountOverflow indicates a release count outside the representable range.
	ErrCodeCountOverflow RuntimeErrorCode = "COUNT_OVERFLOW"

	// ErrCodeInvalidRegionExpr indicates a region expression that cannot be evaluated.
	ErrCodeInvalidRegionExpr RuntimeErrorCode = "INVALID_REGION_EXPR"

	// ErrCodePlacementFailed indicates a placement failure under the error policy.
	ErrCodePlacementFailed RuntimeErrorCode = "PLACEMENT_FAILED"

	// ErrCodeInvalidState indicates a scheduling invariant was broken.
	ErrCodeInvalidState RuntimeErrorCode = "INVALID_STATE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("%s: %s (event=%s, iteration=%g)", e.Code, e.Message, e.Event, e.Iteration)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *RuntimeError) Unwrap() error { return e.Cause }

// NewRuntimeError creates a RuntimeError with a formatted message.
func NewRuntimeError(code RuntimeErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err is a RuntimeError other than a placement
// failure. Placement failures terminate only under the error policy and are
// classified separately by IsPlacementError.
func IsFatal(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code != ErrCodePlacementFailed
	}
	return false
}

// IsPlacementError reports whether err is a placement failure.
// Uses errors.As to handle wrapped errors.
func IsPlacementError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodePlacementFailed
	}
	var pe *world.PlacementError
	return errors.As(err, &pe)
}

// CodeOf returns the code of a RuntimeError, or "" for other errors.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	if IsPlacementError(err) {
		return ErrCodePlacementFailed
	}
	return ""
}

// annotate stamps the failing event onto a RuntimeError, or wraps a plain
// error as one.
func annotate(err error, e Event) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Event == "" {
			re.Event = e.Name()
			re.Iteration = e.EventTime()
		}
		return err
	}
	code := ErrCodeInvalidState
	if IsPlacementError(err) {
		code = ErrCodePlacementFailed
	}
	return &RuntimeError{
		Code:      code,
		Message:   err.Error(),
		Event:     e.Name(),
		Iteration: e.EventTime(),
		Cause:     err,
	}
}
