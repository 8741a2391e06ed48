package automation

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes automation enqueue errors.
type ErrorCode string

const (
	// ErrCodeInvalidRampType indicates an unsupported ramp curve kind.
	ErrCodeInvalidRampType ErrorCode = "INVALID_RAMP_TYPE"

	// ErrCodeInvalidRampTarget indicates an exponential ramp from or
	// toward zero, where the curve is undefined.
	ErrCodeInvalidRampTarget ErrorCode = "INVALID_RAMP_TARGET"
)

// Error is a synchronous enqueue-time validation failure. The queue it
// was raised against is never modified by the failing call.
type Error struct {
	Code    ErrorCode
	Key     string // parameter path the command targeted
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key=%s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidRampType reports whether err is an unsupported-curve error.
func IsInvalidRampType(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == ErrCodeInvalidRampType
}

// IsInvalidRampTarget reports whether err is an exponential-zero error.
func IsInvalidRampTarget(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == ErrCodeInvalidRampTarget
}

func newInvalidRampType(key string, kind RampKind) *Error {
	return &Error{
		Code:    ErrCodeInvalidRampType,
		Key:     key,
		Message: fmt.Sprintf("unsupported ramp kind %q", kind),
	}
}

func newInvalidRampTarget(key string, value float64) *Error {
	return &Error{
		Code:    ErrCodeInvalidRampTarget,
		Key:     key,
		Message: fmt.Sprintf("exponential ramp cannot touch %v", value),
	}
}
