package player

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes playback failures.
type ErrorCode string

const (
	// ErrCodeAlreadyPlaying indicates a re-entrant play on a sound
	// whose source is a persistent, non-repeatable node. Recoverable:
	// stop first, then play.
	ErrCodeAlreadyPlaying ErrorCode = "ALREADY_PLAYING"

	// ErrCodePlayback indicates the backend rejected a scheduled
	// operation or an asset failed to load. Surfaced as the outcome of
	// the play call that triggered it, never retried here.
	ErrCodePlayback ErrorCode = "PLAYBACK"
)

// Error is a playback failure with structured context.
type Error struct {
	Code    ErrorCode
	Source  string // source connection name, if known
	Message string
	Err     error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s (source=%s)", e.Code, msg, e.Source)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// IsAlreadyPlaying reports whether err is a re-entrant play rejection.
func IsAlreadyPlaying(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == ErrCodeAlreadyPlaying
}

// IsPlaybackError reports whether err is a backend/asset failure.
func IsPlaybackError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == ErrCodePlayback
}

func playbackErr(source, message string, err error) *Error {
	return &Error{Code: ErrCodePlayback, Source: source, Message: message, Err: err}
}
