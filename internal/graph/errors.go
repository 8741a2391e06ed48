package graph

import (
	"errors"
	"fmt"
)

// ConfigErrorCode categorizes graph construction failures.
type ConfigErrorCode string

const (
	// ErrCodeSourceConflict indicates a spec with none or more than one
	// of {ref, factory, handle}, or a createdOnPlay spec without a
	// factory to re-create its node from.
	ErrCodeSourceConflict ConfigErrorCode = "SOURCE_CONFLICT"

	// ErrCodeUnresolvedDestination indicates a destination name that
	// matches no other spec in the graph.
	ErrCodeUnresolvedDestination ConfigErrorCode = "UNRESOLVED_DESTINATION"

	// ErrCodeDuplicateName indicates two specs sharing a name, or an
	// empty name.
	ErrCodeDuplicateName ConfigErrorCode = "DUPLICATE_NAME"

	// ErrCodeCycleDetected indicates a destination chain that never
	// reaches the sink.
	ErrCodeCycleDetected ConfigErrorCode = "CYCLE_DETECTED"
)

// ConfigError is a synchronous build-time failure. Build is
// all-or-nothing: when it returns a ConfigError no graph exists and no
// backend state was created.
type ConfigError struct {
	Code    ConfigErrorCode
	Spec    string // name of the offending NodeSpec, if known
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Spec != "" {
		return fmt.Sprintf("%s: %s (spec=%s)", e.Code, e.Message, e.Spec)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err is a graph configuration error.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// NotFoundError is returned by graph lookups for unknown names, and
// for nodes that exist as specs but are not materialized (deferred
// createdOnPlay connections outside a playback session).
type NotFoundError struct {
	Kind string // "connection" or "node"
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("NOT_FOUND: %s %q", e.Kind, e.Name)
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
