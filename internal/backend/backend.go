package backend

// CancelFunc cancels a pending Notify registration. Calling it after
// the callback has fired is a no-op.
type CancelFunc func()

// Context is the rendering context capability the core schedules
// against. It owns the clock, node creation, and the edge set of the
// live node graph.
type Context interface {
	// CurrentTime returns the current time in seconds on the backend
	// clock. The clock is monotonic and never rewinds.
	CurrentTime() float64

	// CreateNode creates a fresh node of the given kind with initial
	// parameter values. The returned node is unconnected.
	CreateNode(kind string, params map[string]float64) (Node, error)

	// Lookup resolves a named node previously registered with the
	// context (a reference path, e.g. "master.gain").
	Lookup(path string) (Node, error)

	// Destination returns the sink node representing final output.
	// It is always present and cannot be disconnected from.
	Destination() Node

	// Connect wires src's output to dst's input.
	Connect(src, dst Node) error

	// Disconnect removes the src → dst edge. Disconnecting an edge
	// that does not exist is an error.
	Disconnect(src, dst Node) error

	// Notify schedules fn to run when the backend clock reaches at.
	// If at is not in the future, fn runs synchronously. Callbacks
	// registered for the same time fire in registration order.
	Notify(at float64, fn func()) CancelFunc
}

// Node is a handle to one live node in the backend graph.
type Node interface {
	// Kind reports the node kind it was created with.
	Kind() string

	// Param resolves a parameter by path. Paths may be nested
	// ("gain.value"); the backend decides what resolves.
	Param(path string) (Param, error)

	// SetBuffer assigns a sample buffer to a source node. Non-source
	// nodes reject it.
	SetBuffer(buf Buffer) error

	// Start schedules the node to begin producing output at the given
	// time. Only source nodes support it.
	Start(at float64) error

	// Stop schedules the node to cease producing output at the given
	// time.
	Stop(at float64) error

	// CancelScheduledValues drops every not-yet-executed parameter
	// operation on this node scheduled strictly after the given time.
	// Already-executed operations are untouched.
	CancelScheduledValues(after float64) error
}

// Param is one automatable parameter on a node.
type Param interface {
	// SetValueAtTime schedules an instantaneous set at the given time.
	SetValueAtTime(value, at float64) error

	// LinearRampToValueAtTime schedules a linear ramp ending at the
	// given time, starting from whatever value is in effect when the
	// previous scheduled operation completes.
	LinearRampToValueAtTime(value, at float64) error

	// ExponentialRampToValueAtTime schedules an exponential ramp
	// ending at the given time. The backend rejects a target of zero;
	// the curve is undefined there.
	ExponentialRampToValueAtTime(value, at float64) error

	// Value reports the most recently committed value.
	Value() float64
}

// Buffer is an opaque decoded sample buffer. The core never inspects
// sample data; it only hands buffers to source nodes.
type Buffer interface {
	// Duration reports the buffer length in seconds.
	Duration() float64
}
