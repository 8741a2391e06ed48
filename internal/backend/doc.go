// Package backend defines the rendering-backend boundary.
//
// The scheduling core never talks to real audio hardware. It issues
// scheduled operations (value sets, ramps, start/stop) against the
// interfaces in this package and returns immediately; the backend
// executes them on its own clock. Everything time-valued is a float64
// of seconds on that clock.
//
// ORDERING CONTRACT:
//
// For a single parameter, operations execute in the time order they
// were submitted. When two operations share a timestamp, the one
// submitted last wins. Across parameters and nodes there is no ordering
// guarantee beyond the timestamps themselves.
//
// Implementations: backend/virtual (deterministic, in-memory, used by
// tests and the CLI). A production implementation adapts a real audio
// context to these interfaces.
package backend
