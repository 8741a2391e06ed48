// Package automation implements the per-parameter command queue.
//
// A Queue accumulates declarative commands - starting values, timed
// sets, ramps - through a chainable builder, and applies them against a
// live node relative to an anchor timestamp at play time. Queues carry
// no node references: the same queue can be applied to a fresh
// throwaway node on every play, which is how envelopes re-trigger
// identically regardless of node lifetime.
//
// APPLY ORDER:
//
// Apply issues commands in a fixed category order regardless of how
// they interleaved at enqueue time: starting values first, then timed
// sets, then ramps. A ramp must find its starting point already in
// place, so starting values always land before anything scheduled.
// Within a category, enqueue order is preserved; the backend breaks
// same-timestamp ties in favor of the later submission.
//
// Ramp validation is synchronous: an unsupported curve kind or an
// exponential ramp touching zero fails at enqueue time and leaves the
// queue unchanged.
package automation
