package automation

import (
	"fmt"

	"github.com/roach88/cadenza/internal/backend"
)

// RampKind selects the curve shape of a ramp command.
type RampKind string

const (
	// RampLinear ramps in a straight line to the target.
	RampLinear RampKind = "linear"
	// RampExponential ramps along an exponential curve to the target.
	// It is the default, and it cannot start from or end at zero.
	RampExponential RampKind = "exponential"
)

func (k RampKind) valid() bool {
	return k == RampLinear || k == RampExponential
}

// CommandKind tags the variant of one queued command.
type CommandKind int

const (
	// CommandStartingValue sets the parameter immediately at the anchor.
	CommandStartingValue CommandKind = iota + 1
	// CommandSetAtTime sets the parameter at anchor + Offset.
	CommandSetAtTime
	// CommandLinearRamp ramps linearly, ending at anchor + Offset.
	CommandLinearRamp
	// CommandExponentialRamp ramps exponentially, ending at anchor + Offset.
	CommandExponentialRamp
)

// Command is one immutable queued automation command. Offset is the
// set time for CommandSetAtTime and the ramp end time for ramp
// commands, both in seconds relative to the play anchor.
type Command struct {
	Kind   CommandKind
	Key    string
	Value  float64
	Offset float64
}

// Queue is an ordered command buffer for one connection. The zero
// value is an empty, usable queue.
//
// A Queue is not safe for concurrent mutation; the scheduling model is
// single-threaded cooperative.
type Queue struct {
	cmds []Command
}

// Len returns the number of queued commands.
func (q *Queue) Len() int { return len(q.cmds) }

// Empty reports whether the queue holds no commands.
func (q *Queue) Empty() bool { return len(q.cmds) == 0 }

// Commands returns a copy of the queue in enqueue order.
func (q *Queue) Commands() []Command {
	out := make([]Command, len(q.cmds))
	copy(out, q.cmds)
	return out
}

// OnPlaySet begins a set command for the given parameter path.
func (q *Queue) OnPlaySet(key string) *SetCall {
	return &SetCall{q: q, key: key}
}

// SetCall is the first stage of the set builder: the key is fixed, the
// value is not.
type SetCall struct {
	q   *Queue
	key string
}

// To enqueues a starting value for the key. The returned continuation
// may refine it into a timed set or a ramp; left alone, the starting
// value stands and is applied immediately at the anchor.
func (s *SetCall) To(value float64) *SetContinuation {
	s.q.cmds = append(s.q.cmds, Command{Kind: CommandStartingValue, Key: s.key, Value: value})
	return &SetContinuation{q: s.q, key: s.key, value: value, idx: len(s.q.cmds) - 1}
}

// SetContinuation refines a just-enqueued starting value. At and
// EndingAt are terminal: each removes the starting value and enqueues
// its replacement, and a continuation can be finalized at most once.
type SetContinuation struct {
	q         *Queue
	key       string
	value     float64
	idx       int
	finalized bool
}

// At converts the starting value into a timed set at anchor + offset.
func (c *SetContinuation) At(offset float64) error {
	if c.finalized {
		return fmt.Errorf("automation: set %q already finalized", c.key)
	}
	c.removeStartingValue()
	c.q.cmds = append(c.q.cmds, Command{Kind: CommandSetAtTime, Key: c.key, Value: c.value, Offset: offset})
	c.finalized = true
	return nil
}

// EndingAt converts the starting value into a ramp ending at
// anchor + offset. The curve defaults to exponential.
func (c *SetContinuation) EndingAt(offset float64, kind ...RampKind) error {
	if c.finalized {
		return fmt.Errorf("automation: set %q already finalized", c.key)
	}
	k := RampExponential
	if len(kind) > 0 {
		k = kind[0]
	}
	if !k.valid() {
		return newInvalidRampType(c.key, k)
	}
	if k == RampExponential && c.value == 0 {
		return newInvalidRampTarget(c.key, c.value)
	}
	c.removeStartingValue()
	c.q.cmds = append(c.q.cmds, Command{Kind: rampCommandKind(k), Key: c.key, Value: c.value, Offset: offset})
	c.finalized = true
	return nil
}

// removeStartingValue drops the starting value this continuation
// enqueued. The index is still correct unless another builder was
// finalized in between; fall back to a scan in that case.
func (c *SetContinuation) removeStartingValue() {
	idx := -1
	if c.idx < len(c.q.cmds) && c.q.cmds[c.idx] == (Command{Kind: CommandStartingValue, Key: c.key, Value: c.value}) {
		idx = c.idx
	} else {
		for i, cmd := range c.q.cmds {
			if cmd.Kind == CommandStartingValue && cmd.Key == c.key && cmd.Value == c.value {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return
	}
	c.q.cmds = append(c.q.cmds[:idx], c.q.cmds[idx+1:]...)
}

func rampCommandKind(k RampKind) CommandKind {
	if k == RampLinear {
		return CommandLinearRamp
	}
	return CommandExponentialRamp
}

// OnPlayRamp begins a ramp for the given parameter path. The curve
// defaults to exponential; an unsupported kind fails here, not at
// apply time.
//
// From(a).To(b).In(t) on the returned builder enqueues exactly what
// OnPlaySet(key).To(a) followed by OnPlaySet(key).To(b).EndingAt(t,
// kind) would: a starting value and a ramp command.
func (q *Queue) OnPlayRamp(key string, kind ...RampKind) (*RampBuilder, error) {
	k := RampExponential
	if len(kind) > 0 {
		k = kind[0]
	}
	if !k.valid() {
		return nil, newInvalidRampType(key, k)
	}
	return &RampBuilder{q: q, key: key, kind: k}, nil
}

// RampBuilder accumulates a from/to/duration triple and finalizes with
// In. Nothing is enqueued until In succeeds.
type RampBuilder struct {
	q    *Queue
	key  string
	kind RampKind
	from float64
	to   float64
}

// From sets the ramp's starting value.
func (r *RampBuilder) From(value float64) *RampBuilder {
	r.from = value
	return r
}

// To sets the ramp's target value.
func (r *RampBuilder) To(value float64) *RampBuilder {
	r.to = value
	return r
}

// In finalizes the ramp, ending at anchor + endOffset. Exponential
// ramps reject a zero start or target; on error the queue is unchanged.
func (r *RampBuilder) In(endOffset float64) error {
	if r.kind == RampExponential {
		if r.from == 0 {
			return newInvalidRampTarget(r.key, r.from)
		}
		if r.to == 0 {
			return newInvalidRampTarget(r.key, r.to)
		}
	}
	r.q.cmds = append(r.q.cmds,
		Command{Kind: CommandStartingValue, Key: r.key, Value: r.from},
		Command{Kind: rampCommandKind(r.kind), Key: r.key, Value: r.to, Offset: endOffset},
	)
	return nil
}

// Apply issues every queued command against the node, anchored at the
// given absolute time: starting values at the anchor itself, timed
// sets at anchor + offset, ramps ending at anchor + offset. Categories
// apply in that order regardless of enqueue interleaving; enqueue
// order holds within each category.
//
// Apply never mutates the queue; the same queue re-applies identically
// on every play.
func (q *Queue) Apply(node backend.Node, anchor float64) error {
	for _, cmd := range q.cmds {
		if cmd.Kind != CommandStartingValue {
			continue
		}
		p, err := node.Param(cmd.Key)
		if err != nil {
			return fmt.Errorf("automation: apply %q: %w", cmd.Key, err)
		}
		if err := p.SetValueAtTime(cmd.Value, anchor); err != nil {
			return fmt.Errorf("automation: apply %q: %w", cmd.Key, err)
		}
	}
	for _, cmd := range q.cmds {
		if cmd.Kind != CommandSetAtTime {
			continue
		}
		p, err := node.Param(cmd.Key)
		if err != nil {
			return fmt.Errorf("automation: apply %q: %w", cmd.Key, err)
		}
		if err := p.SetValueAtTime(cmd.Value, anchor+cmd.Offset); err != nil {
			return fmt.Errorf("automation: apply %q: %w", cmd.Key, err)
		}
	}
	for _, cmd := range q.cmds {
		var ramp func(backend.Param, float64, float64) error
		switch cmd.Kind {
		case CommandLinearRamp:
			ramp = backend.Param.LinearRampToValueAtTime
		case CommandExponentialRamp:
			ramp = backend.Param.ExponentialRampToValueAtTime
		default:
			continue
		}
		p, err := node.Param(cmd.Key)
		if err != nil {
			return fmt.Errorf("automation: apply %q: %w", cmd.Key, err)
		}
		if err := ramp(p, cmd.Value, anchor+cmd.Offset); err != nil {
			return fmt.Errorf("automation: apply %q: %w", cmd.Key, err)
		}
	}
	return nil
}
