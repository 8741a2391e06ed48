package virtual

import (
	"fmt"

	"github.com/roach88/cadenza/internal/backend"
)

// node implements backend.Node. Parameters resolve lazily: any path is
// a valid parameter with initial value 0 unless it was declared at
// creation. The virtual backend does not model per-kind parameter sets.
type node struct {
	ctx    *Context
	name   string
	kind   string
	params map[string]*param
	buffer backend.Buffer
}

func (n *node) Kind() string { return n.kind }

// Name reports the node's op-log name ("kind#n" for created nodes, the
// registered path otherwise).
func (n *node) Name() string { return n.name }

func (n *node) Param(path string) (backend.Param, error) {
	if path == "" {
		return nil, fmt.Errorf("virtual: node %s: empty param path", n.name)
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	p, ok := n.params[path]
	if !ok {
		p = &param{node: n, path: path}
		n.params[path] = p
	}
	return p, nil
}

func (n *node) SetBuffer(buf backend.Buffer) error {
	if n == n.ctx.dest {
		return fmt.Errorf("virtual: destination accepts no buffer")
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.buffer = buf
	return nil
}

// Buffer returns the assigned sample buffer, if any.
func (n *node) Buffer() backend.Buffer {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	return n.buffer
}

func (n *node) Start(at float64) error {
	if n == n.ctx.dest {
		return fmt.Errorf("%w: %s", ErrNotStartable, n.name)
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.ctx.recordLocked(backend.Op{Node: n.name, Kind: backend.OpStart, At: at})
	return nil
}

func (n *node) Stop(at float64) error {
	if n == n.ctx.dest {
		return fmt.Errorf("%w: %s", ErrNotStartable, n.name)
	}
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.ctx.recordLocked(backend.Op{Node: n.name, Kind: backend.OpStop, At: at})
	return nil
}

func (n *node) CancelScheduledValues(after float64) error {
	n.ctx.cancelParamOps(n.name, after)
	return nil
}

// param implements backend.Param. Value tracks the last scheduled
// target, which is enough for tests that assert on final values; the
// virtual backend does not interpolate ramps.
type param struct {
	node  *node
	path  string
	value float64
}

func (p *param) SetValueAtTime(value, at float64) error {
	p.schedule(backend.OpSetValue, value, at)
	return nil
}

func (p *param) LinearRampToValueAtTime(value, at float64) error {
	p.schedule(backend.OpLinearRamp, value, at)
	return nil
}

func (p *param) ExponentialRampToValueAtTime(value, at float64) error {
	if value == 0 {
		return fmt.Errorf("virtual: %s.%s: exponential ramp to zero", p.node.name, p.path)
	}
	p.schedule(backend.OpExponentialRamp, value, at)
	return nil
}

func (p *param) Value() float64 {
	p.node.ctx.mu.Lock()
	defer p.node.ctx.mu.Unlock()
	return p.value
}

func (p *param) schedule(kind backend.OpKind, value, at float64) {
	c := p.node.ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	p.value = value
	c.recordLocked(backend.Op{Node: p.node.name, Param: p.path, Kind: kind, Value: value, At: at})
}
