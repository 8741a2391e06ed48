// Package virtual implements backend.Context entirely in memory.
//
// The virtual backend does no audio. It keeps a manual clock advanced
// by Advance, records every scheduled operation in a seq-stamped op
// log, and fires Notify callbacks in deterministic (time, registration)
// order. Tests and the CLI use it to observe exactly what the
// scheduling core would have asked a real backend to do.
package virtual

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/cadenza/internal/backend"
)

// DestinationName is the node name the sink reports in the op log.
const DestinationName = "destination"

var (
	// ErrUnknownNode is returned by Lookup for an unregistered path.
	ErrUnknownNode = errors.New("virtual: unknown node")
	// ErrEdgeExists is returned by Connect when the edge is already wired.
	ErrEdgeExists = errors.New("virtual: edge already connected")
	// ErrNoSuchEdge is returned by Disconnect when the edge is not wired.
	// Double-releasing a session surfaces as this error.
	ErrNoSuchEdge = errors.New("virtual: no such edge")
	// ErrNotStartable is returned when start/stop targets the destination.
	ErrNotStartable = errors.New("virtual: node is not startable")
)

type edge struct {
	src, dst string
}

// Context is the in-memory rendering context.
//
// All mutations are serialized by an internal mutex. Notify callbacks
// fire with the mutex released, so they may call back into the context.
type Context struct {
	mu     sync.Mutex
	now    float64
	clock  *Clock
	named  map[string]*node // registered reference paths
	dest   *node
	ops    []backend.Op
	edges  map[edge]bool
	timers timerHeap
	tseq   int64          // registration order tie-break for timers
	serial map[string]int // per-kind counter for created node names
}

// New creates a virtual context with its clock at 0 and an empty graph.
func New() *Context {
	c := &Context{
		clock:  NewClock(),
		named:  make(map[string]*node),
		edges:  make(map[edge]bool),
		serial: make(map[string]int),
	}
	c.dest = &node{ctx: c, name: DestinationName, kind: DestinationName, params: make(map[string]*param)}
	return c
}

// CurrentTime implements backend.Context.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// CreateNode implements backend.Context. Created nodes are named
// "kind#n" in the op log, n counting per kind from 1.
func (c *Context) CreateNode(kind string, params map[string]float64) (backend.Node, error) {
	if kind == "" {
		return nil, fmt.Errorf("virtual: create node: empty kind")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serial[kind]++
	n := c.newNodeLocked(fmt.Sprintf("%s#%d", kind, c.serial[kind]), kind, params)
	return n, nil
}

// RegisterNode predefines a named node reachable via Lookup. Used to
// model long-lived backend objects ("master.gain" and the like).
func (c *Context) RegisterNode(path, kind string, params map[string]float64) backend.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.newNodeLocked(path, kind, params)
	c.named[path] = n
	return n
}

func (c *Context) newNodeLocked(name, kind string, params map[string]float64) *node {
	n := &node{ctx: c, name: name, kind: kind, params: make(map[string]*param)}
	for path, v := range params {
		n.params[path] = &param{node: n, path: path, value: v}
	}
	return n
}

// Lookup implements backend.Context.
func (c *Context) Lookup(path string) (backend.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.named[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, path)
	}
	return n, nil
}

// Destination implements backend.Context.
func (c *Context) Destination() backend.Node {
	return c.dest
}

// Connect implements backend.Context. The edge is recorded in the op
// log at the current time.
func (c *Context) Connect(src, dst backend.Node) error {
	s, d, err := c.edgeNodes(src, dst)
	if err != nil {
		return err
	}
	if s == c.dest {
		return fmt.Errorf("virtual: connect: destination has no output")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := edge{s.name, d.name}
	if c.edges[e] {
		return fmt.Errorf("%w: %s -> %s", ErrEdgeExists, s.name, d.name)
	}
	c.edges[e] = true
	c.recordLocked(backend.Op{Node: s.name, Kind: backend.OpConnect, Target: d.name, At: c.now})
	return nil
}

// Disconnect implements backend.Context.
func (c *Context) Disconnect(src, dst backend.Node) error {
	s, d, err := c.edgeNodes(src, dst)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := edge{s.name, d.name}
	if !c.edges[e] {
		return fmt.Errorf("%w: %s -> %s", ErrNoSuchEdge, s.name, d.name)
	}
	delete(c.edges, e)
	c.recordLocked(backend.Op{Node: s.name, Kind: backend.OpDisconnect, Target: d.name, At: c.now})
	return nil
}

func (c *Context) edgeNodes(src, dst backend.Node) (*node, *node, error) {
	s, ok := src.(*node)
	if !ok || s.ctx != c {
		return nil, nil, fmt.Errorf("virtual: source node belongs to another context")
	}
	d, ok := dst.(*node)
	if !ok || d.ctx != c {
		return nil, nil, fmt.Errorf("virtual: destination node belongs to another context")
	}
	return s, d, nil
}

// Connected reports whether the src → dst edge is currently wired.
func (c *Context) Connected(src, dst backend.Node) bool {
	s, d, err := c.edgeNodes(src, dst)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edges[edge{s.name, d.name}]
}

// Notify implements backend.Context. Callbacks due at or before the
// current time fire synchronously before Notify returns.
func (c *Context) Notify(at float64, fn func()) backend.CancelFunc {
	c.mu.Lock()
	if at <= c.now {
		c.mu.Unlock()
		fn()
		return func() {}
	}
	c.tseq++
	t := &timer{at: at, seq: c.tseq, fn: fn}
	heap.Push(&c.timers, t)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		t.cancelled = true
		c.mu.Unlock()
	}
}

// Advance moves the clock forward by dt seconds, firing due Notify
// callbacks in (time, registration) order. Each callback observes
// CurrentTime equal to its due time.
func (c *Context) Advance(dt float64) {
	if dt < 0 {
		panic("virtual: negative advance")
	}
	c.mu.Lock()
	target := c.now + dt
	for len(c.timers) > 0 && c.timers[0].at <= target {
		t := heap.Pop(&c.timers).(*timer)
		if t.cancelled {
			continue
		}
		c.now = t.at
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Ops returns the recorded schedule in execution order: sorted by
// (At, Seq). The slice is a copy.
func (c *Context) Ops() []backend.Op {
	c.mu.Lock()
	out := make([]backend.Op, len(c.ops))
	copy(out, c.ops)
	c.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].At != out[j].At {
			return out[i].At < out[j].At
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// OpsFrom returns recorded ops whose seq is strictly greater than
// after, in execution order. Useful for diffing one play against the
// log as a whole.
func (c *Context) OpsFrom(after int64) []backend.Op {
	all := c.Ops()
	out := all[:0:0]
	for _, op := range all {
		if op.Seq > after {
			out = append(out, op)
		}
	}
	return out
}

// Seq returns the current submission counter.
func (c *Context) Seq() int64 {
	return c.clock.Current()
}

func (c *Context) recordLocked(op backend.Op) {
	op.Seq = c.clock.Next()
	c.ops = append(c.ops, op)
}

// cancelParamOps drops pending parameter ops on the named node
// scheduled strictly after the given time. Ops already executed (due
// at or before the current clock) are kept.
func (c *Context) cancelParamOps(name string, after float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := after
	if c.now > cutoff {
		cutoff = c.now
	}
	kept := c.ops[:0]
	for _, op := range c.ops {
		if op.Node == name && op.IsParamOp() && op.At > cutoff {
			continue
		}
		kept = append(kept, op)
	}
	c.ops = kept
}

// timer heap, ordered by (at, seq).

type timer struct {
	at        float64
	seq       int64
	fn        func()
	cancelled bool
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(*timer)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
