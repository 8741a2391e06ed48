// Package graph materializes declarative node specs into a wired DAG
// ending at the backend's sink.
//
// Build distinguishes two node lifetimes. Persistent connections are
// resolved once, at build time, and own their node for the graph's
// lifetime. CreatedOnPlay connections stay unmaterialized: each play
// materializes a fresh throwaway node from the connection's factory,
// and the playback session that created it owns it. Edges among
// persistent connections are wired at build time and never disturbed
// afterwards; only edges touching throwaway nodes come and go per
// session.
package graph

import (
	"fmt"

	"github.com/roach88/cadenza/internal/automation"
	"github.com/roach88/cadenza/internal/backend"
)

// Connection is a materialized NodeSpec: the spec plus its automation
// queue and, for persistent connections, the resolved node handle.
type Connection struct {
	spec  NodeSpec
	queue *automation.Queue
	node  backend.Node // nil while deferred
}

// Name returns the connection's unique name within its graph.
func (c *Connection) Name() string { return c.spec.Name }

// Destination returns the name of the connection this one feeds into,
// or "" for the sink.
func (c *Connection) Destination() string { return c.spec.Destination }

// CreatedOnPlay reports whether the connection's node is a per-play
// throwaway.
func (c *Connection) CreatedOnPlay() bool { return c.spec.CreatedOnPlay }

// Node returns the persistent node handle, or nil for a deferred
// connection.
func (c *Connection) Node() backend.Node { return c.node }

// Queue returns the connection's automation queue. Never nil; callers
// populate it through the builder API before or between plays.
func (c *Connection) Queue() *automation.Queue { return c.queue }

// Materialize creates a fresh throwaway node from the connection's
// factory. Only valid for createdOnPlay connections; the caller owns
// the returned node.
func (c *Connection) Materialize(ctx backend.Context) (backend.Node, error) {
	if !c.spec.CreatedOnPlay || c.spec.Factory == nil {
		return nil, fmt.Errorf("graph: connection %q is not created on play", c.spec.Name)
	}
	n, err := ctx.CreateNode(c.spec.Factory.Kind, c.spec.Factory.Params)
	if err != nil {
		return nil, fmt.Errorf("graph: materialize %q: %w", c.spec.Name, err)
	}
	return n, nil
}

// Graph is an ordered set of named connections wired toward the sink.
type Graph struct {
	ctx   backend.Context
	order []string
	conns map[string]*Connection
}

// Build resolves every spec into a connection and wires the persistent
// edges. Validation runs before any backend call, so a ConfigError
// means nothing was created: names must be unique, each spec must name
// exactly one source, every destination must resolve to another spec,
// and every destination chain must reach the sink.
func Build(specs []NodeSpec, ctx backend.Context) (*Graph, error) {
	byName := make(map[string]int, len(specs))
	for i, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[s.Name]; dup {
			return nil, &ConfigError{Code: ErrCodeDuplicateName, Spec: s.Name, Message: "name declared twice"}
		}
		byName[s.Name] = i
	}
	for _, s := range specs {
		if s.Destination == "" {
			continue
		}
		if s.Destination == s.Name {
			return nil, &ConfigError{Code: ErrCodeCycleDetected, Spec: s.Name, Message: "connection feeds itself"}
		}
		if _, ok := byName[s.Destination]; !ok {
			return nil, &ConfigError{
				Code:    ErrCodeUnresolvedDestination,
				Spec:    s.Name,
				Message: fmt.Sprintf("destination %q does not exist", s.Destination),
			}
		}
	}
	// Every chain of destinations must terminate at the sink. Each spec
	// has at most one outgoing edge, so a walk either reaches "" or
	// revisits a spec.
	for _, s := range specs {
		seen := map[string]bool{s.Name: true}
		for cur := s.Destination; cur != ""; cur = specs[byName[cur]].Destination {
			if seen[cur] {
				return nil, &ConfigError{Code: ErrCodeCycleDetected, Spec: cur, Message: "destination chain never reaches the sink"}
			}
			seen[cur] = true
		}
	}

	g := &Graph{ctx: ctx, conns: make(map[string]*Connection, len(specs))}
	for _, s := range specs {
		queue := s.Automation
		if queue == nil {
			queue = &automation.Queue{}
		}
		c := &Connection{spec: s, queue: queue}
		if !s.CreatedOnPlay {
			node, err := resolve(s, ctx)
			if err != nil {
				return nil, fmt.Errorf("graph: build %q: %w", s.Name, err)
			}
			c.node = node
		}
		g.conns[s.Name] = c
		g.order = append(g.order, s.Name)
	}

	// Wire persistent edges. Edges with a deferred endpoint belong to
	// playback sessions and are skipped here.
	var wired [][2]backend.Node
	for _, name := range g.order {
		c := g.conns[name]
		if c.node == nil {
			continue
		}
		dst, deferred := g.destinationNode(c)
		if deferred {
			continue
		}
		if err := ctx.Connect(c.node, dst); err != nil {
			for _, e := range wired {
				_ = ctx.Disconnect(e[0], e[1])
			}
			return nil, fmt.Errorf("graph: wire %q: %w", name, err)
		}
		wired = append(wired, [2]backend.Node{c.node, dst})
	}
	return g, nil
}

func resolve(s NodeSpec, ctx backend.Context) (backend.Node, error) {
	switch {
	case s.Ref != "":
		return ctx.Lookup(s.Ref)
	case s.Factory != nil:
		return ctx.CreateNode(s.Factory.Kind, s.Factory.Params)
	default:
		return s.Handle, nil
	}
}

// destinationNode resolves a connection's destination to a live node.
// deferred is true when the destination exists but is createdOnPlay
// and therefore has no node outside a session.
func (g *Graph) destinationNode(c *Connection) (node backend.Node, deferred bool) {
	if c.spec.Destination == "" {
		return g.ctx.Destination(), false
	}
	dst := g.conns[c.spec.Destination]
	if dst.node == nil {
		return nil, true
	}
	return dst.node, false
}

// Context returns the backend context the graph was built against.
func (g *Graph) Context() backend.Context { return g.ctx }

// Connection looks up a connection by name.
func (g *Graph) Connection(name string) (*Connection, error) {
	c, ok := g.conns[name]
	if !ok {
		return nil, &NotFoundError{Kind: "connection", Name: name}
	}
	return c, nil
}

// Node looks up a persistent connection's live node by name. Deferred
// connections have no node outside a session and report NotFound.
func (g *Graph) Node(name string) (backend.Node, error) {
	c, ok := g.conns[name]
	if !ok || c.node == nil {
		return nil, &NotFoundError{Kind: "node", Name: name}
	}
	return c.node, nil
}

// Connections returns every connection in declaration order.
func (g *Graph) Connections() []*Connection {
	out := make([]*Connection, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.conns[name])
	}
	return out
}
