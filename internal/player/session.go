package player

import (
	"github.com/roach88/cadenza/internal/backend"
	"github.com/google/uuid"
)

// TokenGenerator generates unique session tokens.
// Implemented by UUIDv7Generator (production) and testutil.FixedTokens
// (deterministic tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session tokens, which
// keeps overlapping sessions sortable by creation time in trace output.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string. Panics if UUID
// generation fails (never happens in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

type sessionNode struct {
	name string
	node backend.Node
}

type sessionEdge struct {
	src, dst backend.Node
}

// Session correlates one play invocation's anchor with the throwaway
// nodes and edges it created. The session exclusively owns those
// nodes: it releases them exactly once, on natural completion or on
// stop, and the release guard makes a second release a no-op rather
// than a double-disconnect.
type Session struct {
	token    string
	anchor   float64
	source   backend.Node
	nodes    []sessionNode
	edges    []sessionEdge
	cancels  []backend.CancelFunc
	released bool
}

// Token returns the session's unique token.
func (s *Session) Token() string { return s.token }

// Anchor returns the absolute timestamp all of the session's offsets
// were measured from.
func (s *Session) Anchor() float64 { return s.anchor }

// Node returns the throwaway node the session created for the named
// connection, or nil.
func (s *Session) Node(name string) backend.Node {
	for _, sn := range s.nodes {
		if sn.name == name {
			return sn.node
		}
	}
	return nil
}

func (s *Session) addNode(name string, n backend.Node) {
	s.nodes = append(s.nodes, sessionNode{name: name, node: n})
}

// cancelPending drops the session's not-yet-executed parameter
// operations scheduled after the given time.
func (s *Session) cancelPending(after float64) {
	for _, sn := range s.nodes {
		_ = sn.node.CancelScheduledValues(after)
	}
}

// release tears the session down: pending notifies cancelled, session
// edges disconnected, node handles dropped. Idempotent.
func (s *Session) release(ctx backend.Context) {
	if s.released {
		return
	}
	s.released = true
	for _, c := range s.cancels {
		c()
	}
	for _, e := range s.edges {
		_ = ctx.Disconnect(e.src, e.dst)
	}
	s.nodes = nil
	s.edges = nil
	s.cancels = nil
}
