package player

import (
	"github.com/roach88/cadenza/internal/backend"
	"github.com/roach88/cadenza/internal/graph"
)

// Sound combines the connectable and playable capabilities by
// composition: it holds a Graph for connection lookup and a Player for
// scheduling, delegating to each.
type Sound struct {
	graph  *graph.Graph
	player *Player
}

// NewSound builds a Sound around an already-built graph.
func NewSound(g *graph.Graph, opts ...Option) *Sound {
	return &Sound{graph: g, player: New(g, opts...)}
}

// Graph returns the underlying graph.
func (s *Sound) Graph() *graph.Graph { return s.graph }

// Connection delegates to the graph.
func (s *Sound) Connection(name string) (*graph.Connection, error) {
	return s.graph.Connection(name)
}

// Node delegates to the graph.
func (s *Sound) Node(name string) (backend.Node, error) {
	return s.graph.Node(name)
}

// Play delegates to the player.
func (s *Sound) Play(offsetSeconds float64, opts ...PlayOption) (*Session, error) {
	return s.player.Play(offsetSeconds, opts...)
}

// PlayAt delegates to the player.
func (s *Sound) PlayAt(anchor float64, opts ...PlayOption) (*Session, error) {
	return s.player.PlayAt(anchor, opts...)
}

// Stop delegates to the player.
func (s *Sound) Stop(at ...float64) error { return s.player.Stop(at...) }

// State delegates to the player.
func (s *Sound) State() State { return s.player.State() }

// ActiveSessions delegates to the player.
func (s *Sound) ActiveSessions() int { return s.player.ActiveSessions() }
