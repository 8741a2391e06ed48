// Package player implements the playback scheduler.
//
// A Player anchors every command of one play invocation to a single
// timestamp on the backend clock: it materializes the graph's
// throwaway nodes, applies each connection's automation queue against
// the anchor, wires the throwaway edges in, and starts the source.
// Each invocation produces a PlaybackSession owning exactly the nodes
// it created.
//
// The player follows the single-threaded cooperative model: nothing
// here blocks, and all mutation happens on the caller's goroutine -
// including Notify callbacks, which the backend fires from its clock.
// Callers must not drive one Player from multiple goroutines.
package player

import (
	"log/slog"

	"github.com/roach88/cadenza/internal/backend"
	"github.com/roach88/cadenza/internal/graph"
)

// State is the per-sound playback state.
type State int

const (
	// StateIdle means no session is scheduled or sounding.
	StateIdle State = iota
	// StateScheduled means a session exists whose anchor has not been
	// reached yet.
	StateScheduled
	// StatePlaying means the backend has reached a session's anchor.
	StatePlaying
	// StateStopped means a stop was requested and teardown is pending.
	StateStopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Option configures a Player.
type Option func(*Player)

// WithSource names the source connection Play starts. Defaults to the
// graph's first declared connection.
func WithSource(name string) Option {
	return func(p *Player) { p.source = name }
}

// WithDuration fixes the playback length in seconds; the source's stop
// is scheduled at anchor + duration and the session is released there.
// Without it, a per-play buffer's duration is used when one is given,
// otherwise the session runs until Stop.
func WithDuration(seconds float64) Option {
	return func(p *Player) { p.duration = seconds }
}

// WithTokens replaces the session token generator.
func WithTokens(gen TokenGenerator) Option {
	return func(p *Player) { p.tokens = gen }
}

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) { p.log = log }
}

// PlayOption configures one play invocation.
type PlayOption func(*playConfig)

type playConfig struct {
	buffer backend.Buffer
}

// WithBuffer assigns a sample buffer to the source node materialized
// for this play. This is how a beat track rotates through its backing
// buffers without touching the graph definition.
func WithBuffer(buf backend.Buffer) PlayOption {
	return func(c *playConfig) { c.buffer = buf }
}

// Player schedules playback of one graph.
type Player struct {
	graph    *graph.Graph
	ctx      backend.Context
	source   string
	duration float64
	tokens   TokenGenerator
	log      *slog.Logger

	state    State
	sessions []*Session
}

// New creates a Player for the graph. The source defaults to the first
// declared connection.
func New(g *graph.Graph, opts ...Option) *Player {
	p := &Player{
		graph:  g,
		ctx:    g.Context(),
		tokens: UUIDv7Generator{},
		log:    slog.Default(),
	}
	if conns := g.Connections(); len(conns) > 0 {
		p.source = conns[0].Name()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current playback state.
func (p *Player) State() State { return p.state }

// ActiveSessions returns the number of live playback sessions.
func (p *Player) ActiveSessions() int { return len(p.sessions) }

// Play schedules playback offsetSeconds from now. The anchor is read
// from the backend clock exactly once; every command of this
// invocation is measured from it.
func (p *Player) Play(offsetSeconds float64, opts ...PlayOption) (*Session, error) {
	return p.PlayAt(p.ctx.CurrentTime()+offsetSeconds, opts...)
}

// PlayAt schedules playback against an explicit anchor. The beat
// sequencer uses this to share one anchor across many triggers and
// many tracks; computing a fresh anchor per trigger would let them
// drift apart.
func (p *Player) PlayAt(anchor float64, opts ...PlayOption) (*Session, error) {
	var cfg playConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	srcConn, err := p.graph.Connection(p.source)
	if err != nil {
		return nil, err
	}
	// A persistent source node cannot be started twice. Overlapping
	// sessions are legal only when the source is created per play.
	if (p.state == StateScheduled || p.state == StatePlaying) && !srcConn.CreatedOnPlay() {
		return nil, &Error{
			Code:    ErrCodeAlreadyPlaying,
			Source:  srcConn.Name(),
			Message: "persistent source is already playing",
		}
	}

	sess := &Session{token: p.tokens.Generate(), anchor: anchor}

	// Materialize every throwaway node before wiring: a throwaway may
	// feed a throwaway declared after it.
	for _, conn := range p.graph.Connections() {
		if !conn.CreatedOnPlay() {
			continue
		}
		node, err := conn.Materialize(p.ctx)
		if err != nil {
			sess.release(p.ctx)
			return nil, playbackErr(srcConn.Name(), "materialize "+conn.Name(), err)
		}
		if conn.Name() == srcConn.Name() && cfg.buffer != nil {
			if err := node.SetBuffer(cfg.buffer); err != nil {
				sess.release(p.ctx)
				return nil, playbackErr(srcConn.Name(), "set buffer", err)
			}
		}
		sess.addNode(conn.Name(), node)
	}

	// Apply automation and wire throwaway edges, declaration order.
	for _, conn := range p.graph.Connections() {
		if !conn.CreatedOnPlay() {
			continue
		}
		node := sess.Node(conn.Name())
		if err := conn.Queue().Apply(node, anchor); err != nil {
			sess.release(p.ctx)
			return nil, playbackErr(srcConn.Name(), "apply automation for "+conn.Name(), err)
		}
		if err := p.wireSessionEdge(sess, node, conn.Destination()); err != nil {
			sess.release(p.ctx)
			return nil, playbackErr(srcConn.Name(), "wire "+conn.Name(), err)
		}
	}

	// Persistent connections feeding a throwaway get a session edge too.
	for _, conn := range p.graph.Connections() {
		if conn.CreatedOnPlay() || conn.Node() == nil {
			continue
		}
		if dst := sess.Node(conn.Destination()); dst != nil {
			if err := p.ctx.Connect(conn.Node(), dst); err != nil {
				sess.release(p.ctx)
				return nil, playbackErr(srcConn.Name(), "wire "+conn.Name(), err)
			}
			sess.edges = append(sess.edges, sessionEdge{src: conn.Node(), dst: dst})
		}
	}

	// Re-apply persistent automation so envelopes re-trigger
	// identically on every play, independent of node lifetime.
	for _, conn := range p.graph.Connections() {
		if conn.CreatedOnPlay() || conn.Queue().Empty() {
			continue
		}
		if err := conn.Queue().Apply(conn.Node(), anchor); err != nil {
			sess.release(p.ctx)
			return nil, playbackErr(srcConn.Name(), "apply automation for "+conn.Name(), err)
		}
	}

	src := srcConn.Node()
	if srcConn.CreatedOnPlay() {
		src = sess.Node(srcConn.Name())
	}
	sess.source = src
	if err := src.Start(anchor); err != nil {
		sess.release(p.ctx)
		return nil, playbackErr(srcConn.Name(), "start", err)
	}

	duration := p.duration
	if duration == 0 && cfg.buffer != nil {
		duration = cfg.buffer.Duration()
	}
	if duration > 0 {
		if err := src.Stop(anchor + duration); err != nil {
			sess.release(p.ctx)
			return nil, playbackErr(srcConn.Name(), "schedule stop", err)
		}
	}

	p.state = StateScheduled
	p.sessions = append(p.sessions, sess)
	p.log.Debug("session scheduled",
		"token", sess.token, "source", srcConn.Name(), "anchor", anchor, "duration", duration)

	sess.cancels = append(sess.cancels, p.ctx.Notify(anchor, func() {
		if p.state == StateScheduled {
			p.state = StatePlaying
		}
	}))
	if duration > 0 {
		sess.cancels = append(sess.cancels, p.ctx.Notify(anchor+duration, func() {
			p.finish(sess)
		}))
	}
	return sess, nil
}

// Stop requests playback stop at the given time (default: now). On an
// idle sound it is a no-op, never an error. Not-yet-executed commands
// belonging to the active sessions are cancelled; commands already
// executed cannot be recalled.
func (p *Player) Stop(at ...float64) error {
	if p.state != StateScheduled && p.state != StatePlaying {
		return nil
	}
	t := p.ctx.CurrentTime()
	if len(at) > 0 && at[0] > t {
		t = at[0]
	}

	for _, sess := range p.sessions {
		if sess.source != nil {
			_ = sess.source.Stop(t)
		}
		sess.cancelPending(t)
	}
	for _, conn := range p.graph.Connections() {
		if conn.CreatedOnPlay() || conn.Queue().Empty() || conn.Node() == nil {
			continue
		}
		_ = conn.Node().CancelScheduledValues(t)
	}

	p.state = StateStopped
	p.log.Debug("stop requested", "at", t, "sessions", len(p.sessions))
	for _, sess := range p.sessions {
		sess := sess
		p.ctx.Notify(t, func() { p.finish(sess) })
	}
	return nil
}

// finish releases a session and returns the sound to idle once no
// session remains.
func (p *Player) finish(sess *Session) {
	sess.release(p.ctx)
	for i, s := range p.sessions {
		if s == sess {
			p.sessions = append(p.sessions[:i], p.sessions[i+1:]...)
			break
		}
	}
	if len(p.sessions) == 0 {
		p.state = StateIdle
	}
	p.log.Debug("session released", "token", sess.token)
}

func (p *Player) wireSessionEdge(sess *Session, src backend.Node, destination string) error {
	var dst backend.Node
	if destination == "" {
		dst = p.ctx.Destination()
	} else {
		conn, err := p.graph.Connection(destination)
		if err != nil {
			return err
		}
		dst = conn.Node()
		if dst == nil {
			dst = sess.Node(destination)
		}
	}
	if err := p.ctx.Connect(src, dst); err != nil {
		return err
	}
	sess.edges = append(sess.edges, sessionEdge{src: src, dst: dst})
	return nil
}
