package sequencer

import (
	"fmt"

	"github.com/roach88/cadenza/internal/loader"
	"github.com/roach88/cadenza/internal/player"
)

// DefaultBeatCount is the grid size tracks get unless configured.
const DefaultBeatCount = 8

// SampleSelector picks which of a track's backing buffers the next
// trigger plays. Rotating buffers avoids the identical-attack artifact
// of re-firing one sample in rapid succession.
type SampleSelector interface {
	// Next returns an index in [0, n).
	Next(n int) int
}

// RoundRobin cycles through the buffers in order. The zero value
// starts at index 0.
type RoundRobin struct {
	i int
}

// Next implements SampleSelector.
func (r *RoundRobin) Next(n int) int {
	if n <= 0 {
		return 0
	}
	idx := r.i % n
	r.i++
	return idx
}

// TrackOption configures a Track.
type TrackOption func(*Track)

// WithBeatCount sets the grid size.
func WithBeatCount(n int) TrackOption {
	return func(t *Track) { t.beats = makeBeats(n) }
}

// WithBuffers sets the track's backing sample buffers.
func WithBuffers(bufs ...*loader.Buffer) TrackOption {
	return func(t *Track) { t.buffers = bufs }
}

// WithSelector replaces the default round-robin buffer selection.
func WithSelector(s SampleSelector) TrackOption {
	return func(t *Track) { t.selector = s }
}

// WithGain sets the initial track gain.
func WithGain(v float64) TrackOption {
	return func(t *Track) { t.gain = v }
}

// WithPan sets the initial track pan.
func WithPan(v float64) TrackOption {
	return func(t *Track) { t.pan = v }
}

// Track is a fixed-size beat grid bound to one Sound.
type Track struct {
	name     string
	sound    *player.Sound
	beats    []*Beat
	gain     float64
	pan      float64
	buffers  []*loader.Buffer
	selector SampleSelector
	subs     []func(BeatChange)
}

// NewTrack creates a track with DefaultBeatCount beats, unity gain,
// centered pan, and round-robin sample selection.
func NewTrack(name string, sound *player.Sound, opts ...TrackOption) *Track {
	t := &Track{
		name:     name,
		sound:    sound,
		beats:    makeBeats(DefaultBeatCount),
		gain:     1,
		selector: &RoundRobin{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func makeBeats(n int) []*Beat {
	beats := make([]*Beat, n)
	for i := range beats {
		beats[i] = &Beat{index: i}
	}
	return beats
}

// Name returns the track name.
func (t *Track) Name() string { return t.name }

// Sound returns the track's sound.
func (t *Track) Sound() *player.Sound { return t.sound }

// Beats returns the ordered beat grid. Callers toggle activity through
// SetActive, not by mutating beats directly.
func (t *Track) Beats() []*Beat { return t.beats }

// Gain returns the track gain.
func (t *Track) Gain() float64 { return t.gain }

// Pan returns the track pan.
func (t *Track) Pan() float64 { return t.pan }

// SetGain stores the track gain and, when the sound's graph has a
// "gain" connection, commits it to that node immediately.
func (t *Track) SetGain(v float64) {
	t.gain = v
	t.commitLevel("gain", "gain.value", v)
}

// SetPan stores the track pan and, when the sound's graph has a "pan"
// connection, commits it to that node immediately.
func (t *Track) SetPan(v float64) {
	t.pan = v
	t.commitLevel("pan", "pan.value", v)
}

func (t *Track) commitLevel(conn, key string, v float64) {
	node, err := t.sound.Node(conn)
	if err != nil {
		return // no such connection; the stored value still applies to future graphs
	}
	p, err := node.Param(key)
	if err != nil {
		return
	}
	_ = p.SetValueAtTime(v, t.sound.Graph().Context().CurrentTime())
}

// SetActive toggles a beat and notifies subscribers.
func (t *Track) SetActive(beat int, active bool) error {
	if beat < 0 || beat >= len(t.beats) {
		return fmt.Errorf("sequencer: track %q has no beat %d", t.name, beat)
	}
	if t.beats[beat].active == active {
		return nil
	}
	t.beats[beat].active = active
	for _, fn := range t.subs {
		fn(BeatChange{Track: t.name, Beat: beat, Active: active})
	}
	return nil
}

// Subscribe registers a callback for active-flag changes.
func (t *Track) Subscribe(fn func(BeatChange)) {
	t.subs = append(t.subs, fn)
}

// SlotSeconds converts tempo and note fraction into the span between
// consecutive beat trigger points. noteFraction is relative to a whole
// note: 1/8 at 120 BPM gives 0.25s slots.
func SlotSeconds(tempoBPM, noteFraction float64) float64 {
	return 60 / tempoBPM * 4 * noteFraction
}

// PlayActiveBeats computes one anchor from the backend clock and
// schedules every active beat against it. Callers triggering several
// tracks from one gesture must use PlayActiveBeatsAt with a shared
// anchor instead, or the tracks drift apart.
func (t *Track) PlayActiveBeats(tempoBPM, noteFraction float64) ([]Trigger, error) {
	anchor := t.sound.Graph().Context().CurrentTime()
	return t.PlayActiveBeatsAt(anchor, tempoBPM, noteFraction)
}

// PlayActiveBeatsAt schedules every active beat at
// anchor + index*slot, rotating through the track's backing buffers.
// It returns the scheduled trigger times for presentation observers.
func (t *Track) PlayActiveBeatsAt(anchor, tempoBPM, noteFraction float64) ([]Trigger, error) {
	if tempoBPM <= 0 {
		return nil, fmt.Errorf("sequencer: track %q: tempo must be positive, got %v", t.name, tempoBPM)
	}
	if noteFraction <= 0 {
		return nil, fmt.Errorf("sequencer: track %q: note fraction must be positive, got %v", t.name, noteFraction)
	}
	slot := SlotSeconds(tempoBPM, noteFraction)

	var triggers []Trigger
	for _, b := range t.beats {
		if !b.active {
			continue
		}
		var opts []player.PlayOption
		if len(t.buffers) > 0 {
			opts = append(opts, player.WithBuffer(t.buffers[t.selector.Next(len(t.buffers))]))
		}
		at := anchor + float64(b.index)*slot
		if _, err := t.sound.PlayAt(at, opts...); err != nil {
			return triggers, fmt.Errorf("sequencer: track %q beat %d: %w", t.name, b.index, err)
		}
		triggers = append(triggers, Trigger{Beat: b.index, At: at})
	}
	return triggers, nil
}
