package sequencer

// Beat is one slot of a track's rhythmic grid. Only the active flag
// participates in scheduling; the playing flags are presentation
// hooks, toggled by an external clock-driven observer from the trigger
// times the track reports. The core never polls them.
type Beat struct {
	index                int
	active               bool
	isPlaying            bool
	currentTimeIsPlaying bool
}

// Index returns the beat's position in its track.
func (b *Beat) Index() int { return b.index }

// Active reports whether the beat triggers playback.
func (b *Beat) Active() bool { return b.active }

// IsPlaying is a presentation hook.
func (b *Beat) IsPlaying() bool { return b.isPlaying }

// SetPlaying is for presentation adapters; scheduling ignores it.
func (b *Beat) SetPlaying(v bool) { b.isPlaying = v }

// CurrentTimeIsPlaying is a presentation hook, set true briefly when
// the beat's scheduled time arrives.
func (b *Beat) CurrentTimeIsPlaying() bool { return b.currentTimeIsPlaying }

// SetCurrentTimePlaying is for presentation adapters; scheduling
// ignores it.
func (b *Beat) SetCurrentTimePlaying(v bool) { b.currentTimeIsPlaying = v }

// BeatChange notifies a subscriber that a beat's active flag changed.
// This is the whole reactivity surface: presentation layers adapt it
// to whatever mechanism they use.
type BeatChange struct {
	Track  string
	Beat   int
	Active bool
}

// Trigger is one scheduled beat playback: the beat index and the
// absolute backend time it fires at.
type Trigger struct {
	Beat int     `json:"beat"`
	At   float64 `json:"at"`
}
