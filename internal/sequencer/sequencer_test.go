package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadenza/internal/backend"
	"github.com/roach88/cadenza/internal/backend/virtual"
	"github.com/roach88/cadenza/internal/graph"
	"github.com/roach88/cadenza/internal/loader"
	"github.com/roach88/cadenza/internal/player"
	"github.com/roach88/cadenza/internal/testutil"
)

func newTrack(t *testing.T, c *virtual.Context, name string, opts ...TrackOption) *Track {
	t.Helper()
	g, err := graph.Build([]graph.NodeSpec{
		{Name: "src", Factory: &graph.FactorySpec{Kind: name + "-sample"}, CreatedOnPlay: true, Destination: "gain"},
		{Name: "gain", Factory: &graph.FactorySpec{Kind: "gain", Params: map[string]float64{"gain.value": 1}}},
	}, c)
	require.NoError(t, err)
	sound := player.NewSound(g, player.WithTokens(testutil.NewFixedTokens()))
	return NewTrack(name, sound, opts...)
}

func threeBuffers(prefix string) []*loader.Buffer {
	return []*loader.Buffer{
		{URL: prefix + "-1.wav", SampleRate: 44100, Frames: 4410},
		{URL: prefix + "-2.wav", SampleRate: 44100, Frames: 4410},
		{URL: prefix + "-3.wav", SampleRate: 44100, Frames: 4410},
	}
}

func TestSlotSeconds(t *testing.T) {
	assert.Equal(t, 0.25, SlotSeconds(120, 1.0/8))
	assert.Equal(t, 0.5, SlotSeconds(120, 1.0/4))
	assert.Equal(t, 1.0, SlotSeconds(60, 1.0/4))
}

func TestPlayActiveBeats_OffsetsFromOneAnchor(t *testing.T) {
	c := virtual.New()
	c.Advance(3)
	tr := newTrack(t, c, "kick", WithBuffers(threeBuffers("kick")...))

	require.NoError(t, tr.SetActive(0, true))
	require.NoError(t, tr.SetActive(3, true))
	require.NoError(t, tr.SetActive(5, true))

	triggers, err := tr.PlayActiveBeats(120, 1.0/8)
	require.NoError(t, err)

	require.Len(t, triggers, 3)
	assert.Equal(t, Trigger{Beat: 0, At: 3.0}, triggers[0])
	assert.Equal(t, Trigger{Beat: 3, At: 3.75}, triggers[1])
	assert.Equal(t, Trigger{Beat: 5, At: 4.25}, triggers[2])

	// Exactly three source starts were scheduled at those times.
	var starts []backend.Op
	for _, op := range c.Ops() {
		if op.Kind == backend.OpStart {
			starts = append(starts, op)
		}
	}
	require.Len(t, starts, 3)
	assert.Equal(t, 3.0, starts[0].At)
	assert.Equal(t, 3.75, starts[1].At)
	assert.Equal(t, 4.25, starts[2].At)
}

func TestPlayActiveBeats_RotatesBuffers(t *testing.T) {
	c := virtual.New()
	bufs := threeBuffers("snare")
	tr := newTrack(t, c, "snare", WithBuffers(bufs...))

	for i := 0; i < 4; i++ {
		require.NoError(t, tr.SetActive(i, true))
	}
	triggers, err := tr.PlayActiveBeats(120, 1.0/8)
	require.NoError(t, err)
	require.Len(t, triggers, 4)

	sound := tr.Sound()
	require.Equal(t, 4, sound.ActiveSessions())
}

func TestRoundRobin_WrapsAround(t *testing.T) {
	r := &RoundRobin{}
	got := []int{r.Next(3), r.Next(3), r.Next(3), r.Next(3), r.Next(3)}
	assert.Equal(t, []int{0, 1, 2, 0, 1}, got)
}

func TestPlayAll_SharesOneAnchorAcrossTracks(t *testing.T) {
	c := virtual.New()
	c.Advance(1.5)
	kick := newTrack(t, c, "kick", WithBuffers(threeBuffers("kick")...))
	snare := newTrack(t, c, "snare", WithBuffers(threeBuffers("snare")...))

	require.NoError(t, kick.SetActive(0, true))
	require.NoError(t, kick.SetActive(4, true))
	require.NoError(t, snare.SetActive(2, true))
	require.NoError(t, snare.SetActive(6, true))

	seq := New(c, kick, snare)
	anchor, triggers, err := seq.PlayAll(120, 1.0/8)
	require.NoError(t, err)
	assert.Equal(t, 1.5, anchor)

	// Both tracks measure from the same anchor: snare's beat 2 lands
	// exactly between kick's beats 0 and 4.
	assert.Equal(t, 1.5, triggers["kick"][0].At)
	assert.Equal(t, 2.5, triggers["kick"][1].At)
	assert.Equal(t, 2.0, triggers["snare"][0].At)
	assert.Equal(t, 3.0, triggers["snare"][1].At)
}

func TestSetActive_NotifiesSubscribers(t *testing.T) {
	c := virtual.New()
	tr := newTrack(t, c, "hat")

	var changes []BeatChange
	tr.Subscribe(func(ch BeatChange) { changes = append(changes, ch) })

	require.NoError(t, tr.SetActive(2, true))
	require.NoError(t, tr.SetActive(2, true)) // no change, no notification
	require.NoError(t, tr.SetActive(2, false))

	require.Len(t, changes, 2)
	assert.Equal(t, BeatChange{Track: "hat", Beat: 2, Active: true}, changes[0])
	assert.Equal(t, BeatChange{Track: "hat", Beat: 2, Active: false}, changes[1])
}

func TestSetActive_OutOfRange(t *testing.T) {
	c := virtual.New()
	tr := newTrack(t, c, "hat")

	assert.Error(t, tr.SetActive(8, true))
	assert.Error(t, tr.SetActive(-1, true))
}

func TestSetGain_CommitsToGainConnection(t *testing.T) {
	c := virtual.New()
	tr := newTrack(t, c, "kick")

	tr.SetGain(0.5)
	assert.Equal(t, 0.5, tr.Gain())

	ops := c.Ops()
	require.NotEmpty(t, ops)
	last := ops[len(ops)-1]
	assert.Equal(t, backend.OpSetValue, last.Kind)
	assert.Equal(t, "gain.value", last.Param)
	assert.Equal(t, 0.5, last.Value)
}

func TestPlayActiveBeats_InvalidTempo(t *testing.T) {
	c := virtual.New()
	tr := newTrack(t, c, "kick")
	require.NoError(t, tr.SetActive(0, true))

	_, err := tr.PlayActiveBeats(0, 1.0/8)
	assert.Error(t, err)
	_, err = tr.PlayActiveBeats(120, 0)
	assert.Error(t, err)
}

func TestBeat_PresentationFlagsAreInert(t *testing.T) {
	c := virtual.New()
	tr := newTrack(t, c, "kick")

	b := tr.Beats()[0]
	b.SetPlaying(true)
	b.SetCurrentTimePlaying(true)
	assert.True(t, b.IsPlaying())
	assert.True(t, b.CurrentTimeIsPlaying())

	// Flags do not make a beat trigger.
	triggers, err := tr.PlayActiveBeats(120, 1.0/8)
	require.NoError(t, err)
	assert.Empty(t, triggers)
}
