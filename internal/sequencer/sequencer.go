// Package sequencer triggers graph playback on a beat grid.
//
// Each track holds a fixed sequence of beats and a Sound; on trigger
// the sequencer converts tempo and note fraction into a slot length
// and fans out one play per active beat. The load-bearing rule is the
// anchor: every beat of every track driven by one gesture measures its
// offset from one timestamp, read from the backend clock exactly once.
package sequencer

import (
	"github.com/roach88/cadenza/internal/backend"
)

// Sequencer phase-locks a set of tracks to a shared anchor.
type Sequencer struct {
	ctx    backend.Context
	tracks []*Track
}

// New creates a sequencer over the given tracks.
func New(ctx backend.Context, tracks ...*Track) *Sequencer {
	return &Sequencer{ctx: ctx, tracks: tracks}
}

// Tracks returns the sequencer's tracks in order.
func (s *Sequencer) Tracks() []*Track { return s.tracks }

// AddTrack appends a track.
func (s *Sequencer) AddTrack(t *Track) { s.tracks = append(s.tracks, t) }

// PlayAll reads the clock once and schedules every track's active
// beats against that single anchor. It returns the anchor and each
// track's scheduled triggers, keyed by track name.
func (s *Sequencer) PlayAll(tempoBPM, noteFraction float64) (float64, map[string][]Trigger, error) {
	anchor := s.ctx.CurrentTime()
	triggers := make(map[string][]Trigger, len(s.tracks))
	for _, t := range s.tracks {
		tr, err := t.PlayActiveBeatsAt(anchor, tempoBPM, noteFraction)
		if err != nil {
			return anchor, triggers, err
		}
		triggers[t.Name()] = tr
	}
	return anchor, triggers, nil
}

// StopAll stops every track's sound immediately.
func (s *Sequencer) StopAll() error {
	for _, t := range s.tracks {
		if err := t.Sound().Stop(); err != nil {
			return err
		}
	}
	return nil
}
