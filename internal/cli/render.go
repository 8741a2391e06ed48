package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cadenza/internal/backend"
	"github.com/roach88/cadenza/internal/backend/virtual"
	"github.com/roach88/cadenza/internal/graph"
	"github.com/roach88/cadenza/internal/loader"
	"github.com/roach88/cadenza/internal/patch"
	"github.com/roach88/cadenza/internal/player"
	"github.com/roach88/cadenza/internal/sequencer"
	"github.com/roach88/cadenza/internal/trace"
)

// Buffers fabricated for render runs: 4410 frames at 44.1kHz is a
// 100ms one-shot, long enough to see start/stop pairs in the schedule.
const (
	renderSampleRate = 44100
	renderFrames     = 4410
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Tempo    float64
	Note     string
	Tracks   []string
	Duration float64
	Tail     float64
	Database string
}

// RenderResult holds the rendered schedule.
type RenderResult struct {
	Patch    string                         `json:"patch"`
	Anchor   float64                        `json:"anchor"`
	TempoBPM float64                        `json:"tempo_bpm,omitempty"`
	Note     string                         `json:"note,omitempty"`
	Token    string                         `json:"token,omitempty"`
	Triggers map[string][]sequencer.Trigger `json:"triggers,omitempty"`
	Ops      []backend.Op                   `json:"ops"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <patch-file>",
		Short: "Render a patch's schedule on the virtual backend",
		Long: `Render a patch against the virtual backend and print the resulting
operation schedule.

When the patch declares tracks, every track plays its active beats
from one shared anchor at the given tempo. Without tracks the patch
plays once as a plain sound. The virtual clock then advances past the
last trigger so session teardown appears in the schedule too.

Examples:
  cadenza render drums.yaml
  cadenza render drums.yaml --tempo 90 --note 1/16 --track kick
  cadenza render drums.yaml --db schedule.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Tempo, "tempo", 120, "tempo in beats per minute")
	cmd.Flags().StringVar(&opts.Note, "note", "1/8", "note fraction per beat slot (e.g. 1/8, 1/16)")
	cmd.Flags().StringSliceVar(&opts.Tracks, "track", nil, "render only the named track(s)")
	cmd.Flags().Float64Var(&opts.Duration, "duration", 1, "playback duration for trackless patches, in seconds")
	cmd.Flags().Float64Var(&opts.Tail, "tail", 1, "seconds to advance past the last trigger")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the schedule to this SQLite log")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	def, err := patch.Load(path)
	if err != nil {
		_ = formatter.Error("LOAD_FAILED", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load patch", err)
	}

	noteFraction, err := parseNote(opts.Note)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --note", err)
	}

	result, err := renderPatch(def, opts, noteFraction, formatter)
	if err != nil {
		issue := issueFromError(err)
		_ = formatter.Error(issue.Code, issue.Message, nil)
		return WrapExitError(ExitFailure, "render failed", err)
	}

	if opts.Database != "" {
		if err := persistRender(opts.Database, def.Name, result); err != nil {
			return WrapExitError(ExitCommandError, "failed to persist schedule", err)
		}
		formatter.VerboseLog("Persisted %d op(s) under session %s", len(result.Ops), result.Token)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputRenderText(formatter, result)
}

// renderPatch compiles the patch, plays it on a fresh virtual backend,
// and advances the clock past everything scheduled.
func renderPatch(def *patch.Def, opts *RenderOptions, noteFraction float64, formatter *OutputFormatter) (*RenderResult, error) {
	specs, err := def.Compile()
	if err != nil {
		return nil, err
	}
	trackDefs, err := def.CompileTracks()
	if err != nil {
		return nil, err
	}
	trackDefs = filterTracks(trackDefs, opts.Tracks)
	if len(opts.Tracks) > 0 && len(trackDefs) == 0 {
		return nil, fmt.Errorf("no track matches %v", opts.Tracks)
	}

	ctx := virtual.New()
	result := &RenderResult{Patch: def.Name}

	if len(trackDefs) == 0 {
		// Trackless patch: play once as a plain sound.
		g, err := graph.Build(specs, ctx)
		if err != nil {
			return nil, err
		}
		sound := player.NewSound(g, player.WithDuration(opts.Duration))
		anchor := ctx.CurrentTime()
		if _, err := sound.PlayAt(anchor); err != nil {
			return nil, err
		}
		ctx.Advance(opts.Duration + opts.Tail)
		result.Anchor = anchor
		result.Ops = ctx.Ops()
		return result, nil
	}

	// Each track builds its own instance of the patch's node specs.
	seq := sequencer.New(ctx)
	maxBeats := 0
	for _, td := range trackDefs {
		g, err := graph.Build(specs, ctx)
		if err != nil {
			return nil, err
		}
		sound := player.NewSound(g)
		track := sequencer.NewTrack(td.Name, sound,
			sequencer.WithBeatCount(len(td.Beats)),
			sequencer.WithBuffers(fabricateBuffers(td.Samples)...),
			sequencer.WithGain(td.Gain),
			sequencer.WithPan(td.Pan),
		)
		for i, active := range td.Beats {
			if active {
				if err := track.SetActive(i, true); err != nil {
					return nil, err
				}
			}
		}
		seq.AddTrack(track)
		if len(td.Beats) > maxBeats {
			maxBeats = len(td.Beats)
		}
		formatter.VerboseLog("Track %q: %d beat(s), %d sample(s)", td.Name, len(td.Beats), len(td.Samples))
	}

	anchor, triggers, err := seq.PlayAll(opts.Tempo, noteFraction)
	if err != nil {
		return nil, err
	}

	slot := sequencer.SlotSeconds(opts.Tempo, noteFraction)
	ctx.Advance(slot*float64(maxBeats) + opts.Tail)

	result.Anchor = anchor
	result.TempoBPM = opts.Tempo
	result.Note = opts.Note
	result.Triggers = triggers
	result.Ops = ctx.Ops()
	return result, nil
}

// persistRender writes the schedule to the SQLite log under one fresh
// session token per render run.
func persistRender(path, sound string, result *RenderResult) error {
	store, err := trace.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	token := player.UUIDv7Generator{}.Generate()
	if err := store.WriteSession(ctx, token, sound, result.Anchor); err != nil {
		return err
	}
	if err := store.WriteOps(ctx, token, result.Ops); err != nil {
		return err
	}
	result.Token = token
	return nil
}

// fabricateBuffers builds in-memory one-shot buffers for the track's
// sample URLs. Offline rendering never decodes audio; only names and
// durations matter to the schedule.
func fabricateBuffers(urls []string) []*loader.Buffer {
	bufs := make([]*loader.Buffer, 0, len(urls))
	for _, u := range urls {
		bufs = append(bufs, &loader.Buffer{
			URL:        u,
			SampleRate: renderSampleRate,
			Frames:     renderFrames,
			Channels:   1,
		})
	}
	return bufs
}

// filterTracks keeps only the named tracks; an empty filter keeps all.
func filterTracks(tracks []patch.TrackDef, names []string) []patch.TrackDef {
	if len(names) == 0 {
		return tracks
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	var out []patch.TrackDef
	for _, t := range tracks {
		if keep[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

// parseNote parses a note fraction like "1/8" or a plain float.
func parseNote(s string) (float64, error) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("bad numerator in %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("bad denominator in %q: %w", s, err)
		}
		if d == 0 {
			return 0, fmt.Errorf("zero denominator in %q", s)
		}
		return n / d, nil
	}
	return strconv.ParseFloat(s, 64)
}

// outputRenderText prints the schedule as a fixed-width table.
func outputRenderText(formatter *OutputFormatter, result *RenderResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Render: %s\n", result.Patch)
	fmt.Fprintf(w, "Anchor: %.3f\n", result.Anchor)
	if result.TempoBPM > 0 {
		fmt.Fprintf(w, "Tempo: %g BPM, note %s\n", result.TempoBPM, result.Note)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Schedule ===")
	if len(result.Ops) == 0 {
		fmt.Fprintln(w, "  (no operations)")
	} else {
		for _, op := range result.Ops {
			fmt.Fprintln(w, formatOp(op))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d operation(s)\n", len(result.Ops))
	return nil
}

// formatOp renders one op as a fixed-width schedule line.
func formatOp(op backend.Op) string {
	head := fmt.Sprintf("%8.3f  %-16s %-16s", op.At, op.Node, string(op.Kind))
	switch {
	case op.IsParamOp():
		return head + fmt.Sprintf(" %s=%g", op.Param, op.Value)
	case op.Kind == backend.OpConnect || op.Kind == backend.OpDisconnect:
		return head + " -> " + op.Target
	default:
		return strings.TrimRight(head, " ")
	}
}
