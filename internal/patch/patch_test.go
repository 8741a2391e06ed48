package patch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadenza/internal/automation"
	"github.com/roach88/cadenza/internal/backend/virtual"
	"github.com/roach88/cadenza/internal/graph"
)

func TestLoadYAML_Drums(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "drums.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "drums", def.Name)
	require.Len(t, def.Nodes, 2)
	assert.True(t, def.Nodes[0].CreatedOnPlay)
	require.Len(t, def.Tracks, 2)
	assert.Equal(t, []string{"kick-1.wav", "kick-2.wav", "kick-3.wav"}, def.Tracks[0].Samples)
}

func TestLoadCUE_Pluck(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "pluck.cue"))
	require.NoError(t, err)

	assert.Equal(t, "pluck", def.Name)
	require.Len(t, def.Nodes, 2)
	assert.Equal(t, "oscillator", def.Nodes[0].Kind)
	assert.Equal(t, 220.0, def.Nodes[0].Params["frequency.value"])
	assert.Len(t, def.Nodes[1].Automation, 3)
}

func TestLoad_UnknownExtension(t *testing.T) {
	_, err := Load("patch.toml")
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestCompile_BuildsAgainstBackend(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "pluck.cue"))
	require.NoError(t, err)

	specs, err := def.Compile()
	require.NoError(t, err)

	c := virtual.New()
	g, err := graph.Build(specs, c)
	require.NoError(t, err)

	amp, err := g.Connection("amp")
	require.NoError(t, err)
	// Bare set + two ending_at sets: one starting value, two ramps.
	cmds := amp.Queue().Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, automation.CommandStartingValue, cmds[0].Kind)
	assert.Equal(t, automation.CommandExponentialRamp, cmds[1].Kind)
	assert.Equal(t, automation.CommandExponentialRamp, cmds[2].Kind)
}

func TestCompile_RampStepMatchesBuilderSugar(t *testing.T) {
	def := &Def{
		Name: "p",
		Nodes: []NodeDef{{
			Name: "n", Kind: "gain",
			Automation: []StepDef{{Op: "ramp", Key: "gain.value", From: 0.001, To: 1, End: 0.5}},
		}},
	}
	specs, err := def.Compile()
	require.NoError(t, err)

	want := &automation.Queue{}
	r, err := want.OnPlayRamp("gain.value")
	require.NoError(t, err)
	require.NoError(t, r.From(0.001).To(1).In(0.5))

	assert.Equal(t, want.Commands(), specs[0].Automation.Commands())
}

func TestCompile_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		def  Def
	}{
		{"no nodes", Def{Name: "p"}},
		{"unnamed node", Def{Nodes: []NodeDef{{Kind: "gain"}}}},
		{"kind and ref", Def{Nodes: []NodeDef{{Name: "n", Kind: "gain", Ref: "master"}}}},
		{"neither kind nor ref", Def{Nodes: []NodeDef{{Name: "n"}}}},
		{"unknown op", Def{Nodes: []NodeDef{{Name: "n", Kind: "gain",
			Automation: []StepDef{{Op: "wiggle", Key: "k"}}}}}},
		{"at and ending_at", Def{Nodes: []NodeDef{{Name: "n", Kind: "gain",
			Automation: []StepDef{{Op: "set", Key: "k", At: f(1), EndingAt: f(2)}}}}}},
		{"missing key", Def{Nodes: []NodeDef{{Name: "n", Kind: "gain",
			Automation: []StepDef{{Op: "set"}}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.def.Compile()
			require.Error(t, err)
			assert.True(t, IsCompileError(err))
		})
	}
}

func TestCompile_CurveValidationStaysInBuilder(t *testing.T) {
	def := &Def{Nodes: []NodeDef{{Name: "n", Kind: "gain",
		Automation: []StepDef{{Op: "ramp", Key: "k", From: 1, To: 2, End: 1, Curve: "cubic"}}}}}
	_, err := def.Compile()
	require.Error(t, err)
	assert.True(t, automation.IsInvalidRampType(err))

	def = &Def{Nodes: []NodeDef{{Name: "n", Kind: "gain",
		Automation: []StepDef{{Op: "ramp", Key: "k", From: 0, To: 1, End: 1}}}}}
	_, err = def.Compile()
	require.Error(t, err)
	assert.True(t, automation.IsInvalidRampTarget(err))
}

func TestCompileTracks(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "drums.yaml"))
	require.NoError(t, err)

	tracks, err := def.CompileTracks()
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, 0.9, tracks[0].Gain)
	assert.Equal(t, 1.0, tracks[1].Gain, "unset gain defaults to unity")

	_, err = (&Def{Tracks: []TrackDef{{Name: "t"}}}).CompileTracks()
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestNormalizeName_NFC(t *testing.T) {
	// "é" composed vs decomposed must compare equal after compile.
	composed := "café"
	decomposed := "café"
	def := &Def{Nodes: []NodeDef{
		{Name: decomposed, Kind: "gain"},
		{Name: "src", Kind: "sample", Destination: composed},
	}}
	specs, err := def.Compile()
	require.NoError(t, err)
	assert.Equal(t, specs[0].Name, specs[1].Destination)
}

func f(v float64) *float64 { return &v }
