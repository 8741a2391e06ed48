// Package patch loads declarative patch definitions and compiles them
// into graph specs, automation queues, and beat tracks.
//
// A patch file describes the "what" of a sound - its nodes, their
// wiring, their envelopes, and optionally the beat tracks built on it -
// in CUE (primary) or YAML. Compilation funnels every automation step
// through the builder API, so enqueue-time validation (unsupported
// curves, exponential ramps touching zero) applies identically to
// programmatic and declarative use.
package patch

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cadenza/internal/automation"
	"github.com/roach88/cadenza/internal/graph"
)

// Def is the root of a patch definition.
type Def struct {
	Name   string     `json:"name" yaml:"name"`
	Nodes  []NodeDef  `json:"nodes" yaml:"nodes"`
	Tracks []TrackDef `json:"tracks,omitempty" yaml:"tracks,omitempty"`
}

// NodeDef declares one node. Exactly one of Kind (factory) and Ref
// (reference path) must be set; pre-built handles have no declarative
// form.
type NodeDef struct {
	Name          string             `json:"name" yaml:"name"`
	Kind          string             `json:"kind,omitempty" yaml:"kind,omitempty"`
	Ref           string             `json:"ref,omitempty" yaml:"ref,omitempty"`
	Params        map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
	Destination   string             `json:"destination,omitempty" yaml:"destination,omitempty"`
	CreatedOnPlay bool               `json:"created_on_play,omitempty" yaml:"created_on_play,omitempty"`
	Automation    []StepDef          `json:"automation,omitempty" yaml:"automation,omitempty"`
}

// StepDef is one automation step.
//
// op "set": key, value, plus at most one of at / ending_at. A bare set
// is a starting value; at makes it a timed set; ending_at makes it a
// ramp toward value.
//
// op "ramp": key, from, to, end - sugar for a starting value plus a
// ramp, exactly like the OnPlayRamp builder.
type StepDef struct {
	Op       string   `json:"op" yaml:"op"`
	Key      string   `json:"key" yaml:"key"`
	Value    float64  `json:"value,omitempty" yaml:"value,omitempty"`
	At       *float64 `json:"at,omitempty" yaml:"at,omitempty"`
	EndingAt *float64 `json:"ending_at,omitempty" yaml:"ending_at,omitempty"`
	From     float64  `json:"from,omitempty" yaml:"from,omitempty"`
	To       float64  `json:"to,omitempty" yaml:"to,omitempty"`
	End      float64  `json:"end,omitempty" yaml:"end,omitempty"`
	Curve    string   `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// TrackDef declares one beat track. Each track builds its own instance
// of the patch's node specs as its sound graph.
type TrackDef struct {
	Name    string   `json:"name" yaml:"name"`
	Beats   []bool   `json:"beats" yaml:"beats"`
	Gain    float64  `json:"gain,omitempty" yaml:"gain,omitempty"`
	Pan     float64  `json:"pan,omitempty" yaml:"pan,omitempty"`
	Samples []string `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// CompileError is a definition-level failure, raised before any graph
// or backend work happens.
type CompileError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("patch: %s: %s", e.Field, e.Message)
}

// IsCompileError reports whether err is a definition failure.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// normalizeName applies NFC so visually identical names compare equal
// regardless of how the definition file encoded them.
func normalizeName(s string) string {
	return norm.NFC.String(s)
}

// Compile turns the definition into graph specs ready for Build.
// Automation steps go through the builder API, so curve validation
// errors surface here with the same codes programmatic use sees.
func (d *Def) Compile() ([]graph.NodeSpec, error) {
	if len(d.Nodes) == 0 {
		return nil, &CompileError{Field: "nodes", Message: "patch declares no nodes"}
	}
	specs := make([]graph.NodeSpec, 0, len(d.Nodes))
	for i, n := range d.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if n.Name == "" {
			return nil, &CompileError{Field: field + ".name", Message: "required"}
		}
		if (n.Kind == "") == (n.Ref == "") {
			return nil, &CompileError{Field: field, Message: "exactly one of kind and ref must be set"}
		}
		spec := graph.NodeSpec{
			Name:          normalizeName(n.Name),
			Ref:           n.Ref,
			Destination:   normalizeName(n.Destination),
			CreatedOnPlay: n.CreatedOnPlay,
		}
		if n.Kind != "" {
			spec.Factory = &graph.FactorySpec{Kind: n.Kind, Params: n.Params}
		}
		queue, err := compileSteps(field, n.Automation)
		if err != nil {
			return nil, err
		}
		spec.Automation = queue
		specs = append(specs, spec)
	}
	return specs, nil
}

func compileSteps(field string, steps []StepDef) (*automation.Queue, error) {
	q := &automation.Queue{}
	for i, s := range steps {
		sf := fmt.Sprintf("%s.automation[%d]", field, i)
		if s.Key == "" {
			return nil, &CompileError{Field: sf + ".key", Message: "required"}
		}
		curve := curveKinds(s.Curve)
		switch s.Op {
		case "set":
			if s.At != nil && s.EndingAt != nil {
				return nil, &CompileError{Field: sf, Message: "at and ending_at are mutually exclusive"}
			}
			cont := q.OnPlaySet(s.Key).To(s.Value)
			switch {
			case s.At != nil:
				if err := cont.At(*s.At); err != nil {
					return nil, err
				}
			case s.EndingAt != nil:
				if err := cont.EndingAt(*s.EndingAt, curve...); err != nil {
					return nil, err
				}
			}
		case "ramp":
			r, err := q.OnPlayRamp(s.Key, curve...)
			if err != nil {
				return nil, err
			}
			if err := r.From(s.From).To(s.To).In(s.End); err != nil {
				return nil, err
			}
		default:
			return nil, &CompileError{Field: sf + ".op", Message: fmt.Sprintf("unknown op %q", s.Op)}
		}
	}
	return q, nil
}

// curveKinds maps the definition's curve string onto the builder's
// variadic kind. Unknown strings pass through so the builder rejects
// them with INVALID_RAMP_TYPE - curve validation lives in one place.
func curveKinds(curve string) []automation.RampKind {
	if curve == "" {
		return nil
	}
	return []automation.RampKind{automation.RampKind(curve)}
}

// CompileTracks validates track definitions and normalizes names.
func (d *Def) CompileTracks() ([]TrackDef, error) {
	out := make([]TrackDef, 0, len(d.Tracks))
	for i, tr := range d.Tracks {
		field := fmt.Sprintf("tracks[%d]", i)
		if tr.Name == "" {
			return nil, &CompileError{Field: field + ".name", Message: "required"}
		}
		if len(tr.Beats) == 0 {
			return nil, &CompileError{Field: field + ".beats", Message: "track declares no beats"}
		}
		tr.Name = normalizeName(tr.Name)
		if tr.Gain == 0 {
			tr.Gain = 1
		}
		out = append(out, tr)
	}
	return out, nil
}
