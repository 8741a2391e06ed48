package graph

import (
	"github.com/roach88/cadenza/internal/automation"
	"github.com/roach88/cadenza/internal/backend"
)

// FactorySpec describes how to create a node through the backend
// context's factory.
type FactorySpec struct {
	Kind   string
	Params map[string]float64
}

// NodeSpec declares one node of a graph. Exactly one of Ref, Factory,
// Handle must be set: a reference path resolved through the context, a
// factory command run against the context, or a pre-built handle.
//
// Destination names the spec this node's output feeds into; empty
// means the graph's sink. CreatedOnPlay defers materialization to each
// play: the node is a throwaway, created fresh per playback session
// and discarded with it, so it requires a Factory.
//
// Specs are read at build time only; mutating one afterwards has no
// effect on the graph built from it.
type NodeSpec struct {
	Name          string
	Ref           string
	Factory       *FactorySpec
	Handle        backend.Node
	Destination   string
	CreatedOnPlay bool

	// Automation is the command queue applied against this node on
	// every play. Nil means no automation.
	Automation *automation.Queue
}

func (s NodeSpec) validate() *ConfigError {
	if s.Name == "" {
		return &ConfigError{Code: ErrCodeDuplicateName, Message: "spec has no name"}
	}
	sources := 0
	if s.Ref != "" {
		sources++
	}
	if s.Factory != nil {
		sources++
	}
	if s.Handle != nil {
		sources++
	}
	if sources != 1 {
		return &ConfigError{
			Code:    ErrCodeSourceConflict,
			Spec:    s.Name,
			Message: "exactly one of ref, factory, handle must be set",
		}
	}
	if s.CreatedOnPlay && s.Factory == nil {
		return &ConfigError{
			Code:    ErrCodeSourceConflict,
			Spec:    s.Name,
			Message: "createdOnPlay requires a factory",
		}
	}
	return nil
}
