package engine

import (
	"go.uber.org/multierr"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/descriptor"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/codegen"
	"github.com/wippyai/continuum/instrument/internal/detail"
	"github.com/wippyai/continuum/instrument/internal/slots"
)

// Settings configure one run.
type Settings struct {
	Markers codegen.MarkerStyle
	Debug   bool
	// Filter restricts the candidate methods. Nil accepts every candidate.
	Filter func(owner string, m *bytecode.Method) bool
}

// MethodAttributes is what the passes learn about one candidate method.
type MethodAttributes struct {
	Descriptor descriptor.MethodDescriptor
	Analysis   *analysis.Result
	Plan       *slots.Plan
	Detail     detail.MethodDetail
}

// Skip records a method left uninstrumented.
type Skip struct {
	Method string
	Err    error
}

// State is the mutable context shared by the passes of one class run.
type State struct {
	Settings  Settings
	Hierarchy analysis.Resolver
	Methods   map[*bytecode.Method]*MethodAttributes
	// Artifacts maps artifact names to their contents.
	Artifacts map[string][]byte
	Skipped   []Skip
	Summary   string

	// order of Methods, fixed by the identify pass
	order    []*bytecode.Method
	snapshot []*bytecode.Method
	skipErr  error
	aborted  bool
}

// NewState creates the state for one class run.
func NewState(settings Settings, resolver analysis.Resolver) *State {
	return &State{
		Settings:  settings,
		Hierarchy: resolver,
		Methods:   make(map[*bytecode.Method]*MethodAttributes),
		Artifacts: make(map[string][]byte),
	}
}

// Abort stops the run after the current pass.
func (s *State) Abort() { s.aborted = true }

// Aborted reports whether the run was stopped early.
func (s *State) Aborted() bool { return s.aborted }

// Candidates returns the methods still selected for instrumentation, in
// class order.
func (s *State) Candidates() []*bytecode.Method {
	out := make([]*bytecode.Method, 0, len(s.Methods))
	for _, m := range s.order {
		if _, ok := s.Methods[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// SkipErr combines the reasons of all skipped methods, or nil.
func (s *State) SkipErr() error { return s.skipErr }

func (s *State) skip(m *bytecode.Method, err error) {
	delete(s.Methods, m)
	s.Skipped = append(s.Skipped, Skip{Method: m.Signature(), Err: err})
	s.skipErr = multierr.Append(s.skipErr, err)
}

// takeSnapshot records the class's method set.
func (s *State) takeSnapshot(c *bytecode.Class) {
	s.snapshot = append([]*bytecode.Method(nil), c.Methods...)
}

// methodsChanged reports whether the class's method set differs from the
// snapshot.
func (s *State) methodsChanged(c *bytecode.Class) bool {
	if len(c.Methods) != len(s.snapshot) {
		return true
	}
	for i, m := range c.Methods {
		if m != s.snapshot[i] {
			return true
		}
	}
	return false
}
