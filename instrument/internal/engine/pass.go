package engine

import (
	"go.uber.org/zap"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/instrument/internal/analysis"
)

// Outcome tells the engine whether to run the next pass.
type Outcome uint8

const (
	Continue Outcome = iota
	Stop
)

func (o Outcome) String() string {
	if o == Stop {
		return "stop"
	}
	return "continue"
}

// Pass is one step of a run.
type Pass interface {
	Name() string
	Run(c *bytecode.Class, st *State) (Outcome, error)
}

// PassFunc adapts a function to Pass.
type PassFunc struct {
	Label string
	Fn    func(c *bytecode.Class, st *State) (Outcome, error)
}

func (p PassFunc) Name() string { return p.Label }

func (p PassFunc) Run(c *bytecode.Class, st *State) (Outcome, error) { return p.Fn(c, st) }

// DefaultPasses returns the standard pass order.
func DefaultPasses() []Pass {
	return []Pass{
		PassFunc{"identify", identify},
		PassFunc{"analyze", analyze},
		PassFunc{"detail", describe},
		PassFunc{"instrument", instrument},
		PassFunc{"finalize", finalize},
	}
}

// Engine applies passes to classes. It keeps no state between runs and may
// be used from several goroutines if the resolver is safe for concurrent
// reads.
type Engine struct {
	resolver analysis.Resolver
	passes   []Pass
	settings Settings
}

// New creates an engine with the default passes.
func New(settings Settings, resolver analysis.Resolver) *Engine {
	return NewWithPasses(settings, resolver, DefaultPasses()...)
}

// NewWithPasses creates an engine running passes in order.
func NewWithPasses(settings Settings, resolver analysis.Resolver, passes ...Pass) *Engine {
	return &Engine{settings: settings, resolver: resolver, passes: passes}
}

// Run instruments c in place. On error the class has not been modified
// and no state is returned.
func (e *Engine) Run(c *bytecode.Class) (*State, error) {
	if c == nil {
		return nil, errors.NilPointer(errors.PhasePipeline, "class")
	}
	st := NewState(e.settings, e.resolver)
	log := Logger().With(zap.String("class", c.Name))
	for _, p := range e.passes {
		out, err := p.Run(c, st)
		if err != nil {
			log.Debug("pass failed", zap.String("pass", p.Name()), zap.Error(err))
			return nil, errors.WithMethod(err, c.Name, "")
		}
		log.Debug("pass done", zap.String("pass", p.Name()), zap.Stringer("outcome", out))
		if out == Stop {
			st.Abort()
		}
		if st.Aborted() {
			break
		}
	}
	return st, nil
}
