package instrument

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/hierarchy"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/engine"
)

// Codec converts between class file bytes and the editable model. It is
// supplied by the caller; the encoder receives the resolver it must use
// for stack map frame computation.
type Codec interface {
	Decode(data []byte) (*bytecode.Class, error)
	Encode(c *bytecode.Class, r *hierarchy.Resolver) ([]byte, error)
}

// SkippedMethod is a method left uninstrumented because of its shape.
type SkippedMethod struct {
	Method string
	Err    error
}

// Result is the outcome of instrumenting one class.
type Result struct {
	Class *bytecode.Class
	// Bytes holds the encoded class for InstrumentBytes. It is the input
	// unchanged when nothing was instrumented.
	Bytes []byte
	// Artifacts maps artifact names, such as "Main.continfo", to contents.
	Artifacts map[string][]byte
	Summary   string
	Skipped   []SkippedMethod
	// Instrumented reports whether the class was modified.
	Instrumented bool
	skipErr      error
}

// SkipErr combines the reasons of all skipped methods, or returns nil.
func (r *Result) SkipErr() error { return r.skipErr }

// Instrumenter rewrites classes so their suspend-capable methods can save
// and restore their frames. It is safe for concurrent use.
type Instrumenter struct {
	settings engine.Settings
}

// New creates an instrumenter.
func New(s Settings) (*Instrumenter, error) {
	es, err := s.engineSettings()
	if err != nil {
		return nil, err
	}
	return &Instrumenter{settings: es}, nil
}

// SetLogger configures the logger used by all instrumenters.
// This must be called before any instrumentation runs.
func SetLogger(l *zap.Logger) {
	engine.SetLogger(l)
}

// Instrument rewrites c in place. The hierarchy map answers common
// superclass questions during analysis and may be nil; it is only read.
// On error c is left unmodified.
func (i *Instrumenter) Instrument(c *bytecode.Class, types *hierarchy.Map) (*Result, error) {
	var resolver analysis.Resolver
	if types != nil {
		resolver = hierarchy.NewResolver(types)
	}
	st, err := engine.New(i.settings, resolver).Run(c)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Class:        c,
		Artifacts:    st.Artifacts,
		Summary:      st.Summary,
		Instrumented: !st.Aborted(),
		skipErr:      st.SkipErr(),
	}
	for _, s := range st.Skipped {
		res.Skipped = append(res.Skipped, SkippedMethod{Method: s.Method, Err: s.Err})
	}
	return res, nil
}

// InstrumentBytes decodes a class with codec, instruments it and encodes
// the result. Classes that need no changes are returned as given.
func (i *Instrumenter) InstrumentBytes(data []byte, types *hierarchy.Map, codec Codec) (*Result, error) {
	if codec == nil {
		return nil, errors.NilPointer(errors.PhaseCodec, "codec")
	}
	c, err := codec.Decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindInvalidData, err, "decode class")
	}
	res, err := i.Instrument(c, types)
	if err != nil {
		return nil, err
	}
	if !res.Instrumented {
		res.Bytes = data
		return res, nil
	}
	if types == nil {
		types = hierarchy.NewMap()
	}
	out, err := codec.Encode(c, hierarchy.NewResolver(types))
	if err != nil {
		return nil, errors.New(errors.PhaseCodec, errors.KindInvalidData).
			Class(c.Name).
			Cause(err).
			Detail("encode class").
			Build()
	}
	res.Bytes = out
	return res, nil
}

// InstrumentAll instruments classes concurrently, each with its own state.
// Results are in input order. The first failure cancels the remaining work.
func (i *Instrumenter) InstrumentAll(ctx context.Context, classes []*bytecode.Class, types *hierarchy.Map) ([]*Result, error) {
	results := make([]*Result, len(classes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx, c := range classes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := i.Instrument(c, types)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
