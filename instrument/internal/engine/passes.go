package engine

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/descriptor"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/codegen"
	"github.com/wippyai/continuum/instrument/internal/detail"
	"github.com/wippyai/continuum/instrument/internal/slots"
)

// identify selects candidate methods.
func identify(c *bytecode.Class, st *State) (Outcome, error) {
	if c.FindField(continuum.InstrumentedMarker) != nil {
		Logger().Debug("class already instrumented", zap.String("class", c.Name))
		return Stop, nil
	}
	st.takeSnapshot(c)
	for _, m := range c.Methods {
		if !analysis.IsCandidate(m) {
			continue
		}
		if f := st.Settings.Filter; f != nil && !f(c.Name, m) {
			continue
		}
		d, err := descriptor.Of(c.Name, m)
		if err != nil {
			return Stop, errors.WithMethod(err, c.Name, m.Signature())
		}
		st.order = append(st.order, m)
		st.Methods[m] = &MethodAttributes{Descriptor: d}
		if m.Access&bytecode.AccSynchronized != 0 {
			st.skip(m, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
				Class(c.Name).
				Method(m.Signature()).
				Detail("synchronized method holds an implicit monitor").
				Build())
			Logger().Warn("skipping method", zap.String("class", c.Name), zap.String("method", m.Signature()),
				zap.String("reason", "synchronized"))
		}
	}
	if len(st.Methods) == 0 {
		return Stop, nil
	}
	return Continue, nil
}

// analyze computes analysis results and slot plans. Methods without
// suspend-capable calls are dropped, unsupported ones are skipped.
func analyze(c *bytecode.Class, st *State) (Outcome, error) {
	for _, m := range st.Candidates() {
		attrs := st.Methods[m]
		res, err := analysis.Analyze(c.Name, m, st.Hierarchy)
		if err != nil {
			err = errors.WithMethod(err, c.Name, m.Signature())
			if isUnsupported(err) {
				Logger().Warn("skipping method", zap.String("class", c.Name), zap.String("method", m.Signature()),
					zap.Error(err))
				st.skip(m, err)
				continue
			}
			return Stop, err
		}
		if len(res.Invocations) == 0 {
			delete(st.Methods, m)
			continue
		}
		plan, err := slots.Allocate(m, res, st.Settings.Debug)
		if err != nil {
			return Stop, errors.WithMethod(err, c.Name, m.Signature())
		}
		attrs.Analysis = res
		attrs.Plan = plan
		Logger().Debug("method analyzed", zap.String("method", attrs.Descriptor.String()),
			zap.Int("points", len(res.Invocations)), zap.Int("monitors", len(res.Monitors)),
			zap.Stringer("sizes", plan.Sizes))
	}
	if len(st.Methods) == 0 {
		return Stop, nil
	}
	return Continue, nil
}

func isUnsupported(err error) bool {
	var e *errors.Error
	return stderrors.As(err, &e) && e.Kind == errors.KindUnsupported
}

// describe emits the detail artifact.
func describe(c *bytecode.Class, st *State) (Outcome, error) {
	cd := &detail.ClassDetail{Class: c.Name}
	for _, m := range st.Candidates() {
		attrs := st.Methods[m]
		if attrs.Analysis == nil || attrs.Plan == nil {
			return Stop, errors.Precondition(errors.PhasePipeline, "method "+m.Signature()+" was not analyzed")
		}
		md, err := detail.Describe(m, attrs.Analysis, attrs.Plan)
		if err != nil {
			return Stop, errors.WithMethod(err, c.Name, m.Signature())
		}
		attrs.Detail = md
		cd.Methods = append(cd.Methods, md)
	}
	for _, s := range st.Skipped {
		cd.Skipped = append(cd.Skipped, s.Method+": "+s.Err.Error())
	}
	data, err := detail.Marshal(cd)
	if err != nil {
		return Stop, err
	}
	st.Artifacts[detail.ArtifactName(c.SimpleName())] = data
	st.Summary = detail.Summary(cd)
	return Continue, nil
}

// instrument generates the fragments of every method and splices them in.
// Nothing is modified unless generation succeeds for all methods.
func instrument(c *bytecode.Class, st *State) (Outcome, error) {
	if st.methodsChanged(c) {
		return Stop, errors.Precondition(errors.PhasePipeline, "method set changed since analysis")
	}
	methods := st.Candidates()
	outputs := make([]*codegen.Output, len(methods))
	opts := codegen.Options{Markers: st.Settings.Markers, Debug: st.Settings.Debug}
	for i, m := range methods {
		attrs := st.Methods[m]
		if attrs == nil || attrs.Analysis == nil || attrs.Plan == nil {
			return Stop, errors.Precondition(errors.PhasePipeline, "missing attributes for "+m.Signature())
		}
		g, err := codegen.NewGenerator(m, attrs.Analysis, attrs.Plan, opts)
		if err != nil {
			return Stop, errors.WithMethod(err, c.Name, m.Signature())
		}
		out, err := g.Generate()
		if err != nil {
			return Stop, errors.WithMethod(err, c.Name, m.Signature())
		}
		outputs[i] = out
	}
	for i, m := range methods {
		splice(m, st.Methods[m], outputs[i])
		Logger().Debug("method instrumented", zap.String("class", c.Name), zap.String("method", m.Signature()),
			zap.Int("maxLocals", m.MaxLocals), zap.Int("maxStack", m.MaxStack))
	}
	return Continue, nil
}

// finalize marks the class so it is not instrumented twice.
func finalize(c *bytecode.Class, st *State) (Outcome, error) {
	access := bytecode.AccPrivate | bytecode.AccStatic | bytecode.AccFinal | bytecode.AccSynthetic
	if c.IsInterface() {
		access = bytecode.AccPublic | bytecode.AccStatic | bytecode.AccFinal | bytecode.AccSynthetic
	}
	c.Fields = append(c.Fields, &bytecode.Field{Name: continuum.InstrumentedMarker, Desc: "Z", Access: access})
	Logger().Info("class instrumented", zap.String("class", c.Name), zap.Int("methods", len(st.Methods)),
		zap.Int("skipped", len(st.Skipped)))
	return Continue, nil
}
