package analysis

import (
	"fmt"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
)

// Result is the analysis of one method.
type Result struct {
	Frames      []*Frame
	Points      []Point
	Invocations []*InvocationPoint
	Monitors    []*MonitorPoint
	// ContSlot is the local slot of the continuation argument.
	ContSlot int
}

// NeedsLockState reports whether any invocation point suspends with a
// monitor held. Without one, monitor instructions are left untouched.
func (r *Result) NeedsLockState() bool {
	for _, p := range r.Invocations {
		if len(p.Locks) > 0 {
			return true
		}
	}
	return false
}

// Analyze computes frames, continuation points and held monitors for m.
//
// A method without suspend-capable calls yields a result with no
// invocations. Errors of kind unsupported mark a method the instrumenter
// must leave alone; unbalanced monitors fail the whole class.
func Analyze(owner string, m *bytecode.Method, r Resolver) (*Result, error) {
	if m == nil {
		return nil, errors.NilPointer(errors.PhaseAnalyze, "method")
	}
	contSlot, ok := ContinuationSlot(m)
	if !ok {
		return nil, errors.New(errors.PhaseAnalyze, errors.KindInvalidInput).
			Detail("%s has no continuation parameter", m.Signature()).
			Build()
	}

	a := NewAnalyzer(owner, m, r)
	frames, err := a.Frames()
	if err != nil {
		return nil, err
	}
	locks, err := a.trackLocks(frames)
	if err != nil {
		return nil, err
	}

	res := &Result{Frames: frames, ContSlot: contSlot}
	lines := lineNumbers(a.insns)
	tag := 0
	for idx, insn := range a.insns {
		f := frames[idx]
		if f == nil {
			continue
		}
		switch insn.Opcode {
		case bytecode.OpMonitorenter, bytecode.OpMonitorexit:
			mp := &MonitorPoint{
				Insn:  insn,
				Frame: f,
				Index: idx,
				Line:  lines[idx],
				Enter: insn.Opcode == bytecode.OpMonitorenter,
			}
			res.Monitors = append(res.Monitors, mp)
			res.Points = append(res.Points, mp)
			continue
		}

		ip, err := classify(insn, idx)
		if err != nil {
			return nil, err
		}
		if ip == nil {
			continue
		}
		if f.HasUnsupported() {
			return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
				At(idx).
				Detail("call to %s.%s with uninitialized or untyped values live", ip.Call.Owner, ip.Call.Name).
				Build()
		}
		if len(f.Locals) <= contSlot || f.Locals[contSlot].Desc != continuum.ContinuationDesc {
			return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
				At(idx).
				Detail("continuation slot %d overwritten before call", contSlot).
				Build()
		}
		tag++
		ip.Tag = tag
		ip.Frame = f
		ip.Line = lines[idx]
		ip.Locks = locks[idx]
		ip.Resume = bytecode.NewNamedLabel(fmt.Sprintf("resume_%d", tag))
		res.Invocations = append(res.Invocations, ip)
		res.Points = append(res.Points, ip)
	}
	return res, nil
}
