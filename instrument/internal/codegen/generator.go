package codegen

import (
	"fmt"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/slots"
)

// ExtraStack is the operand stack headroom the generated code needs above
// the method's own maximum.
const ExtraStack = 8

const illegalState = "java/lang/IllegalStateException"

// Options control optional parts of the generated code.
type Options struct {
	Markers MarkerStyle
	// Debug stores the dispatch tag and the continuation mode in the pending
	// slot and describes generated slots in the local variable table.
	Debug bool
}

// Output is everything generated for one method, ready to be spliced.
type Output struct {
	Prologue    *Fragment
	Invocations map[*analysis.InvocationPoint]*Fragment
	Monitors    map[*analysis.MonitorPoint]*Fragment
	// Start and End delimit the method for debug local variable entries.
	Start, End *bytecode.Label
	Locals     []bytecode.LocalVariable
}

// Generator synthesizes the fragments of one method.
type Generator struct {
	method  *bytecode.Method
	res     *analysis.Result
	plan    *slots.Plan
	release *Fragment
	opts    Options
}

// NewGenerator creates a generator for m using its analysis and slot plan.
func NewGenerator(m *bytecode.Method, res *analysis.Result, plan *slots.Plan, opts Options) (*Generator, error) {
	if m == nil || res == nil || plan == nil {
		return nil, errors.NilPointer(errors.PhaseSynthesize, "generator input")
	}
	if len(plan.Layouts) != len(res.Invocations) {
		return nil, errors.Precondition(errors.PhaseSynthesize,
			fmt.Sprintf("slot plan covers %d points, analysis found %d", len(plan.Layouts), len(res.Invocations)))
	}
	return &Generator{method: m, res: res, plan: plan, opts: opts}, nil
}

func (g *Generator) emitter() *Emitter { return NewEmitter(g.opts.Markers) }

// Generate produces all fragments of the method.
func (g *Generator) Generate() (*Output, error) {
	out := &Output{
		Invocations: make(map[*analysis.InvocationPoint]*Fragment, len(g.res.Invocations)),
		Monitors:    make(map[*analysis.MonitorPoint]*Fragment),
	}
	pro, err := g.Prologue()
	if err != nil {
		return nil, err
	}
	out.Prologue = pro
	for _, p := range g.res.Invocations {
		f, err := g.Invocation(p)
		if err != nil {
			return nil, err
		}
		out.Invocations[p] = f
	}
	if g.plan.Locks != nil {
		for _, p := range g.res.Monitors {
			out.Monitors[p] = g.Monitor(p)
		}
	}
	if g.opts.Debug {
		out.Start = bytecode.NewNamedLabel("method_start")
		out.End = bytecode.NewNamedLabel("method_end")
		out.Locals = g.debugLocals(out.Start, out.End)
	}
	return out, nil
}

// Prologue builds the resume dispatch: the mode check, state unpacking, the
// tableswitch over resume tags and one restore block per tag. Tag 0 and a
// normal-mode entry fall through to the original first instruction.
func (g *Generator) Prologue() (*Fragment, error) {
	core := g.plan.Core
	fresh := bytecode.NewNamedLabel("fresh")
	bad := bytecode.NewNamedLabel("bad_tag")
	restores := make([]*bytecode.Label, len(g.res.Invocations))
	for i := range restores {
		restores[i] = bytecode.NewNamedLabel(fmt.Sprintf("restore_%d", i+1))
	}

	e := g.emitter()
	e.Marker("continuum: dispatch")
	e.LoadSlot(core.Continuation).Virtual(continuum.ContinuationClass, continuum.GetModeMethod, continuum.GetModeDesc)
	g.pending(e)
	e.Push(continuum.ModeLoading).Jump(bytecode.OpIfIcmpne, fresh)

	e.LoadSlot(core.Continuation).
		Virtual(continuum.ContinuationClass, continuum.LoadStateMethod, continuum.LoadStateDesc).
		StoreSlot(core.MethodState)
	e.LoadSlot(core.MethodState).
		Virtual(continuum.MethodStateClass, continuum.GetDataMethod, continuum.GetDataDesc).
		StoreSlot(core.Scratch)
	for b := slots.Bucket(0); b < slots.NumBuckets; b++ {
		arr := g.plan.Storage.Array(b)
		if arr == nil {
			continue
		}
		e.LoadSlot(core.Scratch).
			Push(int32(b.DataIndex())).
			Op(bytecode.OpAaload).
			Checkcast(arr.Type.Descriptor()).
			StoreSlot(arr)
	}
	if locks := g.plan.Locks; locks != nil {
		e.LoadSlot(core.MethodState).
			Virtual(continuum.MethodStateClass, continuum.GetLockStateMethod, continuum.GetLockStateDesc).
			StoreSlot(locks.LockState)
	}
	e.LoadSlot(core.MethodState).
		Virtual(continuum.MethodStateClass, continuum.GetPointMethod, continuum.GetPointDesc)
	g.pending(e)
	e.Insn(bytecode.TableSwitch(0, int32(len(restores)), bad, append([]*bytecode.Label{fresh}, restores...)...))

	e.Mark(bad).Throw(illegalState, "continuum: unknown continuation point")

	for i, p := range g.res.Invocations {
		if err := g.restore(e, p, restores[i]); err != nil {
			return nil, err
		}
	}

	e.Mark(fresh)
	if locks := g.plan.Locks; locks != nil {
		e.New(continuum.LockStateClass).
			Op(bytecode.OpDup).
			Special(continuum.LockStateClass, "<init>", "()V").
			StoreSlot(locks.LockState)
	}
	return e.Fragment(), nil
}

// restore rebuilds the frame of p: locals, held monitors, then the operand
// stack, and jumps back into the original code.
func (g *Generator) restore(e *Emitter, p *analysis.InvocationPoint, at *bytecode.Label) error {
	layout, err := g.plan.Layout(p.Tag)
	if err != nil {
		return err
	}
	e.Mark(at).Marker(fmt.Sprintf("continuum: restore %d", p.Tag))
	for _, ent := range layout.Locals {
		g.loadEntry(e, ent)
		e.Store(valueType(ent.Value), ent.Local)
	}

	if d := p.Depth(); d > 0 {
		if err := g.reacquire(e, d); err != nil {
			return err
		}
	}

	stack := layout.Stack
	if p.Suspend {
		// the receiver was consumed by suspend() before the frame was saved
		stack = stack[:len(stack)-p.ConsumedArgs()]
	}
	for _, ent := range stack {
		g.loadEntry(e, ent)
	}
	e.Jump(bytecode.OpGoto, p.Resume)
	return nil
}

// reacquire enters the d monitors recorded in the lock state, outermost
// first, after checking the record has exactly d entries.
func (g *Generator) reacquire(e *Emitter, d int) error {
	locks := g.plan.Locks
	if locks == nil {
		return errors.Precondition(errors.PhaseSynthesize, "monitors held at a point but no lock slots allocated")
	}
	scratch := g.plan.Core.Scratch
	ok := bytecode.NewLabel()
	e.LoadSlot(locks.LockState).
		Virtual(continuum.LockStateClass, continuum.LockToArray, continuum.LockToArrayDesc).
		StoreSlot(scratch)
	e.LoadSlot(scratch).Op(bytecode.OpArraylength).Push(int32(d)).Jump(bytecode.OpIfIcmpeq, ok)
	e.Throw(illegalState, "continuum: lock state does not match monitor depth")
	e.Mark(ok)
	for i := 0; i < d; i++ {
		e.LoadSlot(scratch).Push(int32(i)).Op(bytecode.OpAaload).Op(bytecode.OpMonitorenter)
	}
	return nil
}

// loadEntry pushes the saved value of ent.
func (g *Generator) loadEntry(e *Emitter, ent slots.Entry) {
	if !ent.Stored() {
		e.Op(bytecode.OpAconstNull)
		return
	}
	e.LoadSlot(g.plan.Storage.Array(ent.Bucket)).Push(int32(ent.Index)).ArrayLoad(ent.Bucket)
	if ent.Bucket == slots.Objects {
		e.Checkcast(ent.Value.Desc)
	}
}

// pending copies the int on top of the stack into the debug slot.
func (g *Generator) pending(e *Emitter) {
	if !g.opts.Debug || g.plan.Core.Pending == nil {
		return
	}
	e.Op(bytecode.OpDup).StoreSlot(g.plan.Core.Pending)
}

func (g *Generator) debugLocals(start, end *bytecode.Label) []bytecode.LocalVariable {
	out := make([]bytecode.LocalVariable, 0, len(g.plan.Generated))
	for _, s := range g.plan.Generated {
		out = append(out, bytecode.LocalVariable{
			Start: start,
			End:   end,
			Name:  "__" + s.Role.String(),
			Desc:  s.Type.Descriptor(),
			Index: s.Index,
		})
	}
	return out
}
