package codegen

import (
	"fmt"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/slots"
)

// Invocation builds the replacement for the call at p.
//
// The fragment allocates fresh storage arrays, saves the operand stack and
// locals, reloads the stack and performs the call. If the continuation is
// saving afterwards, the frame is packed into a MethodState, pushed onto
// the continuation, held monitors are released and the method returns a
// default value. Otherwise execution continues as after the original call.
func (g *Generator) Invocation(p *analysis.InvocationPoint) (*Fragment, error) {
	layout, err := g.plan.Layout(p.Tag)
	if err != nil {
		return nil, err
	}
	if p.Suspend && len(layout.Stack) < p.ConsumedArgs() {
		return nil, errors.New(errors.PhaseSynthesize, errors.KindInvalidData).
			At(p.Index).
			Detail("suspend call with %d stack entries", len(layout.Stack)).
			Build()
	}
	core := g.plan.Core
	cont := bytecode.NewNamedLabel(fmt.Sprintf("continue_%d", p.Tag))
	if p.Suspend {
		cont = p.Resume
	}

	e := g.emitter()
	e.Marker(fmt.Sprintf("continuum: save %d", p.Tag))
	for b := slots.Bucket(0); b < slots.NumBuckets; b++ {
		if arr := g.plan.Storage.Array(b); arr != nil {
			e.Push(int32(g.plan.Sizes[b])).NewArray(b).StoreSlot(arr)
		}
	}
	if err := g.saveStack(e, layout); err != nil {
		return nil, err
	}
	g.saveLocals(e, layout)
	for _, ent := range layout.Stack {
		g.loadEntry(e, ent)
	}

	if !p.Suspend {
		e.Mark(p.Resume)
	}
	e.Insn(p.Insn)

	e.LoadSlot(core.Continuation).Virtual(continuum.ContinuationClass, continuum.GetModeMethod, continuum.GetModeDesc)
	g.pending(e)
	e.Push(continuum.ModeSaving).Jump(bytecode.OpIfIcmpne, cont)

	e.Marker(fmt.Sprintf("continuum: suspend %d", p.Tag))
	g.saveLocals(e, layout)
	g.pack(e, p.Tag)
	if p.Depth() > 0 {
		rel, err := g.releaseMonitors()
		if err != nil {
			return nil, err
		}
		e.Splice(rel)
	}
	e.ReturnDefault(g.method.Type().ReturnType())
	e.Mark(cont)
	return e.Fragment(), nil
}

// saveStack moves the operand stack, top first, into the storage arrays.
// Known nulls are dropped and pushed back as constants.
func (g *Generator) saveStack(e *Emitter, layout *slots.Layout) error {
	for i := len(layout.Stack) - 1; i >= 0; i-- {
		ent := layout.Stack[i]
		if !ent.Stored() {
			e.Op(bytecode.OpPop)
			continue
		}
		tmp := g.plan.Flow.Temp(ent.Bucket)
		if tmp == nil {
			return errors.Precondition(errors.PhaseSynthesize,
				fmt.Sprintf("no %s temporary for a stack value", ent.Bucket))
		}
		e.StoreSlot(tmp).
			LoadSlot(g.plan.Storage.Array(ent.Bucket)).
			Push(int32(ent.Index)).
			LoadSlot(tmp).
			ArrayStore(ent.Bucket)
	}
	return nil
}

func (g *Generator) saveLocals(e *Emitter, layout *slots.Layout) {
	for _, ent := range layout.Locals {
		if !ent.Stored() {
			continue
		}
		e.LoadSlot(g.plan.Storage.Array(ent.Bucket)).
			Push(int32(ent.Index)).
			Load(valueType(ent.Value), ent.Local).
			ArrayStore(ent.Bucket)
	}
}

// pack builds the data container and pushes a MethodState for tag.
func (g *Generator) pack(e *Emitter, tag int) {
	core := g.plan.Core
	e.Push(continuum.DataSlots).
		Insn(bytecode.TypeInsn(bytecode.OpAnewarray, "java/lang/Object")).
		StoreSlot(core.Scratch)
	for b := slots.Bucket(0); b < slots.NumBuckets; b++ {
		if arr := g.plan.Storage.Array(b); arr != nil {
			e.LoadSlot(core.Scratch).Push(int32(b.DataIndex())).LoadSlot(arr).Op(bytecode.OpAastore)
		}
	}
	e.LoadSlot(core.Continuation).
		New(continuum.MethodStateClass).
		Op(bytecode.OpDup).
		Push(int32(tag)).
		LoadSlot(core.Scratch)
	if locks := g.plan.Locks; locks != nil {
		e.LoadSlot(locks.LockState)
	} else {
		e.Op(bytecode.OpAconstNull)
	}
	e.Special(continuum.MethodStateClass, "<init>", continuum.MethodStateInitDesc).
		Virtual(continuum.ContinuationClass, continuum.PushStateMethod, continuum.PushStateDesc)
}

// releaseMonitors returns a copy of the loop that exits every monitor in
// the lock state, innermost first. The loop is built once per method.
func (g *Generator) releaseMonitors() (*Fragment, error) {
	locks := g.plan.Locks
	if locks == nil {
		return nil, errors.Precondition(errors.PhaseSynthesize, "monitors held at a point but no lock slots allocated")
	}
	if g.release == nil {
		scratch := g.plan.Core.Scratch
		loop := bytecode.NewNamedLabel("release_loop")
		done := bytecode.NewNamedLabel("release_done")
		e := g.emitter()
		e.LoadSlot(locks.LockState).
			Virtual(continuum.LockStateClass, continuum.LockToArray, continuum.LockToArrayDesc).
			StoreSlot(scratch)
		e.LoadSlot(scratch).Op(bytecode.OpArraylength).StoreSlot(locks.ArrayLen)
		e.LoadSlot(locks.ArrayLen).StoreSlot(locks.Counter)
		e.Mark(loop).LoadSlot(locks.Counter).Jump(bytecode.OpIfle, done)
		e.Iinc(locks.Counter.Index, -1)
		e.LoadSlot(scratch).LoadSlot(locks.Counter).Op(bytecode.OpAaload).Op(bytecode.OpMonitorexit)
		e.Jump(bytecode.OpGoto, loop)
		e.Mark(done)
		g.release = e.Fragment()
	}
	return g.release.Clone(), nil
}

// Monitor wraps a monitor instruction so the lock state records it. The
// object is recorded after monitorenter succeeds and after monitorexit
// releases it.
func (g *Generator) Monitor(p *analysis.MonitorPoint) *Fragment {
	method := continuum.LockExitMethod
	if p.Enter {
		method = continuum.LockEnterMethod
	}
	e := g.emitter()
	e.Op(bytecode.OpDup).
		Insn(p.Insn).
		LoadSlot(g.plan.Locks.LockState).
		Op(bytecode.OpSwap).
		Virtual(continuum.LockStateClass, method, continuum.LockEnterDesc)
	return e.Fragment()
}
