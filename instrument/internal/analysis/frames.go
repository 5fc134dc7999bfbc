package analysis

import (
	"fmt"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
)

const (
	throwableDesc = "Ljava/lang/Throwable;"
	objectName    = "java/lang/Object"
)

// Resolver answers common-superclass queries for reference merges.
type Resolver interface {
	CommonSuperclass(a, b string) (string, error)
}

// Analyzer computes frames for one method.
type Analyzer struct {
	resolver Resolver
	method   *bytecode.Method
	insns    []*bytecode.Instruction
	labels   map[*bytecode.Label]int
	frames   []*Frame
	handlers [][]handlerEdge
	owner    string
}

type handlerEdge struct {
	target int
	desc   string
}

// NewAnalyzer creates an analyzer for m declared in owner. A nil resolver
// merges distinct reference types to java/lang/Object.
func NewAnalyzer(owner string, m *bytecode.Method, r Resolver) *Analyzer {
	return &Analyzer{owner: owner, method: m, resolver: r}
}

// Frames runs the dataflow to a fixpoint and returns the frame before each
// instruction. Unreachable instructions have a nil frame.
func (a *Analyzer) Frames() ([]*Frame, error) {
	a.insns = a.method.Instructions.Slice()
	a.labels = a.method.Instructions.Labels()
	a.frames = make([]*Frame, len(a.insns))
	if len(a.insns) == 0 {
		return a.frames, nil
	}
	if err := a.buildHandlers(); err != nil {
		return nil, err
	}

	a.frames[0] = a.entryFrame()
	work := NewBitSet(len(a.insns))
	work.Set(0)

	for {
		idx, ok := work.Pop()
		if !ok {
			break
		}
		insn := a.insns[idx]
		before := a.frames[idx]

		for _, h := range a.handlers[idx] {
			hf := &Frame{
				Locals: append([]Value(nil), before.Locals...),
				Stack:  []Value{{Kind: KindReference, Desc: h.desc, Origin: h.target}},
			}
			if err := a.flow(h.target, hf, work); err != nil {
				return nil, err
			}
		}

		after := before.Clone()
		if err := a.execute(after, insn, idx); err != nil {
			return nil, a.locate(err, idx)
		}

		for _, l := range insn.Targets() {
			target, ok := a.labels[l]
			if !ok {
				return nil, a.locate(fmt.Errorf("jump to unplaced label %s", l), idx)
			}
			if err := a.flow(target, after, work); err != nil {
				return nil, err
			}
		}
		if insn.FallsThrough() && idx+1 < len(a.insns) {
			if err := a.flow(idx+1, after, work); err != nil {
				return nil, err
			}
		}
	}
	return a.frames, nil
}

func (a *Analyzer) locate(err error, idx int) error {
	if e, ok := err.(*errors.Error); ok {
		if e.Instr == errors.NoInstruction {
			e.Instr = idx
		}
		return e
	}
	return errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
		At(idx).
		Detail("%s", err.Error()).
		Build()
}

func (a *Analyzer) entryFrame() *Frame {
	f := &Frame{}
	slot := 0
	if !a.method.IsStatic() {
		f.store(0, Value{Kind: KindReference, Desc: "L" + a.owner + ";", Origin: ParamOrigin(0)})
		slot = 1
	}
	for _, t := range a.method.Type().ArgumentTypes() {
		f.store(slot, ValueOf(t, ParamOrigin(slot)))
		slot += t.Size()
	}
	for len(f.Locals) < a.method.MaxLocals {
		f.Locals = append(f.Locals, top)
	}
	return f
}

// buildHandlers records, per instruction, the handlers an exception raised
// there can reach. Handlers are taken in table order and the search stops at
// the first catch-all, matching how the virtual machine dispatches.
func (a *Analyzer) buildHandlers() error {
	a.handlers = make([][]handlerEdge, len(a.insns))
	for i := range a.insns {
		for _, tc := range a.method.TryCatchBlocks {
			start, ok1 := a.labels[tc.Start]
			end, ok2 := a.labels[tc.End]
			handler, ok3 := a.labels[tc.Handler]
			if !ok1 || !ok2 || !ok3 {
				return errors.InvalidData(errors.PhaseAnalyze, "try/catch block references an unplaced label")
			}
			if i < start || i >= end {
				continue
			}
			desc := throwableDesc
			if tc.Type != "" {
				desc = "L" + tc.Type + ";"
			}
			a.handlers[i] = append(a.handlers[i], handlerEdge{target: handler, desc: desc})
			if tc.Type == "" {
				break
			}
		}
	}
	return nil
}

// flow merges f into the frame of target and queues target on change.
func (a *Analyzer) flow(target int, f *Frame, work *BitSet) error {
	cur := a.frames[target]
	if cur == nil {
		a.frames[target] = f.Clone()
		work.Set(target)
		return nil
	}
	changed, err := a.merge(cur, f, target)
	if err != nil {
		return err
	}
	if changed {
		work.Set(target)
	}
	return nil
}

func (a *Analyzer) merge(dst, src *Frame, join int) (bool, error) {
	if len(dst.Stack) != len(src.Stack) {
		return false, errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
			At(join).
			Detail("stack height mismatch at merge: %d vs %d", len(dst.Stack), len(src.Stack)).
			Build()
	}
	changed := false
	for i := range dst.Stack {
		v, err := a.mergeValue(dst.Stack[i], src.Stack[i], StackPhiOrigin(join, i))
		if err != nil {
			return false, a.locate(err, join)
		}
		if v != dst.Stack[i] {
			dst.Stack[i] = v
			changed = true
		}
	}
	for len(dst.Locals) < len(src.Locals) {
		dst.Locals = append(dst.Locals, top)
		changed = true
	}
	for i := range dst.Locals {
		other := top
		if i < len(src.Locals) {
			other = src.Locals[i]
		}
		v, err := a.mergeValue(dst.Locals[i], other, PhiOrigin(join, i))
		if err != nil {
			return false, a.locate(err, join)
		}
		if v != dst.Locals[i] {
			dst.Locals[i] = v
			changed = true
		}
	}
	return changed, nil
}

// mergeValue joins two values meeting at one position; phi is the origin
// given to the result when their origins differ.
func (a *Analyzer) mergeValue(x, y Value, phi int) (Value, error) {
	if x == y {
		return x, nil
	}
	origin := x.Origin
	if x.Origin != y.Origin {
		origin = phi
	}
	switch {
	case x.Kind == KindTop || y.Kind == KindTop:
		return top, nil
	case x.Kind == y.Kind && x.Desc == y.Desc:
		return Value{Kind: x.Kind, Desc: x.Desc, Origin: origin}, nil
	case x.Kind == KindNull && y.Kind == KindReference:
		return Value{Kind: KindReference, Desc: y.Desc, Origin: origin}, nil
	case x.Kind == KindReference && y.Kind == KindNull:
		return Value{Kind: KindReference, Desc: x.Desc, Origin: origin}, nil
	case x.Kind == KindReference && y.Kind == KindReference:
		desc, err := a.commonDesc(x.Desc, y.Desc)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindReference, Desc: desc, Origin: origin}, nil
	}
	return top, nil
}

// commonDesc returns the descriptor of the nearest common superclass of two
// reference types. Without a resolver every distinct pair meets at
// java/lang/Object.
func (a *Analyzer) commonDesc(x, y string) (string, error) {
	if a.resolver == nil {
		return "L" + objectName + ";", nil
	}
	name, err := a.resolver.CommonSuperclass(internalName(x), internalName(y))
	if err != nil {
		return "", err
	}
	return bytecode.ObjectTypeOf(name).Descriptor(), nil
}

func internalName(desc string) string {
	if len(desc) > 2 && desc[0] == 'L' {
		return desc[1 : len(desc)-1]
	}
	return desc
}

func arrayOf(internal string) string {
	if len(internal) > 0 && internal[0] == '[' {
		return "[" + internal
	}
	return "[L" + internal + ";"
}

var newarrayDesc = map[int32]string{
	bytecode.ArrayBoolean: "[Z",
	bytecode.ArrayChar:    "[C",
	bytecode.ArrayFloat:   "[F",
	bytecode.ArrayDouble:  "[D",
	bytecode.ArrayByte:    "[B",
	bytecode.ArrayShort:   "[S",
	bytecode.ArrayInt:     "[I",
	bytecode.ArrayLong:    "[J",
}
