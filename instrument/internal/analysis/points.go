package analysis

import (
	"strings"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
)

// Point is a rewrite target. The set of implementations is closed:
// *InvocationPoint and *MonitorPoint.
type Point interface {
	// Instr returns the instruction the point rewrites.
	Instr() *bytecode.Instruction
	// Before returns the frame immediately before the instruction.
	Before() *Frame
	// Pos returns the instruction index in the analyzed list.
	Pos() int
	isPoint()
}

// InvocationPoint is a call that may suspend.
type InvocationPoint struct {
	Insn   *bytecode.Instruction
	Frame  *Frame
	Resume *bytecode.Label
	Call   bytecode.MethodImm
	// Locks lists the monitors held across the call, outermost first.
	Locks []HeldLock
	Tag   int
	Index int
	Line  int
	// Suspend is set for a direct Continuation.suspend() call.
	Suspend bool
}

func (p *InvocationPoint) Instr() *bytecode.Instruction { return p.Insn }
func (p *InvocationPoint) Before() *Frame               { return p.Frame }
func (p *InvocationPoint) Pos() int                     { return p.Index }
func (p *InvocationPoint) isPoint()                     {}

// Depth returns the number of monitor acquisitions held across the call.
func (p *InvocationPoint) Depth() int { return Depth(p.Locks) }

// ConsumedArgs returns the number of stack entries the call pops.
func (p *InvocationPoint) ConsumedArgs() int {
	n := len(bytecode.MustType(p.Call.Desc).ArgumentTypes())
	if p.Insn.Opcode != bytecode.OpInvokestatic {
		n++
	}
	return n
}

// MonitorPoint is a monitorenter or monitorexit.
type MonitorPoint struct {
	Insn  *bytecode.Instruction
	Frame *Frame
	Index int
	Line  int
	Enter bool
}

func (p *MonitorPoint) Instr() *bytecode.Instruction { return p.Insn }
func (p *MonitorPoint) Before() *Frame               { return p.Frame }
func (p *MonitorPoint) Pos() int                     { return p.Index }
func (p *MonitorPoint) isPoint()                     {}

// IsSuspend reports whether m is the primitive Continuation.suspend() call.
func IsSuspend(m bytecode.MethodImm) bool {
	return m.Owner == continuum.ContinuationClass &&
		m.Name == continuum.SuspendMethod &&
		m.Desc == continuum.SuspendMethodDesc
}

// TakesContinuation reports whether a method descriptor has a Continuation
// parameter.
func TakesContinuation(desc string) bool {
	i := strings.IndexByte(desc, ')')
	if i < 0 {
		return false
	}
	return strings.Contains(desc[:i], continuum.ContinuationDesc)
}

// ContinuationSlot returns the local slot of the first Continuation
// parameter of m.
func ContinuationSlot(m *bytecode.Method) (int, bool) {
	slot := 0
	if !m.IsStatic() {
		slot = 1
	}
	for _, t := range m.Type().ArgumentTypes() {
		if t.Descriptor() == continuum.ContinuationDesc {
			return slot, true
		}
		slot += t.Size()
	}
	return 0, false
}

// IsCandidate reports whether m can be instrumented at all.
func IsCandidate(m *bytecode.Method) bool {
	if m.IsAbstract() || m.Name == "<init>" || m.Name == "<clinit>" {
		return false
	}
	_, ok := ContinuationSlot(m)
	return ok
}

// classify returns the invocation point for insn, or nil when the
// instruction cannot suspend.
func classify(insn *bytecode.Instruction, idx int) (*InvocationPoint, error) {
	if !insn.IsInvoke() {
		return nil, nil
	}
	if insn.Opcode == bytecode.OpInvokedynamic {
		desc, _ := insn.CallDesc()
		if TakesContinuation(desc) {
			return nil, errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
				At(idx).
				Detail("invokedynamic call site capturing a continuation").
				Build()
		}
		return nil, nil
	}
	m, _ := insn.Method()
	if IsSuspend(m) {
		return &InvocationPoint{Insn: insn, Index: idx, Call: m, Suspend: true}, nil
	}
	if !TakesContinuation(m.Desc) {
		return nil, nil
	}
	return &InvocationPoint{Insn: insn, Index: idx, Call: m}, nil
}

// lineNumbers maps each instruction index to the source line in effect.
func lineNumbers(insns []*bytecode.Instruction) []int {
	starts := make(map[*bytecode.Label]int)
	for _, insn := range insns {
		if imm, ok := insn.Imm.(bytecode.LineImm); ok {
			starts[imm.Start] = imm.Line
		}
	}
	lines := make([]int, len(insns))
	cur := 0
	for i, insn := range insns {
		if l := insn.LabelOf(); l != nil {
			if line, ok := starts[l]; ok {
				cur = line
			}
		}
		lines[i] = cur
	}
	return lines
}
