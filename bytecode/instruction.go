package bytecode

import (
	"fmt"
	"strings"
)

// Instruction is one element of a method's instruction stream.
// Instructions are compared by pointer identity.
type Instruction struct {
	Imm    interface{}
	Opcode byte
}

// Label is a jump target. A label is placed in a list by a LabelImm
// instruction created with Mark.
type Label struct {
	name string
}

// NewLabel creates a fresh label.
func NewLabel() *Label { return &Label{} }

// NewNamedLabel creates a label carrying a debug name.
func NewNamedLabel(name string) *Label { return &Label{name: name} }

func (l *Label) String() string {
	if l.name != "" {
		return l.name
	}
	return fmt.Sprintf("L%p", l)
}

// VarImm holds the local slot for load/store/ret instructions.
type VarImm struct {
	Index int
}

// IntImm holds the operand of bipush, sipush and newarray.
type IntImm struct {
	Value int32
}

// IincImm holds the operands of iinc.
type IincImm struct {
	Index int
	Delta int32
}

// LdcImm holds an ldc constant: int32, int64, float32, float64, string or Type.
type LdcImm struct {
	Value interface{}
}

// TypeImm holds the internal name for new, anewarray, checkcast and instanceof.
type TypeImm struct {
	Name string
}

// FieldImm holds a field reference.
type FieldImm struct {
	Owner string
	Name  string
	Desc  string
}

// MethodImm holds a method reference for invoke instructions.
type MethodImm struct {
	Owner     string
	Name      string
	Desc      string
	Interface bool
}

// InvokeDynamicImm holds the call site of invokedynamic.
type InvokeDynamicImm struct {
	Name      string
	Desc      string
	Bootstrap MethodImm
	Args      []interface{}
}

// JumpImm holds the target of a branch.
type JumpImm struct {
	Target *Label
}

// TableSwitchImm holds the operands of tableswitch.
type TableSwitchImm struct {
	Default *Label
	Targets []*Label
	Min     int32
	Max     int32
}

// LookupSwitchImm holds the operands of lookupswitch.
type LookupSwitchImm struct {
	Default *Label
	Keys    []int32
	Targets []*Label
}

// MultiArrayImm holds the operands of multianewarray.
type MultiArrayImm struct {
	Desc string
	Dims int
}

// LabelImm places a label.
type LabelImm struct {
	Label *Label
}

// LineImm associates a source line with the position of Start.
type LineImm struct {
	Start *Label
	Line  int
}

// Op creates an instruction without operands.
func Op(op byte) *Instruction { return &Instruction{Opcode: op} }

// Var creates a local variable instruction.
func Var(op byte, index int) *Instruction {
	return &Instruction{Opcode: op, Imm: VarImm{Index: index}}
}

// Int creates bipush, sipush or newarray.
func Int(op byte, v int32) *Instruction {
	return &Instruction{Opcode: op, Imm: IntImm{Value: v}}
}

// Iinc creates an iinc instruction.
func Iinc(index int, delta int32) *Instruction {
	return &Instruction{Opcode: OpIinc, Imm: IincImm{Index: index, Delta: delta}}
}

// Ldc creates an ldc instruction.
func Ldc(v interface{}) *Instruction {
	return &Instruction{Opcode: OpLdc, Imm: LdcImm{Value: v}}
}

// TypeInsn creates new, anewarray, checkcast or instanceof.
func TypeInsn(op byte, internalName string) *Instruction {
	return &Instruction{Opcode: op, Imm: TypeImm{Name: internalName}}
}

// FieldInsn creates a field access instruction.
func FieldInsn(op byte, owner, name, desc string) *Instruction {
	return &Instruction{Opcode: op, Imm: FieldImm{Owner: owner, Name: name, Desc: desc}}
}

// Invoke creates an invoke instruction.
func Invoke(op byte, owner, name, desc string) *Instruction {
	return &Instruction{Opcode: op, Imm: MethodImm{Owner: owner, Name: name, Desc: desc, Interface: op == OpInvokeiface}}
}

// Jump creates a branch instruction.
func Jump(op byte, target *Label) *Instruction {
	return &Instruction{Opcode: op, Imm: JumpImm{Target: target}}
}

// TableSwitch creates a tableswitch instruction.
func TableSwitch(minKey, maxKey int32, dflt *Label, targets ...*Label) *Instruction {
	return &Instruction{Opcode: OpTableswitch, Imm: TableSwitchImm{Min: minKey, Max: maxKey, Default: dflt, Targets: targets}}
}

// Mark creates the pseudo instruction placing l.
func Mark(l *Label) *Instruction {
	return &Instruction{Opcode: OpLabel, Imm: LabelImm{Label: l}}
}

// Line creates a line number pseudo instruction.
func Line(line int, start *Label) *Instruction {
	return &Instruction{Opcode: OpLine, Imm: LineImm{Line: line, Start: start}}
}

// PushInt creates the shortest instruction pushing v.
func PushInt(v int32) *Instruction {
	switch {
	case v >= -1 && v <= 5:
		return Op(byte(int32(OpIconst0) + v))
	case v >= -128 && v <= 127:
		return Int(OpBipush, v)
	case v >= -32768 && v <= 32767:
		return Int(OpSipush, v)
	default:
		return Ldc(v)
	}
}

// IsPseudo reports whether the instruction is a label or line marker.
func (i *Instruction) IsPseudo() bool {
	return i.Opcode == OpLabel || i.Opcode == OpLine
}

// IsInvoke reports whether the instruction is a method invocation.
func (i *Instruction) IsInvoke() bool {
	switch i.Opcode {
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeiface, OpInvokedynamic:
		return true
	}
	return false
}

// Method returns the invoked method for invoke instructions other than invokedynamic.
func (i *Instruction) Method() (MethodImm, bool) {
	imm, ok := i.Imm.(MethodImm)
	return imm, ok
}

// CallDesc returns the method descriptor of any invoke instruction.
func (i *Instruction) CallDesc() (string, bool) {
	switch imm := i.Imm.(type) {
	case MethodImm:
		return imm.Desc, true
	case InvokeDynamicImm:
		return imm.Desc, true
	}
	return "", false
}

// LabelOf returns the label placed by a label pseudo instruction.
func (i *Instruction) LabelOf() *Label {
	if imm, ok := i.Imm.(LabelImm); ok {
		return imm.Label
	}
	return nil
}

// Targets returns all labels this instruction may jump to.
func (i *Instruction) Targets() []*Label {
	switch imm := i.Imm.(type) {
	case JumpImm:
		return []*Label{imm.Target}
	case TableSwitchImm:
		return append([]*Label{imm.Default}, imm.Targets...)
	case LookupSwitchImm:
		return append([]*Label{imm.Default}, imm.Targets...)
	}
	return nil
}

// IsJump reports whether the instruction is a conditional or unconditional branch.
func (i *Instruction) IsJump() bool {
	_, ok := i.Imm.(JumpImm)
	return ok
}

// FallsThrough reports whether control can continue to the next instruction.
func (i *Instruction) FallsThrough() bool {
	switch i.Opcode {
	case OpGoto, OpTableswitch, OpLookupswitch, OpAthrow, OpRet,
		OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn, OpReturn:
		return false
	}
	return true
}

// IsReturn reports whether the instruction returns from the method.
func (i *Instruction) IsReturn() bool {
	return i.Opcode >= OpIreturn && i.Opcode <= OpReturn
}

// clone copies the instruction, remapping labels through lm.
func (i *Instruction) clone(lm map[*Label]*Label) *Instruction {
	m := func(l *Label) *Label {
		if nl, ok := lm[l]; ok {
			return nl
		}
		return l
	}
	cp := &Instruction{Opcode: i.Opcode, Imm: i.Imm}
	switch imm := i.Imm.(type) {
	case JumpImm:
		cp.Imm = JumpImm{Target: m(imm.Target)}
	case LabelImm:
		cp.Imm = LabelImm{Label: m(imm.Label)}
	case LineImm:
		cp.Imm = LineImm{Line: imm.Line, Start: m(imm.Start)}
	case TableSwitchImm:
		ts := make([]*Label, len(imm.Targets))
		for k, t := range imm.Targets {
			ts[k] = m(t)
		}
		cp.Imm = TableSwitchImm{Min: imm.Min, Max: imm.Max, Default: m(imm.Default), Targets: ts}
	case LookupSwitchImm:
		ts := make([]*Label, len(imm.Targets))
		for k, t := range imm.Targets {
			ts[k] = m(t)
		}
		keys := append([]int32(nil), imm.Keys...)
		cp.Imm = LookupSwitchImm{Default: m(imm.Default), Keys: keys, Targets: ts}
	case InvokeDynamicImm:
		imm.Args = append([]interface{}(nil), imm.Args...)
		cp.Imm = imm
	}
	return cp
}

func (i *Instruction) String() string {
	var b strings.Builder
	b.WriteString(OpName(i.Opcode))
	switch imm := i.Imm.(type) {
	case nil:
	case VarImm:
		fmt.Fprintf(&b, " %d", imm.Index)
	case IntImm:
		fmt.Fprintf(&b, " %d", imm.Value)
	case IincImm:
		fmt.Fprintf(&b, " %d %d", imm.Index, imm.Delta)
	case LdcImm:
		fmt.Fprintf(&b, " %#v", imm.Value)
	case TypeImm:
		fmt.Fprintf(&b, " %s", imm.Name)
	case FieldImm:
		fmt.Fprintf(&b, " %s.%s %s", imm.Owner, imm.Name, imm.Desc)
	case MethodImm:
		fmt.Fprintf(&b, " %s.%s%s", imm.Owner, imm.Name, imm.Desc)
	case InvokeDynamicImm:
		fmt.Fprintf(&b, " %s%s", imm.Name, imm.Desc)
	case JumpImm:
		fmt.Fprintf(&b, " %s", imm.Target)
	case LabelImm:
		fmt.Fprintf(&b, " %s", imm.Label)
	case LineImm:
		fmt.Fprintf(&b, " %d", imm.Line)
	case MultiArrayImm:
		fmt.Fprintf(&b, " %s %d", imm.Desc, imm.Dims)
	case TableSwitchImm:
		fmt.Fprintf(&b, " %d..%d", imm.Min, imm.Max)
	case LookupSwitchImm:
		fmt.Fprintf(&b, " %v", imm.Keys)
	}
	return b.String()
}
