package analysis

import (
	"fmt"

	"github.com/wippyai/continuum/bytecode"
)

// Kind classifies the content of a stack entry or local slot.
type Kind uint8

const (
	KindTop Kind = iota // unusable or second half of a wide local
	KindInt
	KindFloat
	KindLong
	KindDouble
	KindReference
	KindNull
	KindUninitialized
	KindReturnAddress
)

var kindNames = [...]string{"top", "int", "float", "long", "double", "reference", "null", "uninitialized", "returnaddress"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// phiBase offsets merge origins away from parameter origins. Each join
// owns phiSpan consecutive origins: locals first, then stack entries from
// phiStack on.
const (
	phiBase  = 1 << 20
	phiStack = 1 << 16
	phiSpan  = 2 * phiStack
)

// ParamOrigin returns the origin of the value a method receives in slot.
func ParamOrigin(slot int) int { return -1 - slot }

// PhiOrigin returns the origin of a value merged into local slot at
// instruction join.
func PhiOrigin(join, slot int) int { return -phiBase - join*phiSpan - slot }

// StackPhiOrigin returns the origin of a value merged into stack entry i
// (counted from the bottom) at instruction join.
func StackPhiOrigin(join, i int) int { return PhiOrigin(join, phiStack+i) }

// Value is an abstract stack entry or local slot.
//
// Origin is the index of the producing instruction when non-negative,
// ParamOrigin(slot) for incoming parameters, and PhiOrigin or StackPhiOrigin
// for values that differ between the paths joining at an instruction.
type Value struct {
	Desc   string
	Kind   Kind
	Origin int
}

// ValueOf returns the value held after loading something of type t.
func ValueOf(t bytecode.Type, origin int) Value {
	switch t.Sort() {
	case bytecode.SortBoolean, bytecode.SortChar, bytecode.SortByte, bytecode.SortShort, bytecode.SortInt:
		return Value{Kind: KindInt, Origin: origin}
	case bytecode.SortFloat:
		return Value{Kind: KindFloat, Origin: origin}
	case bytecode.SortLong:
		return Value{Kind: KindLong, Origin: origin}
	case bytecode.SortDouble:
		return Value{Kind: KindDouble, Origin: origin}
	case bytecode.SortArray, bytecode.SortObject:
		return Value{Kind: KindReference, Desc: t.Descriptor(), Origin: origin}
	}
	return Value{Kind: KindTop, Origin: origin}
}

// IsWide reports whether the value occupies two local slots.
func (v Value) IsWide() bool { return v.Kind == KindLong || v.Kind == KindDouble }

// IsReference reports whether the value is an object, array or null.
func (v Value) IsReference() bool { return v.Kind == KindReference || v.Kind == KindNull }

// Type returns the declared type of the value. Null values report
// java/lang/Object.
func (v Value) Type() bytecode.Type {
	switch v.Kind {
	case KindInt:
		return bytecode.IntType
	case KindFloat:
		return bytecode.FloatType
	case KindLong:
		return bytecode.LongType
	case KindDouble:
		return bytecode.DoubleType
	case KindReference, KindUninitialized:
		return bytecode.MustType(v.Desc)
	case KindNull:
		return bytecode.ObjectType
	}
	return bytecode.VoidType
}

func (v Value) String() string {
	if v.Kind == KindReference || v.Kind == KindUninitialized {
		return fmt.Sprintf("%s(%s)@%d", v.Kind, v.Desc, v.Origin)
	}
	return fmt.Sprintf("%s@%d", v.Kind, v.Origin)
}

var top = Value{Kind: KindTop}

// Frame is the abstract state before one instruction.
type Frame struct {
	Locals []Value
	Stack  []Value
}

// Clone returns an independent copy of f.
func (f *Frame) Clone() *Frame {
	return &Frame{
		Locals: append([]Value(nil), f.Locals...),
		Stack:  append([]Value(nil), f.Stack...),
	}
}

// Top returns the stack entry n positions below the top.
func (f *Frame) Top(n int) Value { return f.Stack[len(f.Stack)-1-n] }

// HasUnsupported reports whether any stack entry or local holds a value the
// instrumenter cannot save.
func (f *Frame) HasUnsupported() bool {
	for _, v := range f.Stack {
		if v.Kind == KindUninitialized || v.Kind == KindReturnAddress || v.Kind == KindTop {
			return true
		}
	}
	for _, v := range f.Locals {
		if v.Kind == KindUninitialized || v.Kind == KindReturnAddress {
			return true
		}
	}
	return false
}

func (f *Frame) push(v Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) pop() (Value, error) {
	if len(f.Stack) == 0 {
		return top, fmt.Errorf("operand stack underflow")
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v, nil
}

func (f *Frame) popN(n int) error {
	if len(f.Stack) < n {
		return fmt.Errorf("operand stack underflow: need %d, have %d", n, len(f.Stack))
	}
	f.Stack = f.Stack[:len(f.Stack)-n]
	return nil
}

func (f *Frame) load(index int) (Value, error) {
	if index < 0 || index >= len(f.Locals) {
		return top, fmt.Errorf("local %d out of range (%d locals)", index, len(f.Locals))
	}
	return f.Locals[index], nil
}

func (f *Frame) store(index int, v Value) {
	need := index + 1
	if v.IsWide() {
		need++
	}
	for len(f.Locals) < need {
		f.Locals = append(f.Locals, top)
	}
	if index > 0 && f.Locals[index-1].IsWide() {
		f.Locals[index-1] = top
	}
	f.Locals[index] = v
	if v.IsWide() {
		f.Locals[index+1] = top
	}
}
