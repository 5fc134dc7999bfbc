package codegen

import (
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/slots"
)

// MarkerStyle selects how generated regions are labelled for readers of
// the rewritten code.
type MarkerStyle uint8

const (
	MarkersNone     MarkerStyle = iota
	MarkersConstant             // ldc "text"; pop
	MarkersStdout               // System.out.println("text")
)

// Emitter builds an instruction list with chained calls.
type Emitter struct {
	list    *bytecode.InsnList
	markers MarkerStyle
}

// NewEmitter creates an empty emitter that writes markers in style.
func NewEmitter(style MarkerStyle) *Emitter {
	return &Emitter{list: bytecode.NewInsnList(), markers: style}
}

// Len returns the number of emitted instructions.
func (e *Emitter) Len() int { return e.list.Len() }

// Fragment hands the emitted instructions over and resets the emitter.
func (e *Emitter) Fragment() *Fragment {
	f := NewFragment(e.list)
	e.list = bytecode.NewInsnList()
	return f
}

// Insn appends existing instructions.
func (e *Emitter) Insn(insns ...*bytecode.Instruction) *Emitter {
	e.list.Append(insns...)
	return e
}

// Splice moves the instructions of f to the end of the emitter.
func (e *Emitter) Splice(f *Fragment) *Emitter {
	e.list.AppendList(f.Insns)
	return e
}

func (e *Emitter) Op(op byte) *Emitter { return e.Insn(bytecode.Op(op)) }

func (e *Emitter) Push(v int32) *Emitter { return e.Insn(bytecode.PushInt(v)) }

func (e *Emitter) Ldc(v interface{}) *Emitter { return e.Insn(bytecode.Ldc(v)) }

func (e *Emitter) Mark(l *bytecode.Label) *Emitter { return e.Insn(bytecode.Mark(l)) }

func (e *Emitter) Jump(op byte, l *bytecode.Label) *Emitter { return e.Insn(bytecode.Jump(op, l)) }

func (e *Emitter) Iinc(index int, delta int32) *Emitter { return e.Insn(bytecode.Iinc(index, delta)) }

func (e *Emitter) New(internalName string) *Emitter {
	return e.Insn(bytecode.TypeInsn(bytecode.OpNew, internalName))
}

func (e *Emitter) Virtual(owner, name, desc string) *Emitter {
	return e.Insn(bytecode.Invoke(bytecode.OpInvokevirtual, owner, name, desc))
}

func (e *Emitter) Special(owner, name, desc string) *Emitter {
	return e.Insn(bytecode.Invoke(bytecode.OpInvokespecial, owner, name, desc))
}

// Checkcast narrows a reference to desc. Casts to java/lang/Object are
// omitted.
func (e *Emitter) Checkcast(desc string) *Emitter {
	t := bytecode.MustType(desc)
	if t == bytecode.ObjectType {
		return e
	}
	return e.Insn(bytecode.TypeInsn(bytecode.OpCheckcast, t.InternalName()))
}

// Load pushes local index holding a value of type t.
func (e *Emitter) Load(t bytecode.Type, index int) *Emitter {
	return e.Insn(bytecode.Var(loadOp(t), index))
}

// Store pops into local index holding a value of type t.
func (e *Emitter) Store(t bytecode.Type, index int) *Emitter {
	return e.Insn(bytecode.Var(storeOp(t), index))
}

func (e *Emitter) LoadSlot(s *slots.Slot) *Emitter  { return e.Load(s.Type, s.Index) }
func (e *Emitter) StoreSlot(s *slots.Slot) *Emitter { return e.Store(s.Type, s.Index) }

// NewArray creates the storage array of bucket b with length on the stack.
func (e *Emitter) NewArray(b slots.Bucket) *Emitter {
	if b == slots.Objects {
		return e.Insn(bytecode.TypeInsn(bytecode.OpAnewarray, "java/lang/Object"))
	}
	return e.Insn(bytecode.Int(bytecode.OpNewarray, newarrayCode[b]))
}

// ArrayLoad loads an element of a bucket array.
func (e *Emitter) ArrayLoad(b slots.Bucket) *Emitter { return e.Op(arrayLoadOp[b]) }

// ArrayStore stores an element into a bucket array.
func (e *Emitter) ArrayStore(b slots.Bucket) *Emitter { return e.Op(arrayStoreOp[b]) }

// Throw raises a new exception of class with a fixed message.
func (e *Emitter) Throw(class, msg string) *Emitter {
	return e.New(class).
		Op(bytecode.OpDup).
		Ldc(msg).
		Special(class, "<init>", "(Ljava/lang/String;)V").
		Op(bytecode.OpAthrow)
}

// ReturnDefault returns the zero value of t.
func (e *Emitter) ReturnDefault(t bytecode.Type) *Emitter {
	switch t.Sort() {
	case bytecode.SortVoid:
		return e.Op(bytecode.OpReturn)
	case bytecode.SortLong:
		return e.Op(bytecode.OpLconst0).Op(bytecode.OpLreturn)
	case bytecode.SortFloat:
		return e.Op(bytecode.OpFconst0).Op(bytecode.OpFreturn)
	case bytecode.SortDouble:
		return e.Op(bytecode.OpDconst0).Op(bytecode.OpDreturn)
	case bytecode.SortArray, bytecode.SortObject:
		return e.Op(bytecode.OpAconstNull).Op(bytecode.OpAreturn)
	}
	return e.Op(bytecode.OpIconst0).Op(bytecode.OpIreturn)
}

// Marker emits a labelled no-op carrying text.
func (e *Emitter) Marker(text string) *Emitter {
	switch e.markers {
	case MarkersConstant:
		e.Mark(bytecode.NewNamedLabel(text)).Ldc(text).Op(bytecode.OpPop)
	case MarkersStdout:
		e.Mark(bytecode.NewNamedLabel(text)).
			Insn(bytecode.FieldInsn(bytecode.OpGetstatic, "java/lang/System", "out", "Ljava/io/PrintStream;")).
			Ldc(text).
			Virtual("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	}
	return e
}

func loadOp(t bytecode.Type) byte {
	switch t.Sort() {
	case bytecode.SortLong:
		return bytecode.OpLload
	case bytecode.SortFloat:
		return bytecode.OpFload
	case bytecode.SortDouble:
		return bytecode.OpDload
	case bytecode.SortArray, bytecode.SortObject:
		return bytecode.OpAload
	}
	return bytecode.OpIload
}

func storeOp(t bytecode.Type) byte {
	switch t.Sort() {
	case bytecode.SortLong:
		return bytecode.OpLstore
	case bytecode.SortFloat:
		return bytecode.OpFstore
	case bytecode.SortDouble:
		return bytecode.OpDstore
	case bytecode.SortArray, bytecode.SortObject:
		return bytecode.OpAstore
	}
	return bytecode.OpIstore
}

var (
	arrayLoadOp = [slots.NumBuckets]byte{
		bytecode.OpIaload, bytecode.OpLaload, bytecode.OpFaload, bytecode.OpDaload, bytecode.OpAaload,
	}
	arrayStoreOp = [slots.NumBuckets]byte{
		bytecode.OpIastore, bytecode.OpLastore, bytecode.OpFastore, bytecode.OpDastore, bytecode.OpAastore,
	}
	newarrayCode = [slots.NumBuckets]int32{
		bytecode.ArrayInt, bytecode.ArrayLong, bytecode.ArrayFloat, bytecode.ArrayDouble, 0,
	}
)

// valueType returns the local variable type used to move v.
func valueType(v analysis.Value) bytecode.Type {
	if v.IsReference() {
		return bytecode.ObjectType
	}
	return v.Type()
}
