package analysis

import (
	"fmt"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
)

// effect is the static stack signature of an instruction whose result
// does not depend on its operands.
type effect struct {
	pops int
	push Kind // KindTop pushes nothing
}

var staticEffects = map[byte]effect{
	bytecode.OpNop: {0, KindTop},

	bytecode.OpIconstM1: {0, KindInt}, bytecode.OpIconst0: {0, KindInt}, bytecode.OpIconst1: {0, KindInt},
	bytecode.OpIconst2: {0, KindInt}, bytecode.OpIconst3: {0, KindInt}, bytecode.OpIconst4: {0, KindInt},
	bytecode.OpIconst5: {0, KindInt}, bytecode.OpBipush: {0, KindInt}, bytecode.OpSipush: {0, KindInt},
	bytecode.OpLconst0: {0, KindLong}, bytecode.OpLconst1: {0, KindLong},
	bytecode.OpFconst0: {0, KindFloat}, bytecode.OpFconst1: {0, KindFloat}, bytecode.OpFconst2: {0, KindFloat},
	bytecode.OpDconst0: {0, KindDouble}, bytecode.OpDconst1: {0, KindDouble},

	bytecode.OpIaload: {2, KindInt}, bytecode.OpBaload: {2, KindInt}, bytecode.OpCaload: {2, KindInt},
	bytecode.OpSaload: {2, KindInt}, bytecode.OpLaload: {2, KindLong}, bytecode.OpFaload: {2, KindFloat},
	bytecode.OpDaload: {2, KindDouble},

	bytecode.OpIastore: {3, KindTop}, bytecode.OpLastore: {3, KindTop}, bytecode.OpFastore: {3, KindTop},
	bytecode.OpDastore: {3, KindTop}, bytecode.OpAastore: {3, KindTop}, bytecode.OpBastore: {3, KindTop},
	bytecode.OpCastore: {3, KindTop}, bytecode.OpSastore: {3, KindTop},

	bytecode.OpPop: {1, KindTop},

	bytecode.OpIadd: {2, KindInt}, bytecode.OpIsub: {2, KindInt}, bytecode.OpImul: {2, KindInt},
	bytecode.OpIdiv: {2, KindInt}, bytecode.OpIrem: {2, KindInt}, bytecode.OpIshl: {2, KindInt},
	bytecode.OpIshr: {2, KindInt}, bytecode.OpIushr: {2, KindInt}, bytecode.OpIand: {2, KindInt},
	bytecode.OpIor: {2, KindInt}, bytecode.OpIxor: {2, KindInt},
	bytecode.OpLadd: {2, KindLong}, bytecode.OpLsub: {2, KindLong}, bytecode.OpLmul: {2, KindLong},
	bytecode.OpLdiv: {2, KindLong}, bytecode.OpLrem: {2, KindLong}, bytecode.OpLshl: {2, KindLong},
	bytecode.OpLshr: {2, KindLong}, bytecode.OpLushr: {2, KindLong}, bytecode.OpLand: {2, KindLong},
	bytecode.OpLor: {2, KindLong}, bytecode.OpLxor: {2, KindLong},
	bytecode.OpFadd: {2, KindFloat}, bytecode.OpFsub: {2, KindFloat}, bytecode.OpFmul: {2, KindFloat},
	bytecode.OpFdiv: {2, KindFloat}, bytecode.OpFrem: {2, KindFloat},
	bytecode.OpDadd: {2, KindDouble}, bytecode.OpDsub: {2, KindDouble}, bytecode.OpDmul: {2, KindDouble},
	bytecode.OpDdiv: {2, KindDouble}, bytecode.OpDrem: {2, KindDouble},
	bytecode.OpIneg: {1, KindInt}, bytecode.OpLneg: {1, KindLong}, bytecode.OpFneg: {1, KindFloat},
	bytecode.OpDneg: {1, KindDouble},

	bytecode.OpI2l: {1, KindLong}, bytecode.OpI2f: {1, KindFloat}, bytecode.OpI2d: {1, KindDouble},
	bytecode.OpL2i: {1, KindInt}, bytecode.OpL2f: {1, KindFloat}, bytecode.OpL2d: {1, KindDouble},
	bytecode.OpF2i: {1, KindInt}, bytecode.OpF2l: {1, KindLong}, bytecode.OpF2d: {1, KindDouble},
	bytecode.OpD2i: {1, KindInt}, bytecode.OpD2l: {1, KindLong}, bytecode.OpD2f: {1, KindFloat},
	bytecode.OpI2b: {1, KindInt}, bytecode.OpI2c: {1, KindInt}, bytecode.OpI2s: {1, KindInt},

	bytecode.OpLcmp: {2, KindInt}, bytecode.OpFcmpl: {2, KindInt}, bytecode.OpFcmpg: {2, KindInt},
	bytecode.OpDcmpl: {2, KindInt}, bytecode.OpDcmpg: {2, KindInt},

	bytecode.OpIfeq: {1, KindTop}, bytecode.OpIfne: {1, KindTop}, bytecode.OpIflt: {1, KindTop},
	bytecode.OpIfge: {1, KindTop}, bytecode.OpIfgt: {1, KindTop}, bytecode.OpIfle: {1, KindTop},
	bytecode.OpIfnull: {1, KindTop}, bytecode.OpIfnonnull: {1, KindTop},
	bytecode.OpIfIcmpeq: {2, KindTop}, bytecode.OpIfIcmpne: {2, KindTop}, bytecode.OpIfIcmplt: {2, KindTop},
	bytecode.OpIfIcmpge: {2, KindTop}, bytecode.OpIfIcmpgt: {2, KindTop}, bytecode.OpIfIcmple: {2, KindTop},
	bytecode.OpIfAcmpeq: {2, KindTop}, bytecode.OpIfAcmpne: {2, KindTop},
	bytecode.OpGoto: {0, KindTop}, bytecode.OpTableswitch: {1, KindTop}, bytecode.OpLookupswitch: {1, KindTop},

	bytecode.OpIreturn: {1, KindTop}, bytecode.OpLreturn: {1, KindTop}, bytecode.OpFreturn: {1, KindTop},
	bytecode.OpDreturn: {1, KindTop}, bytecode.OpAreturn: {1, KindTop}, bytecode.OpReturn: {0, KindTop},

	bytecode.OpArraylength: {1, KindInt}, bytecode.OpAthrow: {1, KindTop}, bytecode.OpInstanceof: {1, KindInt},
	bytecode.OpMonitorenter: {1, KindTop}, bytecode.OpMonitorexit: {1, KindTop},
}

// execute applies insn at index idx to f.
func (a *Analyzer) execute(f *Frame, insn *bytecode.Instruction, idx int) error {
	if insn.IsPseudo() {
		return nil
	}
	if e, ok := staticEffects[insn.Opcode]; ok {
		if err := f.popN(e.pops); err != nil {
			return err
		}
		if e.push != KindTop {
			f.push(Value{Kind: e.push, Origin: idx})
		}
		return nil
	}

	switch insn.Opcode {
	case bytecode.OpAconstNull:
		f.push(Value{Kind: KindNull, Origin: idx})

	case bytecode.OpLdc:
		return a.ldc(f, insn, idx)

	case bytecode.OpIload, bytecode.OpLload, bytecode.OpFload, bytecode.OpDload, bytecode.OpAload:
		v, err := f.load(insn.Imm.(bytecode.VarImm).Index)
		if err != nil {
			return err
		}
		f.push(v)

	case bytecode.OpIstore, bytecode.OpLstore, bytecode.OpFstore, bytecode.OpDstore, bytecode.OpAstore:
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.store(insn.Imm.(bytecode.VarImm).Index, v)

	case bytecode.OpIinc:
		imm := insn.Imm.(bytecode.IincImm)
		f.store(imm.Index, Value{Kind: KindInt, Origin: idx})

	case bytecode.OpAaload:
		if err := f.popN(1); err != nil {
			return err
		}
		arr, err := f.pop()
		if err != nil {
			return err
		}
		elem := Value{Kind: KindReference, Desc: "L" + objectName + ";", Origin: idx}
		if arr.Kind == KindReference && len(arr.Desc) > 1 && arr.Desc[0] == '[' {
			elem.Desc = arr.Desc[1:]
		}
		f.push(elem)

	case bytecode.OpPop2:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if !v.IsWide() {
			return f.popN(1)
		}

	case bytecode.OpDup:
		return dupGroups(f, 1, 0)
	case bytecode.OpDupX1:
		return dupGroups(f, 1, 1)
	case bytecode.OpDupX2:
		return dupGroups(f, 1, 2)
	case bytecode.OpDup2:
		return dupGroups(f, 2, 0)
	case bytecode.OpDup2X1:
		return dupGroups(f, 2, 1)
	case bytecode.OpDup2X2:
		return dupGroups(f, 2, 2)

	case bytecode.OpSwap:
		if len(f.Stack) < 2 {
			return fmt.Errorf("operand stack underflow: swap")
		}
		n := len(f.Stack)
		f.Stack[n-1], f.Stack[n-2] = f.Stack[n-2], f.Stack[n-1]

	case bytecode.OpJsr, bytecode.OpRet:
		return errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
			At(idx).
			Detail("subroutine instruction %s", bytecode.OpName(insn.Opcode)).
			Build()

	case bytecode.OpGetstatic, bytecode.OpGetfield, bytecode.OpPutstatic, bytecode.OpPutfield:
		return a.field(f, insn, idx)

	case bytecode.OpInvokevirtual, bytecode.OpInvokespecial, bytecode.OpInvokestatic,
		bytecode.OpInvokeiface, bytecode.OpInvokedynamic:
		return a.invoke(f, insn, idx)

	case bytecode.OpNew:
		f.push(Value{Kind: KindUninitialized, Desc: "L" + insn.Imm.(bytecode.TypeImm).Name + ";", Origin: idx})

	case bytecode.OpNewarray:
		if err := f.popN(1); err != nil {
			return err
		}
		desc, ok := newarrayDesc[insn.Imm.(bytecode.IntImm).Value]
		if !ok {
			return fmt.Errorf("bad newarray type %d", insn.Imm.(bytecode.IntImm).Value)
		}
		f.push(Value{Kind: KindReference, Desc: desc, Origin: idx})

	case bytecode.OpAnewarray:
		if err := f.popN(1); err != nil {
			return err
		}
		f.push(Value{Kind: KindReference, Desc: arrayOf(insn.Imm.(bytecode.TypeImm).Name), Origin: idx})

	case bytecode.OpCheckcast:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.Kind == KindReference {
			v.Desc = bytecode.ObjectTypeOf(insn.Imm.(bytecode.TypeImm).Name).Descriptor()
		}
		f.push(v)

	case bytecode.OpMultianewarr:
		imm := insn.Imm.(bytecode.MultiArrayImm)
		if err := f.popN(imm.Dims); err != nil {
			return err
		}
		f.push(Value{Kind: KindReference, Desc: imm.Desc, Origin: idx})

	default:
		return errors.New(errors.PhaseAnalyze, errors.KindUnsupported).
			At(idx).
			Detail("unknown opcode 0x%02x", insn.Opcode).
			Build()
	}
	return nil
}

func (a *Analyzer) ldc(f *Frame, insn *bytecode.Instruction, idx int) error {
	switch v := insn.Imm.(bytecode.LdcImm).Value.(type) {
	case int32:
		f.push(Value{Kind: KindInt, Origin: idx})
	case float32:
		f.push(Value{Kind: KindFloat, Origin: idx})
	case int64:
		f.push(Value{Kind: KindLong, Origin: idx})
	case float64:
		f.push(Value{Kind: KindDouble, Origin: idx})
	case string:
		f.push(Value{Kind: KindReference, Desc: "Ljava/lang/String;", Origin: idx})
	case bytecode.Type:
		desc := "Ljava/lang/Class;"
		if v.Sort() == bytecode.SortMethod {
			desc = "Ljava/lang/invoke/MethodType;"
		}
		f.push(Value{Kind: KindReference, Desc: desc, Origin: idx})
	default:
		return fmt.Errorf("unsupported ldc constant %T", v)
	}
	return nil
}

func (a *Analyzer) field(f *Frame, insn *bytecode.Instruction, idx int) error {
	imm := insn.Imm.(bytecode.FieldImm)
	t, err := bytecode.ParseType(imm.Desc)
	if err != nil {
		return err
	}
	switch insn.Opcode {
	case bytecode.OpGetstatic:
		f.push(ValueOf(t, idx))
	case bytecode.OpGetfield:
		if err := f.popN(1); err != nil {
			return err
		}
		f.push(ValueOf(t, idx))
	case bytecode.OpPutstatic:
		return f.popN(1)
	case bytecode.OpPutfield:
		return f.popN(2)
	}
	return nil
}

func (a *Analyzer) invoke(f *Frame, insn *bytecode.Instruction, idx int) error {
	desc, _ := insn.CallDesc()
	mt, err := bytecode.ParseType(desc)
	if err != nil {
		return err
	}
	if err := f.popN(len(mt.ArgumentTypes())); err != nil {
		return err
	}
	if insn.Opcode != bytecode.OpInvokestatic && insn.Opcode != bytecode.OpInvokedynamic {
		recv, err := f.pop()
		if err != nil {
			return err
		}
		if m, ok := insn.Method(); ok && m.Name == "<init>" && recv.Kind == KindUninitialized {
			initialize(f, recv)
		}
	}
	if rt := mt.ReturnType(); rt.Sort() != bytecode.SortVoid {
		f.push(ValueOf(rt, idx))
	}
	return nil
}

// initialize replaces every copy of the uninitialized value u with the
// constructed object, keeping the origin of the new instruction.
func initialize(f *Frame, u Value) {
	done := Value{Kind: KindReference, Desc: u.Desc, Origin: u.Origin}
	for i, v := range f.Stack {
		if v == u {
			f.Stack[i] = done
		}
	}
	for i, v := range f.Locals {
		if v == u {
			f.Locals[i] = done
		}
	}
}

// dupGroups duplicates the top group of w1 words and inserts the copy below
// the following group of w2 words. All six dup variants reduce to this.
func dupGroups(f *Frame, w1, w2 int) error {
	n1, err := entriesForWords(f.Stack, 0, w1)
	if err != nil {
		return err
	}
	n2, err := entriesForWords(f.Stack, n1, w2)
	if err != nil {
		return err
	}
	size := len(f.Stack)
	g1 := append([]Value(nil), f.Stack[size-n1:]...)
	g2 := append([]Value(nil), f.Stack[size-n1-n2:size-n1]...)
	f.Stack = f.Stack[:size-n1-n2]
	f.Stack = append(f.Stack, g1...)
	f.Stack = append(f.Stack, g2...)
	f.Stack = append(f.Stack, g1...)
	return nil
}

// entriesForWords counts how many stack entries, starting skip entries below
// the top, make up exactly words words.
func entriesForWords(stack []Value, skip, words int) (int, error) {
	n := 0
	for words > 0 {
		pos := len(stack) - 1 - skip - n
		if pos < 0 {
			return 0, fmt.Errorf("operand stack underflow in dup")
		}
		w := 1
		if stack[pos].IsWide() {
			w = 2
		}
		if w > words {
			return 0, fmt.Errorf("dup splits a wide value")
		}
		words -= w
		n++
	}
	return n, nil
}
