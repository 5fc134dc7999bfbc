package engine

import (
	"fmt"
	"strings"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
)

// A small interpreter for the instruction subset the instrumented test
// methods use, running against Go fakes of the runtime objects.

type value = interface{}

type fakeCont struct {
	states    []*fakeMethodState
	mode      int32
	noSuspend bool
}

func (c *fakeCont) resume() { c.mode = continuum.ModeLoading }

type fakeMethodState struct {
	data  []interface{}
	locks *fakeLocks
	point int32
}

type fakeLocks struct {
	held []value
}

func (l *fakeLocks) enter(o value) { l.held = append(l.held, o) }

func (l *fakeLocks) exit(o value) error {
	for i := len(l.held) - 1; i >= 0; i-- {
		if l.held[i] == o {
			l.held = append(l.held[:i], l.held[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("lock state exit of %v not entered", o)
}

type fakeThrowable struct {
	class string
	msg   string
}

type thrown struct {
	t *fakeThrowable
}

func (e *thrown) Error() string { return e.t.class + ": " + e.t.msg }

type lockObj struct {
	name string
}

func (o *lockObj) String() string { return o.name }

// native implements a non-instrumented callee.
type native func(args []value) (value, error)

type interp struct {
	methods  map[string]*bytecode.Method
	natives  map[string]native
	monitors map[value]int
	// entered logs every monitorenter in execution order.
	entered []value
	steps   int
}

func newInterp() *interp {
	return &interp{
		methods:  make(map[string]*bytecode.Method),
		natives:  make(map[string]native),
		monitors: make(map[value]int),
	}
}

func (in *interp) define(owner string, m *bytecode.Method) {
	in.methods[owner+"."+m.Name+m.Desc] = m
}

func (in *interp) heldCount() int {
	n := 0
	for _, c := range in.monitors {
		n += c
	}
	return n
}

// call runs m with args laid out in its parameter slots.
func (in *interp) call(m *bytecode.Method, args ...value) (value, error) {
	locals := make([]value, m.MaxLocals)
	slot := 0
	if !m.IsStatic() {
		locals[0] = args[0]
		args = args[1:]
		slot = 1
	}
	for i, t := range m.Type().ArgumentTypes() {
		if slot >= len(locals) {
			return nil, fmt.Errorf("argument %d outside %d locals", i, len(locals))
		}
		locals[slot] = args[i]
		slot += t.Size()
	}
	return in.exec(m, locals)
}

func (in *interp) exec(m *bytecode.Method, locals []value) (value, error) {
	insns := m.Instructions.Slice()
	labels := m.Instructions.Labels()
	var stack []value
	push := func(v value) { stack = append(stack, v) }
	pop := func() value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	jump := func(l *bytecode.Label) (int, error) {
		at, ok := labels[l]
		if !ok {
			return 0, fmt.Errorf("label %v not placed", l)
		}
		return at, nil
	}
	local := func(i int) (value, error) {
		if i < 0 || i >= len(locals) {
			return nil, fmt.Errorf("local %d outside %d locals", i, len(locals))
		}
		return locals[i], nil
	}

	pc := 0
	for pc < len(insns) {
		in.steps++
		if in.steps > 100000 {
			return nil, fmt.Errorf("step limit exceeded")
		}
		if len(stack) > m.MaxStack {
			return nil, fmt.Errorf("%s: stack depth %d exceeds %d at %d", m.Name, len(stack), m.MaxStack, pc)
		}
		insn := insns[pc]
		pc++
		op := insn.Opcode
		switch {
		case insn.IsPseudo() || op == bytecode.OpNop:
		case op == bytecode.OpAconstNull:
			push(nil)
		case op >= bytecode.OpIconstM1 && op <= bytecode.OpIconst5:
			push(int32(op) - int32(bytecode.OpIconst0))
		case op == bytecode.OpLconst0:
			push(int64(0))
		case op == bytecode.OpFconst0:
			push(float32(0))
		case op == bytecode.OpDconst0:
			push(float64(0))
		case op == bytecode.OpBipush || op == bytecode.OpSipush:
			push(insn.Imm.(bytecode.IntImm).Value)
		case op == bytecode.OpLdc:
			push(insn.Imm.(bytecode.LdcImm).Value)

		case op == bytecode.OpIload || op == bytecode.OpLload || op == bytecode.OpFload ||
			op == bytecode.OpDload || op == bytecode.OpAload:
			v, err := local(insn.Imm.(bytecode.VarImm).Index)
			if err != nil {
				return nil, err
			}
			push(v)
		case op == bytecode.OpIstore || op == bytecode.OpLstore || op == bytecode.OpFstore ||
			op == bytecode.OpDstore || op == bytecode.OpAstore:
			i := insn.Imm.(bytecode.VarImm).Index
			if _, err := local(i); err != nil {
				return nil, err
			}
			locals[i] = pop()
		case op == bytecode.OpIinc:
			imm := insn.Imm.(bytecode.IincImm)
			v, err := local(imm.Index)
			if err != nil {
				return nil, err
			}
			locals[imm.Index] = v.(int32) + imm.Delta

		case op == bytecode.OpIadd:
			b, a := pop().(int32), pop().(int32)
			push(a + b)
		case op == bytecode.OpLadd:
			b, a := pop().(int64), pop().(int64)
			push(a + b)
		case op == bytecode.OpI2l:
			push(int64(pop().(int32)))

		case op == bytecode.OpPop:
			pop()
		case op == bytecode.OpDup:
			v := pop()
			push(v)
			push(v)
		case op == bytecode.OpSwap:
			b, a := pop(), pop()
			push(b)
			push(a)

		case op == bytecode.OpNewarray:
			n := pop().(int32)
			switch insn.Imm.(bytecode.IntImm).Value {
			case bytecode.ArrayInt:
				push(make([]int32, n))
			case bytecode.ArrayLong:
				push(make([]int64, n))
			case bytecode.ArrayFloat:
				push(make([]float32, n))
			case bytecode.ArrayDouble:
				push(make([]float64, n))
			default:
				return nil, fmt.Errorf("unsupported newarray %v", insn)
			}
		case op == bytecode.OpAnewarray:
			push(make([]interface{}, pop().(int32)))
		case op == bytecode.OpArraylength:
			switch a := pop().(type) {
			case []int32:
				push(int32(len(a)))
			case []interface{}:
				push(int32(len(a)))
			default:
				return nil, fmt.Errorf("arraylength of %T", a)
			}
		case op >= bytecode.OpIaload && op <= bytecode.OpAaload:
			i := pop().(int32)
			switch a := pop().(type) {
			case []int32:
				push(a[i])
			case []int64:
				push(a[i])
			case []float32:
				push(a[i])
			case []float64:
				push(a[i])
			case []interface{}:
				push(a[i])
			default:
				return nil, fmt.Errorf("%v on %T", insn, a)
			}
		case op >= bytecode.OpIastore && op <= bytecode.OpAastore:
			v := pop()
			i := pop().(int32)
			switch a := pop().(type) {
			case []int32:
				a[i] = v.(int32)
			case []int64:
				a[i] = v.(int64)
			case []float32:
				a[i] = v.(float32)
			case []float64:
				a[i] = v.(float64)
			case []interface{}:
				a[i] = v
			default:
				return nil, fmt.Errorf("%v on %T", insn, a)
			}

		case op == bytecode.OpCheckcast:
			if err := checkcast(stack[len(stack)-1], insn.Imm.(bytecode.TypeImm).Name); err != nil {
				return nil, err
			}

		case op == bytecode.OpGoto:
			at, err := jump(insn.Imm.(bytecode.JumpImm).Target)
			if err != nil {
				return nil, err
			}
			pc = at
		case op == bytecode.OpIfle || op == bytecode.OpIfeq || op == bytecode.OpIfne:
			v := pop().(int32)
			taken := (op == bytecode.OpIfle && v <= 0) || (op == bytecode.OpIfeq && v == 0) ||
				(op == bytecode.OpIfne && v != 0)
			if taken {
				at, err := jump(insn.Imm.(bytecode.JumpImm).Target)
				if err != nil {
					return nil, err
				}
				pc = at
			}
		case op == bytecode.OpIfIcmpeq || op == bytecode.OpIfIcmpne:
			b, a := pop().(int32), pop().(int32)
			if (op == bytecode.OpIfIcmpeq) == (a == b) {
				at, err := jump(insn.Imm.(bytecode.JumpImm).Target)
				if err != nil {
					return nil, err
				}
				pc = at
			}
		case op == bytecode.OpTableswitch:
			imm := insn.Imm.(bytecode.TableSwitchImm)
			k := pop().(int32)
			target := imm.Default
			if k >= imm.Min && k <= imm.Max {
				target = imm.Targets[k-imm.Min]
			}
			at, err := jump(target)
			if err != nil {
				return nil, err
			}
			pc = at

		case op == bytecode.OpMonitorenter:
			o := pop()
			if o == nil {
				return nil, fmt.Errorf("monitorenter on null")
			}
			in.monitors[o]++
			in.entered = append(in.entered, o)
		case op == bytecode.OpMonitorexit:
			o := pop()
			if in.monitors[o] == 0 {
				return nil, fmt.Errorf("monitorexit of %v not held", o)
			}
			in.monitors[o]--
			if in.monitors[o] == 0 {
				delete(in.monitors, o)
			}

		case op == bytecode.OpNew:
			switch name := insn.Imm.(bytecode.TypeImm).Name; name {
			case continuum.MethodStateClass:
				push(&fakeMethodState{})
			case continuum.LockStateClass:
				push(&fakeLocks{})
			default:
				push(&fakeThrowable{class: name})
			}
		case op == bytecode.OpAthrow:
			t, ok := pop().(*fakeThrowable)
			if !ok {
				return nil, fmt.Errorf("athrow of non-throwable")
			}
			return nil, &thrown{t}

		case insn.IsInvoke():
			mi, _ := insn.Method()
			argc := len(bytecode.MustType(mi.Desc).ArgumentTypes())
			if op != bytecode.OpInvokestatic {
				argc++
			}
			args := make([]value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			ret, err := in.invoke(mi, args)
			if err != nil {
				return nil, err
			}
			if bytecode.MustType(mi.Desc).ReturnType().Sort() != bytecode.SortVoid {
				push(ret)
			}

		case insn.IsReturn():
			if op == bytecode.OpReturn {
				return nil, nil
			}
			return pop(), nil

		default:
			return nil, fmt.Errorf("interpreter: unsupported %v", insn)
		}
	}
	return nil, fmt.Errorf("%s: fell off the end", m.Name)
}

func checkcast(v value, name string) error {
	if v == nil || !strings.HasPrefix(name, "[") {
		return nil
	}
	ok := false
	switch v.(type) {
	case []int32:
		ok = name == "[I"
	case []int64:
		ok = name == "[J"
	case []float32:
		ok = name == "[F"
	case []float64:
		ok = name == "[D"
	case []interface{}:
		ok = strings.HasPrefix(name, "[L")
	}
	if !ok {
		return fmt.Errorf("checkcast %T to %s", v, name)
	}
	return nil
}

func (in *interp) invoke(mi bytecode.MethodImm, args []value) (value, error) {
	switch mi.Owner {
	case continuum.ContinuationClass:
		c := args[0].(*fakeCont)
		switch mi.Name {
		case continuum.GetModeMethod:
			return c.mode, nil
		case continuum.SuspendMethod:
			if !c.noSuspend {
				c.mode = continuum.ModeSaving
			}
			return nil, nil
		case continuum.PushStateMethod:
			c.states = append(c.states, args[1].(*fakeMethodState))
			return nil, nil
		case continuum.LoadStateMethod:
			if len(c.states) == 0 {
				return nil, fmt.Errorf("no method state to load")
			}
			ms := c.states[len(c.states)-1]
			c.states = c.states[:len(c.states)-1]
			if len(c.states) == 0 {
				c.mode = continuum.ModeNormal
			}
			return ms, nil
		}
	case continuum.MethodStateClass:
		ms := args[0].(*fakeMethodState)
		switch mi.Name {
		case "<init>":
			ms.point = args[1].(int32)
			ms.data = args[2].([]interface{})
			if args[3] != nil {
				ms.locks = args[3].(*fakeLocks)
			}
			return nil, nil
		case continuum.GetPointMethod:
			return ms.point, nil
		case continuum.GetDataMethod:
			return ms.data, nil
		case continuum.GetLockStateMethod:
			if ms.locks == nil {
				return nil, nil
			}
			return ms.locks, nil
		}
	case continuum.LockStateClass:
		ls := args[0].(*fakeLocks)
		switch mi.Name {
		case "<init>":
			return nil, nil
		case continuum.LockEnterMethod:
			ls.enter(args[1])
			return nil, nil
		case continuum.LockExitMethod:
			return nil, ls.exit(args[1])
		case continuum.LockToArray:
			return append([]interface{}(nil), ls.held...), nil
		}
	}
	if mi.Name == "<init>" {
		if t, ok := args[0].(*fakeThrowable); ok {
			if len(args) > 1 {
				t.msg, _ = args[1].(string)
			}
			return nil, nil
		}
	}
	key := mi.Owner + "." + mi.Name + mi.Desc
	if m, ok := in.methods[key]; ok {
		return in.call(m, args...)
	}
	if fn, ok := in.natives[key]; ok {
		return fn(args)
	}
	return nil, fmt.Errorf("interpreter: unknown method %s", key)
}
