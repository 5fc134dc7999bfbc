package analysis

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
)

const contDesc = continuum.ContinuationDesc

func suspendCall() *bytecode.Instruction {
	return bytecode.Invoke(bytecode.OpInvokevirtual, continuum.ContinuationClass, "suspend", "()V")
}

func staticMethod(desc string, maxLocals int, insns ...*bytecode.Instruction) *bytecode.Method {
	return &bytecode.Method{
		Name:         "run",
		Desc:         desc,
		Access:       bytecode.AccStatic | bytecode.AccPublic,
		MaxLocals:    maxLocals,
		MaxStack:     4,
		Instructions: bytecode.NewInsnList(insns...),
	}
}

func kindOf(t *testing.T, err error) errors.Kind {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	e, ok := err.(*errors.Error)
	if !ok {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	return e.Kind
}

type fakeResolver map[[2]string]string

func (r fakeResolver) CommonSuperclass(a, b string) (string, error) {
	if s, ok := r[[2]string{a, b}]; ok {
		return s, nil
	}
	return "", errors.NoCommonAncestor(a, b)
}

func TestAnalyze_TagsDenseInOrder(t *testing.T) {
	m := staticMethod("("+contDesc+")V", 1,
		bytecode.Var(bytecode.OpAload, 0),
		suspendCall(),
		bytecode.Var(bytecode.OpAload, 0),
		bytecode.Invoke(bytecode.OpInvokestatic, "app/Work", "step", "("+contDesc+")V"),
		bytecode.Invoke(bytecode.OpInvokestatic, "app/Work", "plain", "()V"),
		bytecode.Var(bytecode.OpAload, 0),
		suspendCall(),
		bytecode.Op(bytecode.OpReturn),
	)

	res, err := Analyze("app/Main", m, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Invocations) != 3 {
		t.Fatalf("invocations = %d, want 3", len(res.Invocations))
	}
	wantSuspend := []bool{true, false, true}
	for i, p := range res.Invocations {
		if p.Tag != i+1 {
			t.Errorf("invocation %d tag = %d, want %d", i, p.Tag, i+1)
		}
		if p.Suspend != wantSuspend[i] {
			t.Errorf("invocation %d Suspend = %v, want %v", i, p.Suspend, wantSuspend[i])
		}
		if p.Resume == nil {
			t.Errorf("invocation %d has no resume label", i)
		}
	}
	if res.ContSlot != 0 {
		t.Errorf("ContSlot = %d, want 0", res.ContSlot)
	}
	if res.NeedsLockState() {
		t.Error("NeedsLockState should be false without monitors")
	}
	if got := res.Invocations[1].ConsumedArgs(); got != 1 {
		t.Errorf("static call ConsumedArgs = %d, want 1", got)
	}
	if got := res.Invocations[0].ConsumedArgs(); got != 1 {
		t.Errorf("suspend ConsumedArgs = %d, want 1 (receiver)", got)
	}
}

func TestAnalyze_NotACandidate(t *testing.T) {
	m := staticMethod("()V", 0, bytecode.Op(bytecode.OpReturn))
	_, err := Analyze("app/Main", m, nil)
	if kindOf(t, err) != errors.KindInvalidInput {
		t.Errorf("kind = %v, want invalid_input", kindOf(t, err))
	}
	if IsCandidate(m) {
		t.Error("method without continuation parameter should not be a candidate")
	}
}

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name   string
		method *bytecode.Method
		want   bool
	}{
		{"static", &bytecode.Method{Name: "a", Desc: "(" + contDesc + ")V", Access: bytecode.AccStatic}, true},
		{"instance", &bytecode.Method{Name: "a", Desc: "(I" + contDesc + ")I"}, true},
		{"constructor", &bytecode.Method{Name: "<init>", Desc: "(" + contDesc + ")V"}, false},
		{"abstract", &bytecode.Method{Name: "a", Desc: "(" + contDesc + ")V", Access: bytecode.AccAbstract}, false},
		{"native", &bytecode.Method{Name: "a", Desc: "(" + contDesc + ")V", Access: bytecode.AccNative}, false},
		{"no continuation", &bytecode.Method{Name: "a", Desc: "(Ljava/lang/Object;)V"}, false},
		{"continuation return", &bytecode.Method{Name: "a", Desc: "()" + contDesc}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCandidate(tt.method); got != tt.want {
				t.Errorf("IsCandidate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContinuationSlot(t *testing.T) {
	m := &bytecode.Method{Name: "a", Desc: "(JD" + contDesc + contDesc + ")V"}
	slot, ok := ContinuationSlot(m)
	if !ok || slot != 5 {
		t.Errorf("ContinuationSlot = %d, %v; want 5, true", slot, ok)
	}
}

func TestFrames_OriginsSurviveCopies(t *testing.T) {
	m := staticMethod("("+contDesc+"Ljava/lang/String;)V", 3,
		bytecode.Var(bytecode.OpAload, 1),
		bytecode.Op(bytecode.OpDup),
		bytecode.Var(bytecode.OpAstore, 2),
		bytecode.Var(bytecode.OpAload, 0),
		suspendCall(),
		bytecode.Op(bytecode.OpPop),
		bytecode.Op(bytecode.OpReturn),
	)
	frames, err := NewAnalyzer("app/Main", m, nil).Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	f := frames[4]
	if len(f.Stack) != 2 {
		t.Fatalf("stack before suspend = %v", f.Stack)
	}
	if f.Stack[0].Origin != ParamOrigin(1) || f.Stack[0].Desc != "Ljava/lang/String;" {
		t.Errorf("dup copy = %v, want String from parameter slot 1", f.Stack[0])
	}
	if f.Locals[2].Origin != ParamOrigin(1) {
		t.Errorf("stored local origin = %d, want %d", f.Locals[2].Origin, ParamOrigin(1))
	}
	if f.Stack[1].Desc != contDesc {
		t.Errorf("receiver = %v, want continuation", f.Stack[1])
	}
}

func TestFrames_MergeYieldsPhi(t *testing.T) {
	alt := bytecode.NewLabel()
	join := bytecode.NewLabel()
	m := staticMethod("("+contDesc+"I)V", 3,
		bytecode.Var(bytecode.OpIload, 1), // 0
		bytecode.Jump(bytecode.OpIfeq, alt),
		bytecode.Op(bytecode.OpIconst1),
		bytecode.Var(bytecode.OpIstore, 2),
		bytecode.Jump(bytecode.OpGoto, join),
		bytecode.Mark(alt), // 5
		bytecode.Op(bytecode.OpIconst2),
		bytecode.Var(bytecode.OpIstore, 2),
		bytecode.Mark(join), // 8
		bytecode.Var(bytecode.OpAload, 0),
		suspendCall(), // 10
		bytecode.Op(bytecode.OpReturn),
	)
	frames, err := NewAnalyzer("app/Main", m, nil).Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if got := frames[5].Locals[2].Kind; got != KindTop {
		t.Errorf("local 2 at else = %v, want top", got)
	}
	v := frames[10].Locals[2]
	if v.Kind != KindInt || v.Origin != PhiOrigin(8, 2) {
		t.Errorf("local 2 at join = %v, want int with phi origin %d", v, PhiOrigin(8, 2))
	}
	if frames[10].Locals[1].Origin != ParamOrigin(1) {
		t.Errorf("untouched parameter lost its origin: %v", frames[10].Locals[1])
	}
}

func referenceMerge(r Resolver) (*Frame, error) {
	other := bytecode.NewLabel()
	join := bytecode.NewLabel()
	m := staticMethod("("+contDesc+"I)V", 3,
		bytecode.Var(bytecode.OpIload, 1),
		bytecode.Jump(bytecode.OpIfeq, other),
		bytecode.FieldInsn(bytecode.OpGetstatic, "app/Main", "a", "Lapp/A;"),
		bytecode.Var(bytecode.OpAstore, 2),
		bytecode.Jump(bytecode.OpGoto, join),
		bytecode.Mark(other),
		bytecode.FieldInsn(bytecode.OpGetstatic, "app/Main", "b", "Lapp/B;"),
		bytecode.Var(bytecode.OpAstore, 2),
		bytecode.Mark(join),
		bytecode.Op(bytecode.OpReturn), // 9
	)
	frames, err := NewAnalyzer("app/Main", m, r).Frames()
	if err != nil {
		return nil, err
	}
	return frames[9], nil
}

func TestFrames_ReferenceMergeUsesResolver(t *testing.T) {
	f, err := referenceMerge(fakeResolver{{"app/A", "app/B"}: "app/Base"})
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if got := f.Locals[2].Desc; got != "Lapp/Base;" {
		t.Errorf("merged desc = %q, want Lapp/Base;", got)
	}

	_, err = referenceMerge(fakeResolver{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindNoCommonAncestor {
		t.Fatalf("err = %v, want no_common_ancestor", err)
	}
	if e.Instr != 8 {
		t.Errorf("error at #%d, want the join #8", e.Instr)
	}

	f, err = referenceMerge(nil)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if got := f.Locals[2].Desc; got != "Ljava/lang/Object;" {
		t.Errorf("merged desc with nil resolver = %q, want Object", got)
	}
}

func TestFrames_WideLocals(t *testing.T) {
	m := staticMethod("("+contDesc+"J)V", 4,
		bytecode.Op(bytecode.OpIconst0),
		bytecode.Var(bytecode.OpIstore, 2), // overwrites the high half of the long
		bytecode.Op(bytecode.OpDconst1),
		bytecode.Var(bytecode.OpDstore, 1),
		bytecode.Op(bytecode.OpReturn), // 4
	)
	frames, err := NewAnalyzer("app/Main", m, nil).Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if got := frames[0].Locals[1].Kind; got != KindLong {
		t.Errorf("entry local 1 = %v, want long", got)
	}
	if got := frames[2].Locals[1].Kind; got != KindTop {
		t.Errorf("long should be invalidated by store into its high half, got %v", got)
	}
	f := frames[4]
	if f.Locals[1].Kind != KindDouble || f.Locals[2].Kind != KindTop {
		t.Errorf("locals after dstore = %v", f.Locals)
	}
}

func TestFrames_HandlerOrderStopsAtCatchAll(t *testing.T) {
	start, end := bytecode.NewLabel(), bytecode.NewLabel()
	h1, h2, h3 := bytecode.NewLabel(), bytecode.NewLabel(), bytecode.NewLabel()
	m := staticMethod("("+contDesc+")V", 1,
		bytecode.Mark(start),
		bytecode.Op(bytecode.OpNop),
		bytecode.Mark(end),
		bytecode.Op(bytecode.OpReturn),
		bytecode.Mark(h1), // 4
		bytecode.Op(bytecode.OpAthrow),
		bytecode.Mark(h2), // 6
		bytecode.Op(bytecode.OpAthrow),
		bytecode.Mark(h3), // 8
		bytecode.Op(bytecode.OpAthrow),
	)
	m.TryCatchBlocks = []bytecode.TryCatchBlock{
		{Start: start, End: end, Handler: h1, Type: "java/io/IOException"},
		{Start: start, End: end, Handler: h2},
		{Start: start, End: end, Handler: h3, Type: "java/lang/RuntimeException"},
	}
	frames, err := NewAnalyzer("app/Main", m, nil).Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if frames[4] == nil || frames[4].Stack[0].Desc != "Ljava/io/IOException;" {
		t.Errorf("typed handler frame = %v", frames[4])
	}
	if frames[6] == nil || frames[6].Stack[0].Desc != "Ljava/lang/Throwable;" {
		t.Errorf("catch-all handler frame = %v", frames[6])
	}
	if frames[8] != nil {
		t.Error("handler after a catch-all should be unreachable")
	}
}

func TestDupGroups(t *testing.T) {
	i := func(o int) Value { return Value{Kind: KindInt, Origin: o} }
	l := func(o int) Value { return Value{Kind: KindLong, Origin: o} }
	origins := func(vs []Value) []int {
		out := make([]int, len(vs))
		for k, v := range vs {
			out[k] = v.Origin
		}
		return out
	}
	tests := []struct {
		name   string
		stack  []Value
		w1, w2 int
		want   []int
	}{
		{"dup", []Value{i(1)}, 1, 0, []int{1, 1}},
		{"dup_x1", []Value{i(1), i(2)}, 1, 1, []int{2, 1, 2}},
		{"dup_x2 form1", []Value{i(1), i(2), i(3)}, 1, 2, []int{3, 1, 2, 3}},
		{"dup_x2 form2", []Value{l(1), i(2)}, 1, 2, []int{2, 1, 2}},
		{"dup2 form1", []Value{i(1), i(2)}, 2, 0, []int{1, 2, 1, 2}},
		{"dup2 form2", []Value{l(1)}, 2, 0, []int{1, 1}},
		{"dup2_x1 form1", []Value{i(1), i(2), i(3)}, 2, 1, []int{2, 3, 1, 2, 3}},
		{"dup2_x1 form2", []Value{i(1), l(2)}, 2, 1, []int{2, 1, 2}},
		{"dup2_x2 form4", []Value{l(1), l(2)}, 2, 2, []int{2, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Frame{Stack: tt.stack}
			if err := dupGroups(f, tt.w1, tt.w2); err != nil {
				t.Fatalf("dupGroups: %v", err)
			}
			got := origins(f.Stack)
			if len(got) != len(tt.want) {
				t.Fatalf("stack = %v, want %v", got, tt.want)
			}
			for k := range got {
				if got[k] != tt.want[k] {
					t.Fatalf("stack = %v, want %v", got, tt.want)
				}
			}
		})
	}

	f := &Frame{Stack: []Value{i(1), l(2)}}
	if err := dupGroups(f, 1, 0); err == nil {
		t.Error("dup of a wide value should fail")
	}
}

func TestAnalyze_JsrUnsupported(t *testing.T) {
	sub := bytecode.NewLabel()
	m := staticMethod("("+contDesc+")V", 1,
		bytecode.Jump(bytecode.OpJsr, sub),
		bytecode.Op(bytecode.OpReturn),
		bytecode.Mark(sub),
		bytecode.Op(bytecode.OpReturn),
	)
	_, err := Analyze("app/Main", m, nil)
	if got := kindOf(t, err); got != errors.KindUnsupported {
		t.Errorf("kind = %v, want unsupported", got)
	}
	if e := err.(*errors.Error); e.Instr != 0 {
		t.Errorf("instr = %d, want 0", e.Instr)
	}
}

func TestAnalyze_UninitializedLiveAtCall(t *testing.T) {
	m := staticMethod("("+contDesc+")V", 1,
		bytecode.TypeInsn(bytecode.OpNew, "app/Box"),
		bytecode.Op(bytecode.OpDup),
		bytecode.Var(bytecode.OpAload, 0),
		bytecode.Invoke(bytecode.OpInvokespecial, "app/Box", "<init>", "("+contDesc+")V"),
		bytecode.Op(bytecode.OpPop),
		bytecode.Op(bytecode.OpReturn),
	)
	_, err := Analyze("app/Main", m, nil)
	if got := kindOf(t, err); got != errors.KindUnsupported {
		t.Errorf("kind = %v, want unsupported", got)
	}
}

func TestAnalyze_ConstructedObjectIsInitialized(t *testing.T) {
	m := staticMethod("("+contDesc+")V", 2,
		bytecode.TypeInsn(bytecode.OpNew, "app/Box"),
		bytecode.Op(bytecode.OpDup),
		bytecode.Invoke(bytecode.OpInvokespecial, "app/Box", "<init>", "()V"),
		bytecode.Var(bytecode.OpAstore, 1),
		bytecode.Var(bytecode.OpAload, 0),
		suspendCall(),
		bytecode.Op(bytecode.OpReturn),
	)
	res, err := Analyze("app/Main", m, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	v := res.Invocations[0].Frame.Locals[1]
	if v.Kind != KindReference || v.Desc != "Lapp/Box;" || v.Origin != 0 {
		t.Errorf("constructed local = %v, want initialized Box from #0", v)
	}
}

func TestAnalyze_LineNumbers(t *testing.T) {
	l := bytecode.NewLabel()
	m := staticMethod("("+contDesc+")V", 1,
		bytecode.Mark(l),
		bytecode.Line(42, l),
		bytecode.Var(bytecode.OpAload, 0),
		suspendCall(),
		bytecode.Op(bytecode.OpReturn),
	)
	res, err := Analyze("app/Main", m, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := res.Invocations[0].Line; got != 42 {
		t.Errorf("line = %d, want 42", got)
	}
}

func TestPoints_SealedSwitch(t *testing.T) {
	m := staticMethod("("+contDesc+"Ljava/lang/Object;)V", 2,
		bytecode.Var(bytecode.OpAload, 1),
		bytecode.Op(bytecode.OpMonitorenter),
		bytecode.Var(bytecode.OpAload, 0),
		suspendCall(),
		bytecode.Var(bytecode.OpAload, 1),
		bytecode.Op(bytecode.OpMonitorexit),
		bytecode.Op(bytecode.OpReturn),
	)
	res, err := Analyze("app/Main", m, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var kinds []string
	for _, p := range res.Points {
		switch p := p.(type) {
		case *InvocationPoint:
			kinds = append(kinds, "call")
		case *MonitorPoint:
			if p.Enter {
				kinds = append(kinds, "enter")
			} else {
				kinds = append(kinds, "exit")
			}
		}
	}
	want := []string{"enter", "call", "exit"}
	if len(kinds) != len(want) {
		t.Fatalf("points = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("points = %v, want %v", kinds, want)
		}
	}
	if res.Points[1].Pos() != 3 || res.Points[1].Before() == nil {
		t.Errorf("call point pos = %d", res.Points[1].Pos())
	}
}
