package detail

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/slots"
)

func syncMethod() *bytecode.Method {
	return &bytecode.Method{
		Name:      "run",
		Desc:      "(" + continuum.ContinuationDesc + "Ljava/lang/Object;J)V",
		Access:    bytecode.AccStatic,
		MaxLocals: 4,
		MaxStack:  2,
		Instructions: bytecode.NewInsnList(
			bytecode.Var(bytecode.OpAload, 1),
			bytecode.Op(bytecode.OpMonitorenter),
			bytecode.Var(bytecode.OpAload, 0),
			bytecode.Invoke(bytecode.OpInvokevirtual, continuum.ContinuationClass, "suspend", "()V"),
			bytecode.Var(bytecode.OpAload, 1),
			bytecode.Op(bytecode.OpMonitorexit),
			bytecode.Op(bytecode.OpReturn),
		),
	}
}

func describe(t *testing.T) MethodDetail {
	t.Helper()
	m := syncMethod()
	res, err := analysis.Analyze("app/Main", m, nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	plan, err := slots.Allocate(m, res, false)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	md, err := Describe(m, res, plan)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	return md
}

func TestDescribe(t *testing.T) {
	md := describe(t)
	if md.Name != "run" || !md.LockState {
		t.Errorf("method detail = %+v", md)
	}
	if len(md.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(md.Points))
	}
	kinds := []string{KindMonitorEnter, KindSuspend, KindMonitorExit}
	for i, p := range md.Points {
		if p.Kind != kinds[i] {
			t.Errorf("point %d kind = %s, want %s", i, p.Kind, kinds[i])
		}
	}
	sp := md.Points[1]
	if sp.Tag != 1 || sp.Depth != 1 || sp.Instr != 3 {
		t.Errorf("suspend point = %+v", sp)
	}
	if sp.Call != continuum.ContinuationClass+".suspend()V" {
		t.Errorf("call = %s", sp.Call)
	}
	// object and long locals, continuation receiver on the stack
	if len(sp.Locals) != 2 || len(sp.Stack) != 1 {
		t.Fatalf("locals %v stack %v", sp.Locals, sp.Stack)
	}
	if sp.Locals[1].Desc != "J" || sp.Locals[1].Bucket != "longs" || sp.Locals[1].Local != 2 {
		t.Errorf("long local = %+v", sp.Locals[1])
	}
	if sp.Stack[0].Local != -1 || sp.Stack[0].Bucket != "objects" || sp.Stack[0].Index != 1 {
		t.Errorf("stack entry = %+v", sp.Stack[0])
	}
	if md.Sizes != [5]int{0, 1, 0, 0, 2} {
		t.Errorf("sizes = %v", md.Sizes)
	}
}

func TestDescribe_NilInput(t *testing.T) {
	if _, err := Describe(nil, nil, nil); err == nil {
		t.Error("expected error for nil input")
	}
}

func TestMarshal_Canonical(t *testing.T) {
	d := &ClassDetail{Class: "app/Main", Methods: []MethodDetail{describe(t)}}
	a, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := Marshal(&ClassDetail{Class: "app/Main", Methods: []MethodDetail{describe(t)}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
	got, err := Unmarshal(a)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Class != d.Class || len(got.Methods) != 1 || len(got.Methods[0].Points) != 3 {
		t.Errorf("decoded = %+v", got)
	}
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("Unmarshal should reject garbage")
	}
}

func TestSummary(t *testing.T) {
	d := &ClassDetail{
		Class:   "app/Main",
		Methods: []MethodDetail{describe(t)},
		Skipped: []string{"bad (Lcontinuum/user/Continuation;)V: unsupported"},
	}
	s := Summary(d)
	for _, want := range []string{"app/Main", "1 method(s)", "1 continuation point(s)", "2 monitor(s)", "1 skipped", "run("} {
		if !strings.Contains(s, want) {
			t.Errorf("summary %q missing %q", s, want)
		}
	}
	if got := Summary(&ClassDetail{Class: "x/Y"}); got != "x/Y: 0 method(s) instrumented, 0 continuation point(s)" {
		t.Errorf("empty summary = %q", got)
	}
}

func TestArtifactName(t *testing.T) {
	if got := ArtifactName("Main"); got != "Main.continfo" {
		t.Errorf("ArtifactName = %s", got)
	}
}
