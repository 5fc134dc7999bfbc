package instrument

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/hierarchy"
)

func suspending(name string) *bytecode.Method {
	return &bytecode.Method{
		Name:      name,
		Desc:      contDesc,
		Access:    bytecode.AccStatic,
		MaxLocals: 1,
		MaxStack:  1,
		Instructions: bytecode.NewInsnList(
			bytecode.Var(bytecode.OpAload, 0),
			bytecode.Invoke(bytecode.OpInvokevirtual, continuum.ContinuationClass, continuum.SuspendMethod, continuum.SuspendMethodDesc),
			bytecode.Op(bytecode.OpReturn),
		),
	}
}

func plain(name string) *bytecode.Method {
	return &bytecode.Method{
		Name:         name,
		Desc:         "()V",
		Access:       bytecode.AccStatic,
		MaxLocals:    0,
		MaxStack:     0,
		Instructions: bytecode.NewInsnList(bytecode.Op(bytecode.OpReturn)),
	}
}

func unbalancedMethod() *bytecode.Method {
	return &bytecode.Method{
		Name:      "broken",
		Desc:      contDesc,
		Access:    bytecode.AccStatic,
		MaxLocals: 1,
		MaxStack:  1,
		Instructions: bytecode.NewInsnList(
			bytecode.Var(bytecode.OpAload, 0),
			bytecode.Op(bytecode.OpMonitorexit),
			bytecode.Var(bytecode.OpAload, 0),
			bytecode.Invoke(bytecode.OpInvokevirtual, continuum.ContinuationClass, continuum.SuspendMethod, continuum.SuspendMethodDesc),
			bytecode.Op(bytecode.OpReturn),
		),
	}
}

func class(name string, methods ...*bytecode.Method) *bytecode.Class {
	return &bytecode.Class{Name: name, SuperName: "java/lang/Object", Methods: methods}
}

func TestInstrument(t *testing.T) {
	inst, err := New(Settings{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	run, idle := suspending("run"), plain("idle")
	c := class("app/Main", run, idle)
	res, err := inst.Instrument(c, hierarchy.NewMap())
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if !res.Instrumented || res.Class != c {
		t.Errorf("result = %+v", res)
	}
	if _, ok := res.Artifacts["Main.continfo"]; !ok {
		t.Errorf("artifacts = %v", res.Artifacts)
	}
	if !strings.Contains(res.Summary, "1 continuation point(s)") {
		t.Errorf("summary = %q", res.Summary)
	}
	if run.Instructions.Len() <= 3 || idle.Instructions.Len() != 1 {
		t.Errorf("run %d instructions, idle %d", run.Instructions.Len(), idle.Instructions.Len())
	}
	if c.FindField(continuum.InstrumentedMarker) == nil {
		t.Error("marker field missing")
	}
	if res.SkipErr() != nil || len(res.Skipped) != 0 {
		t.Errorf("unexpected skips: %v", res.SkipErr())
	}

	again, err := inst.Instrument(c, nil)
	if err != nil {
		t.Fatalf("second Instrument: %v", err)
	}
	if again.Instrumented {
		t.Error("instrumented class should not be instrumented again")
	}
}

func TestInstrument_Exclude(t *testing.T) {
	inst, err := New(Settings{Exclude: []string{"app/Main.run"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	run := suspending("run")
	res, err := inst.Instrument(class("app/Main", run), nil)
	if err != nil {
		t.Fatalf("Instrument: %v", err)
	}
	if res.Instrumented || run.Instructions.Len() != 3 {
		t.Error("excluded method was instrumented")
	}
}

func TestInstrument_UnbalancedMonitor(t *testing.T) {
	inst, _ := New(Settings{})
	_, err := inst.Instrument(class("app/Main", unbalancedMethod()), nil)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindUnbalancedMonitor {
		t.Fatalf("err = %v, want unbalanced_monitor", err)
	}
	if e.Class != "app/Main" || e.Instr != 1 {
		t.Errorf("location = %s", e.Location())
	}
}

type fakeCodec struct {
	classes   map[string]*bytecode.Class
	encoded   []string
	encodeErr error
}

func (f *fakeCodec) Decode(data []byte) (*bytecode.Class, error) {
	c, ok := f.classes[string(data)]
	if !ok {
		return nil, fmt.Errorf("bad magic")
	}
	return c, nil
}

func (f *fakeCodec) Encode(c *bytecode.Class, r *hierarchy.Resolver) ([]byte, error) {
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	if r == nil {
		return nil, fmt.Errorf("no resolver")
	}
	if _, err := r.CommonSuperclass("java/lang/Object", "java/lang/Object"); err != nil {
		return nil, err
	}
	f.encoded = append(f.encoded, c.Name)
	return []byte("encoded " + c.Name), nil
}

func TestInstrumentBytes(t *testing.T) {
	codec := &fakeCodec{classes: map[string]*bytecode.Class{
		"main":  class("app/Main", suspending("run")),
		"plain": class("app/Plain", plain("idle")),
	}}
	inst, _ := New(Settings{})

	res, err := inst.InstrumentBytes([]byte("main"), nil, codec)
	if err != nil {
		t.Fatalf("InstrumentBytes: %v", err)
	}
	if string(res.Bytes) != "encoded app/Main" {
		t.Errorf("bytes = %q", res.Bytes)
	}

	res, err = inst.InstrumentBytes([]byte("plain"), nil, codec)
	if err != nil {
		t.Fatalf("InstrumentBytes: %v", err)
	}
	if string(res.Bytes) != "plain" || len(codec.encoded) != 1 {
		t.Errorf("untouched class should be returned as given, got %q", res.Bytes)
	}

	if _, err := inst.InstrumentBytes([]byte("garbage"), nil, codec); err == nil {
		t.Error("decode failure should be reported")
	}
	if _, err := inst.InstrumentBytes([]byte("main"), nil, nil); err == nil {
		t.Error("nil codec should be rejected")
	}

	codec.classes["fail"] = class("app/Fail", suspending("run"))
	codec.encodeErr = fmt.Errorf("frame computation failed")
	_, err = inst.InstrumentBytes([]byte("fail"), nil, codec)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseCodec || e.Class != "app/Fail" {
		t.Errorf("err = %v, want codec error for app/Fail", err)
	}
}

func TestInstrumentAll(t *testing.T) {
	inst, _ := New(Settings{Markers: MarkerConstant})
	var classes []*bytecode.Class
	for i := 0; i < 16; i++ {
		classes = append(classes, class(fmt.Sprintf("app/C%d", i), suspending("run"), plain("idle")))
	}
	types := hierarchy.NewMap()
	for _, c := range classes {
		if err := types.AddClass(c); err != nil {
			t.Fatal(err)
		}
	}
	results, err := inst.InstrumentAll(context.Background(), classes, types)
	if err != nil {
		t.Fatalf("InstrumentAll: %v", err)
	}
	for i, r := range results {
		if r.Class != classes[i] || !r.Instrumented {
			t.Errorf("result %d = %+v", i, r)
		}
		if _, ok := r.Artifacts[fmt.Sprintf("C%d.continfo", i)]; !ok {
			t.Errorf("result %d artifacts = %v", i, r.Artifacts)
		}
	}
}

func TestInstrumentAll_Error(t *testing.T) {
	inst, _ := New(Settings{})
	classes := []*bytecode.Class{
		class("app/A", suspending("run")),
		class("app/B", unbalancedMethod()),
	}
	results, err := inst.InstrumentAll(context.Background(), classes, nil)
	if err == nil || results != nil {
		t.Fatalf("results %v, err %v", results, err)
	}
	if !strings.Contains(err.Error(), "unbalanced_monitor") {
		t.Errorf("err = %v", err)
	}
}

func TestInstrumentAll_Canceled(t *testing.T) {
	inst, _ := New(Settings{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := inst.InstrumentAll(ctx, []*bytecode.Class{class("app/A", suspending("run"))}, nil)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSetLogger(t *testing.T) {
	SetLogger(nil)
	inst, _ := New(Settings{})
	if _, err := inst.Instrument(class("app/A", suspending("run")), nil); err != nil {
		t.Fatalf("Instrument with default logger: %v", err)
	}
}
