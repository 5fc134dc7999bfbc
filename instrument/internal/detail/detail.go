package detail

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/instrument/internal/analysis"
	"github.com/wippyai/continuum/instrument/internal/slots"
)

// Point kinds.
const (
	KindInvoke       = "invoke"
	KindSuspend      = "suspend"
	KindMonitorEnter = "monitorenter"
	KindMonitorExit  = "monitorexit"
)

// ClassDetail describes all instrumented methods of one class.
type ClassDetail struct {
	Class   string         `cbor:"1,keyasint"`
	Methods []MethodDetail `cbor:"2,keyasint,omitempty"`
	// Skipped lists methods left alone, as "name desc: reason".
	Skipped []string `cbor:"3,keyasint,omitempty"`
}

// MethodDetail describes one instrumented method: its storage sizes and
// every continuation or monitor point.
type MethodDetail struct {
	Name      string        `cbor:"1,keyasint"`
	Desc      string        `cbor:"2,keyasint"`
	Sizes     [5]int        `cbor:"3,keyasint"`
	MaxLocals int           `cbor:"4,keyasint"`
	LockState bool          `cbor:"5,keyasint,omitempty"`
	Points    []PointDetail `cbor:"6,keyasint,omitempty"`
}

// PointDetail describes one continuation point. Monitor points carry tag 0.
type PointDetail struct {
	Tag    int          `cbor:"1,keyasint"`
	Kind   string       `cbor:"2,keyasint"`
	Instr  int          `cbor:"3,keyasint"`
	Line   int          `cbor:"4,keyasint,omitempty"`
	Call   string       `cbor:"5,keyasint,omitempty"`
	Depth  int          `cbor:"6,keyasint,omitempty"`
	Locals []SlotDetail `cbor:"7,keyasint,omitempty"`
	Stack  []SlotDetail `cbor:"8,keyasint,omitempty"`
}

// SlotDetail maps one live value to its storage element.
type SlotDetail struct {
	// Local is the local slot, or -1 for the operand stack.
	Local  int    `cbor:"1,keyasint"`
	Desc   string `cbor:"2,keyasint"`
	Bucket string `cbor:"3,keyasint"`
	Index  int    `cbor:"4,keyasint"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("detail: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// ArtifactName returns the artifact key for a class with the given simple name.
func ArtifactName(simpleName string) string {
	return simpleName + "." + continuum.DetailExtension
}

// Describe builds the detail of one method from its analysis and slot plan.
func Describe(m *bytecode.Method, res *analysis.Result, plan *slots.Plan) (MethodDetail, error) {
	if m == nil || res == nil || plan == nil {
		return MethodDetail{}, errors.NilPointer(errors.PhaseSynthesize, "detail input")
	}
	md := MethodDetail{
		Name:      m.Name,
		Desc:      m.Desc,
		Sizes:     plan.Sizes,
		MaxLocals: plan.MaxLocals,
		LockState: plan.Locks != nil,
	}
	for _, p := range res.Points {
		switch p := p.(type) {
		case *analysis.InvocationPoint:
			layout, err := plan.Layout(p.Tag)
			if err != nil {
				return MethodDetail{}, err
			}
			pd := PointDetail{
				Tag:    p.Tag,
				Kind:   KindInvoke,
				Instr:  p.Index,
				Line:   p.Line,
				Call:   p.Call.Owner + "." + p.Call.Name + p.Call.Desc,
				Depth:  p.Depth(),
				Locals: slotDetails(layout.Locals),
				Stack:  slotDetails(layout.Stack),
			}
			if p.Suspend {
				pd.Kind = KindSuspend
			}
			md.Points = append(md.Points, pd)
		case *analysis.MonitorPoint:
			kind := KindMonitorExit
			if p.Enter {
				kind = KindMonitorEnter
			}
			md.Points = append(md.Points, PointDetail{Kind: kind, Instr: p.Index, Line: p.Line})
		}
	}
	return md, nil
}

func slotDetails(entries []slots.Entry) []SlotDetail {
	if len(entries) == 0 {
		return nil
	}
	out := make([]SlotDetail, len(entries))
	for i, e := range entries {
		out[i] = SlotDetail{
			Local:  e.Local,
			Desc:   e.Value.Type().Descriptor(),
			Bucket: e.Bucket.String(),
			Index:  e.Index,
		}
	}
	return out
}

// Marshal serializes d to canonical CBOR.
func Marshal(d *ClassDetail) ([]byte, error) {
	data, err := encMode.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindInvalidData, err, "encode class detail")
	}
	return data, nil
}

// Unmarshal deserializes a class detail.
func Unmarshal(data []byte) (*ClassDetail, error) {
	var d ClassDetail
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindInvalidData, err, "decode class detail")
	}
	return &d, nil
}

// Summary renders a one-line human description of d.
func Summary(d *ClassDetail) string {
	var b strings.Builder
	points, monitors := 0, 0
	for _, m := range d.Methods {
		for _, p := range m.Points {
			if p.Tag > 0 {
				points++
			} else {
				monitors++
			}
		}
	}
	fmt.Fprintf(&b, "%s: %d method(s) instrumented, %d continuation point(s)", d.Class, len(d.Methods), points)
	if monitors > 0 {
		fmt.Fprintf(&b, ", %d monitor(s)", monitors)
	}
	if len(d.Skipped) > 0 {
		fmt.Fprintf(&b, ", %d skipped", len(d.Skipped))
	}
	if len(d.Methods) > 0 {
		names := make([]string, len(d.Methods))
		for i, m := range d.Methods {
			names[i] = m.Name + m.Desc
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
	}
	return b.String()
}
