package slots

import (
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
	"github.com/wippyai/continuum/instrument/internal/analysis"
)

// Plan is the complete slot assignment for one method.
type Plan struct {
	Core    *CoreVariables
	Storage *StorageVariables
	Flow    *FlowVariables
	// Locks is nil when no invocation point holds a monitor.
	Locks *LockVariables
	// Layouts holds the layout of each invocation point, indexed by tag-1.
	Layouts   []*Layout
	Generated []*Slot
	Sizes     StorageSizes
	MaxLocals int
}

// Layout returns the layout for resume tag.
func (p *Plan) Layout(tag int) (*Layout, error) {
	if tag < 1 || tag > len(p.Layouts) {
		return nil, errors.OutOfBounds(errors.PhaseAllocate, "continuation point", tag, len(p.Layouts))
	}
	return p.Layouts[tag-1], nil
}

// Allocate lays out every invocation point of res and reserves the slots
// the generated code needs.
func Allocate(m *bytecode.Method, res *analysis.Result, debug bool) (*Plan, error) {
	if m == nil || res == nil {
		return nil, errors.NilPointer(errors.PhaseAllocate, "method analysis")
	}
	if len(res.Invocations) == 0 {
		return nil, errors.Precondition(errors.PhaseAllocate, "method has no invocation points")
	}

	p := &Plan{}
	var stackUse StorageSizes
	for _, ip := range res.Invocations {
		l := NewLayout(ip.Frame, res.ContSlot)
		p.Layouts = append(p.Layouts, l)
		p.Sizes = p.Sizes.Max(l.Sizes)
		for _, e := range l.Stack {
			if e.Stored() {
				stackUse[e.Bucket]++
			}
		}
	}

	args := m.Type().ArgumentTypes()
	contType := bytecode.ObjectType
	slot := 0
	if !m.IsStatic() {
		slot = 1
	}
	for _, t := range args {
		if slot == res.ContSlot {
			contType = t
			break
		}
		slot += t.Size()
	}

	a := NewAllocator(m)
	var pending *Slot
	ms := a.AllocRole(RoleMethodState)
	scratch := a.AllocRole(RoleScratch)
	if debug {
		pending = a.AllocRole(RolePending)
	}
	core, err := NewCoreVariables(Param(res.ContSlot, contType, RoleContinuation), ms, scratch, pending)
	if err != nil {
		return nil, err
	}
	p.Core = core

	var arrays, temps [NumBuckets]*Slot
	for b := Bucket(0); b < NumBuckets; b++ {
		if p.Sizes.Used(b) {
			arrays[b] = a.AllocRole(b.StorageRole())
		}
	}
	for b := Bucket(0); b < NumBuckets; b++ {
		if stackUse.Used(b) {
			temps[b] = a.AllocRole(b.TempRole())
		}
	}
	if p.Storage, err = NewStorageVariables(arrays[Ints], arrays[Longs], arrays[Floats], arrays[Doubles], arrays[Objects]); err != nil {
		return nil, err
	}
	if p.Flow, err = NewFlowVariables(temps[Ints], temps[Longs], temps[Floats], temps[Doubles], temps[Objects]); err != nil {
		return nil, err
	}

	if res.NeedsLockState() {
		ls := a.AllocRole(RoleLockState)
		counter := a.AllocRole(RoleCounter)
		arrLen := a.AllocRole(RoleArrayLen)
		if p.Locks, err = NewLockVariables(ls, counter, arrLen); err != nil {
			return nil, err
		}
	}

	p.Generated = a.Slots()
	p.MaxLocals = a.Next()
	if err := disjoint(append(p.Generated, core.Continuation), m.ParamSlots()); err != nil {
		return nil, err
	}
	return p, nil
}

// disjoint verifies that no two generated slots share an index and that
// none overlaps a parameter other than the continuation argument.
func disjoint(all []*Slot, params int) error {
	owner := make(map[int]*Slot)
	for _, s := range all {
		for i := s.Index; i < s.Index+s.Size(); i++ {
			if prev, ok := owner[i]; ok {
				return errors.New(errors.PhaseAllocate, errors.KindInvalidData).
					Detail("slot %s overlaps %s", s, prev).
					Build()
			}
			if s.Role != RoleContinuation && i < params {
				return errors.New(errors.PhaseAllocate, errors.KindInvalidData).
					Detail("slot %s overlaps a parameter", s).
					Build()
			}
			owner[i] = s
		}
	}
	return nil
}
