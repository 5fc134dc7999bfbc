package slots

import (
	"github.com/wippyai/continuum/errors"
)

// check verifies that s was reserved for role with role's declared type.
func check(s *Slot, role Role) error {
	if s.Role != role {
		return errors.New(errors.PhaseAllocate, errors.KindTypeMismatch).
			Value(s.Role).
			Detail("slot %d has role %s, want %s", s.Index, s.Role, role).
			Build()
	}
	if want := role.Type(); s.Type != want {
		return errors.TypeMismatch(errors.PhaseAllocate, role.String()+" slot", s.Type.Descriptor(), want.Descriptor())
	}
	return nil
}

func required(s *Slot, role Role) error {
	if s == nil {
		return errors.NilPointer(errors.PhaseAllocate, role.String()+" slot")
	}
	return check(s, role)
}

func optional(s *Slot, role Role) error {
	if s == nil {
		return nil
	}
	return check(s, role)
}

// CoreVariables are the slots every instrumented method uses. Pending is
// only present in debug mode.
type CoreVariables struct {
	Continuation *Slot
	MethodState  *Slot
	Scratch      *Slot
	Pending      *Slot
}

// NewCoreVariables validates and groups the core slots.
func NewCoreVariables(cont, methodState, scratch, pending *Slot) (*CoreVariables, error) {
	if err := required(cont, RoleContinuation); err != nil {
		return nil, err
	}
	if err := required(methodState, RoleMethodState); err != nil {
		return nil, err
	}
	if err := required(scratch, RoleScratch); err != nil {
		return nil, err
	}
	if err := optional(pending, RolePending); err != nil {
		return nil, err
	}
	return &CoreVariables{Continuation: cont, MethodState: methodState, Scratch: scratch, Pending: pending}, nil
}

// StorageVariables hold the typed storage arrays. A nil field means the
// bucket is empty at every point of the method.
type StorageVariables struct {
	Ints    *Slot
	Longs   *Slot
	Floats  *Slot
	Doubles *Slot
	Objects *Slot
}

// NewStorageVariables validates and groups the storage array slots.
func NewStorageVariables(ints, longs, floats, doubles, objects *Slot) (*StorageVariables, error) {
	s := &StorageVariables{Ints: ints, Longs: longs, Floats: floats, Doubles: doubles, Objects: objects}
	for b := Bucket(0); b < NumBuckets; b++ {
		if err := optional(s.Array(b), b.StorageRole()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Array returns the slot of bucket b, or nil.
func (s *StorageVariables) Array(b Bucket) *Slot {
	switch b {
	case Ints:
		return s.Ints
	case Longs:
		return s.Longs
	case Floats:
		return s.Floats
	case Doubles:
		return s.Doubles
	case Objects:
		return s.Objects
	}
	return nil
}

// FlowVariables are temporaries used to move operand stack values into
// storage arrays. A nil field means no point has a stack value of that kind.
type FlowVariables struct {
	Int    *Slot
	Long   *Slot
	Float  *Slot
	Double *Slot
	Object *Slot
}

// NewFlowVariables validates and groups the stack spill temporaries.
func NewFlowVariables(i, l, f, d, o *Slot) (*FlowVariables, error) {
	v := &FlowVariables{Int: i, Long: l, Float: f, Double: d, Object: o}
	for b := Bucket(0); b < NumBuckets; b++ {
		if err := optional(v.Temp(b), b.TempRole()); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Temp returns the temporary for bucket b, or nil.
func (v *FlowVariables) Temp(b Bucket) *Slot {
	switch b {
	case Ints:
		return v.Int
	case Longs:
		return v.Long
	case Floats:
		return v.Float
	case Doubles:
		return v.Double
	case Objects:
		return v.Object
	}
	return nil
}

// LockVariables track monitors held across invocation points.
type LockVariables struct {
	LockState *Slot
	Counter   *Slot
	ArrayLen  *Slot
}

// NewLockVariables validates and groups the lock tracking slots.
func NewLockVariables(lockState, counter, arrayLen *Slot) (*LockVariables, error) {
	if err := required(lockState, RoleLockState); err != nil {
		return nil, err
	}
	if err := required(counter, RoleCounter); err != nil {
		return nil, err
	}
	if err := required(arrayLen, RoleArrayLen); err != nil {
		return nil, err
	}
	return &LockVariables{LockState: lockState, Counter: counter, ArrayLen: arrayLen}, nil
}
