package slots

import (
	"fmt"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
)

// Role is the purpose of a generated local.
type Role uint8

const (
	RoleContinuation Role = iota
	RoleMethodState
	RoleScratch
	RolePending
	RoleInts
	RoleLongs
	RoleFloats
	RoleDoubles
	RoleObjects
	RoleTempInt
	RoleTempLong
	RoleTempFloat
	RoleTempDouble
	RoleTempObject
	RoleLockState
	RoleCounter
	RoleArrayLen
)

var roleInfo = [...]struct {
	name string
	desc string
}{
	RoleContinuation: {"continuation", continuum.ContinuationDesc},
	RoleMethodState:  {"methodState", continuum.MethodStateDesc},
	RoleScratch:      {"scratch", "[Ljava/lang/Object;"},
	RolePending:      {"pending", "I"},
	RoleInts:         {"ints", "[I"},
	RoleLongs:        {"longs", "[J"},
	RoleFloats:       {"floats", "[F"},
	RoleDoubles:      {"doubles", "[D"},
	RoleObjects:      {"objects", "[Ljava/lang/Object;"},
	RoleTempInt:      {"tempInt", "I"},
	RoleTempLong:     {"tempLong", "J"},
	RoleTempFloat:    {"tempFloat", "F"},
	RoleTempDouble:   {"tempDouble", "D"},
	RoleTempObject:   {"tempObject", "Ljava/lang/Object;"},
	RoleLockState:    {"lockState", continuum.LockStateDesc},
	RoleCounter:      {"counter", "I"},
	RoleArrayLen:     {"arrayLen", "I"},
}

func (r Role) String() string {
	if int(r) < len(roleInfo) {
		return roleInfo[r].name
	}
	return fmt.Sprintf("role(%d)", r)
}

// Type returns the declared type a slot with this role must have.
func (r Role) Type() bytecode.Type {
	return bytecode.MustType(roleInfo[r].desc)
}

// Slot is a local variable with a fixed declared type.
type Slot struct {
	Type  bytecode.Type
	Index int
	Role  Role
}

// Size returns the number of local indices the slot occupies.
func (s *Slot) Size() int { return s.Type.Size() }

func (s *Slot) String() string {
	return fmt.Sprintf("%s@%d:%s", s.Role, s.Index, s.Type)
}

// Param describes an existing parameter slot used in a generated role.
func Param(index int, t bytecode.Type, role Role) *Slot {
	return &Slot{Index: index, Type: t, Role: role}
}

// Allocator hands out extra locals for one method. It is never shared
// between methods.
type Allocator struct {
	slots []*Slot
	first int
	next  int
}

// NewAllocator starts allocating after the declared locals and parameters
// of m, whichever extends further.
func NewAllocator(m *bytecode.Method) *Allocator {
	first := m.MaxLocals
	if p := m.ParamSlots(); p > first {
		first = p
	}
	return &Allocator{first: first, next: first}
}

// Alloc reserves the next free index for a slot of type t.
func (a *Allocator) Alloc(role Role, t bytecode.Type) *Slot {
	s := &Slot{Index: a.next, Type: t, Role: role}
	a.next += t.Size()
	a.slots = append(a.slots, s)
	return s
}

// AllocRole reserves a slot with the declared type of role.
func (a *Allocator) AllocRole(role Role) *Slot {
	return a.Alloc(role, role.Type())
}

// First returns the first index the allocator handed out or would hand out.
func (a *Allocator) First() int { return a.first }

// Next returns the first index not yet allocated, which becomes the
// method's new local count.
func (a *Allocator) Next() int { return a.next }

// Slots returns the allocated slots in allocation order.
func (a *Allocator) Slots() []*Slot { return append([]*Slot(nil), a.slots...) }
