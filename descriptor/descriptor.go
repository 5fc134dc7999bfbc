// Package descriptor holds the identity value objects used by the
// instrumenter: method descriptors and per-type ancestry records.
package descriptor

import (
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/errors"
)

// RootType is the only type allowed to have no superclass.
const RootType = "java/lang/Object"

// MethodDescriptor identifies a method by owner, name and descriptor.
type MethodDescriptor struct {
	owner string
	name  string
	desc  bytecode.Type
}

// NewMethod validates and creates a MethodDescriptor.
func NewMethod(owner, name, desc string) (MethodDescriptor, error) {
	if owner == "" {
		return MethodDescriptor{}, errors.InvalidInput(errors.PhaseModel, "method owner is empty")
	}
	if name == "" {
		return MethodDescriptor{}, errors.InvalidInput(errors.PhaseModel, "method name is empty")
	}
	t, err := bytecode.ParseType(desc)
	if err != nil {
		return MethodDescriptor{}, errors.Wrap(errors.PhaseModel, errors.KindInvalidInput, err, "method descriptor")
	}
	if t.Sort() != bytecode.SortMethod {
		return MethodDescriptor{}, errors.InvalidInput(errors.PhaseModel, "not a method descriptor: "+desc)
	}
	return MethodDescriptor{owner: owner, name: name, desc: t}, nil
}

// Of returns the descriptor of a method declared by owner.
func Of(owner string, m *bytecode.Method) (MethodDescriptor, error) {
	if m == nil {
		return MethodDescriptor{}, errors.NilPointer(errors.PhaseModel, "method")
	}
	return NewMethod(owner, m.Name, m.Desc)
}

// Owner returns the internal name of the declaring type.
func (d MethodDescriptor) Owner() string { return d.owner }

// Name returns the method name.
func (d MethodDescriptor) Name() string { return d.name }

// Desc returns the raw method descriptor.
func (d MethodDescriptor) Desc() string { return d.desc.Descriptor() }

// Type returns the parsed method type.
func (d MethodDescriptor) Type() bytecode.Type { return d.desc }

// ReturnType returns the declared return type.
func (d MethodDescriptor) ReturnType() bytecode.Type { return d.desc.ReturnType() }

// ArgumentTypes returns the declared parameter types.
func (d MethodDescriptor) ArgumentTypes() []bytecode.Type { return d.desc.ArgumentTypes() }

// Signature returns "name(desc)ret".
func (d MethodDescriptor) Signature() string { return d.name + d.desc.Descriptor() }

func (d MethodDescriptor) String() string {
	return d.owner + "." + d.name + d.desc.Descriptor()
}

// TypeHierarchyInfo records the declared ancestry of one type.
type TypeHierarchyInfo struct {
	superName  string
	interfaces []string
}

// NewTypeInfo creates a TypeHierarchyInfo. superName is empty only for the root type.
func NewTypeInfo(superName string, interfaces ...string) TypeHierarchyInfo {
	return TypeHierarchyInfo{
		superName:  superName,
		interfaces: append([]string(nil), interfaces...),
	}
}

// SuperName returns the declared superclass and whether one exists.
func (t TypeHierarchyInfo) SuperName() (string, bool) {
	return t.superName, t.superName != ""
}

// Interfaces returns the implemented interfaces in declaration order.
func (t TypeHierarchyInfo) Interfaces() []string {
	return append([]string(nil), t.interfaces...)
}

// Validate checks that only the root type lacks a superclass.
func (t TypeHierarchyInfo) Validate(name string) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseModel, "type name is empty")
	}
	if t.superName == "" && name != RootType {
		return errors.InvalidInput(errors.PhaseModel, "type "+name+" has no superclass but is not "+RootType)
	}
	if t.superName == name {
		return errors.InvalidInput(errors.PhaseModel, "type "+name+" is its own superclass")
	}
	return nil
}
