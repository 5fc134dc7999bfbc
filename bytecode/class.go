package bytecode

import "strings"

// TryCatchBlock is an exception handler range [Start, End) jumping to Handler.
// An empty Type catches everything.
type TryCatchBlock struct {
	Start   *Label
	End     *Label
	Handler *Label
	Type    string
}

// LocalVariable is an entry of the local variable debug table.
type LocalVariable struct {
	Start *Label
	End   *Label
	Name  string
	Desc  string
	Index int
}

// Method is an editable method body.
type Method struct {
	Instructions   *InsnList
	Name           string
	Desc           string
	TryCatchBlocks []TryCatchBlock
	LocalVariables []LocalVariable
	MaxLocals      int
	MaxStack       int
	Access         uint16
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool { return m.Access&AccStatic != 0 }

// IsAbstract reports whether the method has no body.
func (m *Method) IsAbstract() bool { return m.Access&(AccAbstract|AccNative) != 0 }

// Type returns the parsed method descriptor.
func (m *Method) Type() Type { return Type{m.Desc} }

// Signature returns "name(desc)ret".
func (m *Method) Signature() string { return m.Name + m.Desc }

// ParamSlots returns the number of local slots occupied by the receiver and
// the parameters.
func (m *Method) ParamSlots() int {
	n := m.Type().ArgumentsSize()
	if !m.IsStatic() {
		n++
	}
	return n
}

// Field is a class field.
type Field struct {
	Value  interface{}
	Name   string
	Desc   string
	Access uint16
}

// Class is an editable class.
type Class struct {
	Name       string
	SuperName  string
	Interfaces []string
	Fields     []*Field
	Methods    []*Method
	Version    int
	Access     uint16
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool { return c.Access&AccInterface != 0 }

// SimpleName returns the class name without its package.
func (c *Class) SimpleName() string {
	if i := strings.LastIndexByte(c.Name, '/'); i >= 0 {
		return c.Name[i+1:]
	}
	return c.Name
}

// FindField returns the field with the given name, or nil.
func (c *Class) FindField(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindMethod returns the method with the given name and descriptor, or nil.
func (c *Class) FindMethod(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}
