package bytecode

import (
	"fmt"
	"strings"
)

// Sort classifies a Type.
type Sort uint8

const (
	SortVoid Sort = iota
	SortBoolean
	SortChar
	SortByte
	SortShort
	SortInt
	SortFloat
	SortLong
	SortDouble
	SortArray
	SortObject
	SortMethod
)

var sortNames = [...]string{"void", "boolean", "char", "byte", "short", "int", "float", "long", "double", "array", "object", "method"}

func (s Sort) String() string {
	if int(s) < len(sortNames) {
		return sortNames[s]
	}
	return fmt.Sprintf("sort(%d)", s)
}

// Type is a JVM field or method descriptor.
type Type struct {
	desc string
}

// Common types.
var (
	VoidType    = Type{"V"}
	BooleanType = Type{"Z"}
	CharType    = Type{"C"}
	ByteType    = Type{"B"}
	ShortType   = Type{"S"}
	IntType     = Type{"I"}
	FloatType   = Type{"F"}
	LongType    = Type{"J"}
	DoubleType  = Type{"D"}
	ObjectType  = Type{"Ljava/lang/Object;"}
)

// ParseType validates a field or method descriptor.
func ParseType(desc string) (Type, error) {
	if desc == "" {
		return Type{}, fmt.Errorf("empty descriptor")
	}
	if desc[0] == '(' {
		if _, _, err := parseMethodDesc(desc); err != nil {
			return Type{}, err
		}
		return Type{desc}, nil
	}
	n, err := fieldDescLen(desc, 0)
	if err != nil {
		return Type{}, err
	}
	if n != len(desc) {
		return Type{}, fmt.Errorf("trailing data in descriptor %q", desc)
	}
	return Type{desc}, nil
}

// MustType is like ParseType but panics on malformed descriptors.
func MustType(desc string) Type {
	t, err := ParseType(desc)
	if err != nil {
		panic(err)
	}
	return t
}

// ObjectTypeOf returns the reference type for an internal name or array descriptor.
func ObjectTypeOf(internalName string) Type {
	if strings.HasPrefix(internalName, "[") {
		return Type{internalName}
	}
	return Type{"L" + internalName + ";"}
}

// Descriptor returns the raw descriptor.
func (t Type) Descriptor() string { return t.desc }

func (t Type) String() string { return t.desc }

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool { return t.desc == "" }

// Sort returns the kind of the type.
func (t Type) Sort() Sort {
	if t.desc == "" {
		return SortVoid
	}
	switch t.desc[0] {
	case 'V':
		return SortVoid
	case 'Z':
		return SortBoolean
	case 'C':
		return SortChar
	case 'B':
		return SortByte
	case 'S':
		return SortShort
	case 'I':
		return SortInt
	case 'F':
		return SortFloat
	case 'J':
		return SortLong
	case 'D':
		return SortDouble
	case '[':
		return SortArray
	case '(':
		return SortMethod
	default:
		return SortObject
	}
}

// Size returns the number of local/stack slots a value of this type occupies.
func (t Type) Size() int {
	switch t.Sort() {
	case SortVoid:
		return 0
	case SortLong, SortDouble:
		return 2
	default:
		return 1
	}
}

// IsReference reports whether the type is an object or array type.
func (t Type) IsReference() bool {
	s := t.Sort()
	return s == SortObject || s == SortArray
}

// InternalName returns "java/lang/String" for "Ljava/lang/String;" and the
// descriptor itself for arrays.
func (t Type) InternalName() string {
	switch t.Sort() {
	case SortObject:
		return t.desc[1 : len(t.desc)-1]
	default:
		return t.desc
	}
}

// ElementType returns the component type of an array type.
func (t Type) ElementType() Type {
	if t.Sort() != SortArray {
		return Type{}
	}
	return Type{t.desc[1:]}
}

// ArgumentTypes returns the parameter types of a method type.
func (t Type) ArgumentTypes() []Type {
	args, _, err := parseMethodDesc(t.desc)
	if err != nil {
		return nil
	}
	return args
}

// ReturnType returns the return type of a method type.
func (t Type) ReturnType() Type {
	_, ret, err := parseMethodDesc(t.desc)
	if err != nil {
		return Type{}
	}
	return ret
}

// ArgumentsSize returns the number of local slots taken by the arguments of a
// method type, excluding the receiver.
func (t Type) ArgumentsSize() int {
	n := 0
	for _, a := range t.ArgumentTypes() {
		n += a.Size()
	}
	return n
}

func parseMethodDesc(desc string) ([]Type, Type, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, Type{}, fmt.Errorf("malformed method descriptor %q", desc)
	}
	var args []Type
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := fieldDescLen(desc, i)
		if err != nil {
			return nil, Type{}, err
		}
		if desc[i] == 'V' {
			return nil, Type{}, fmt.Errorf("void parameter in %q", desc)
		}
		args = append(args, Type{desc[i : i+n]})
		i += n
	}
	if i >= len(desc) {
		return nil, Type{}, fmt.Errorf("unterminated parameter list in %q", desc)
	}
	i++
	n, err := fieldDescLen(desc, i)
	if err != nil {
		return nil, Type{}, err
	}
	if i+n != len(desc) {
		return nil, Type{}, fmt.Errorf("trailing data in method descriptor %q", desc)
	}
	return args, Type{desc[i:]}, nil
}

// fieldDescLen returns the length of the field descriptor starting at off.
func fieldDescLen(desc string, off int) (int, error) {
	i := off
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("truncated descriptor %q", desc)
	}
	switch desc[i] {
	case 'Z', 'C', 'B', 'S', 'I', 'F', 'J', 'D':
		return i + 1 - off, nil
	case 'V':
		if i != off {
			return 0, fmt.Errorf("array of void in %q", desc)
		}
		return 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end <= 1 {
			return 0, fmt.Errorf("malformed object type in %q", desc)
		}
		return i + end + 1 - off, nil
	default:
		return 0, fmt.Errorf("invalid descriptor character %q in %q", desc[i], desc)
	}
}
