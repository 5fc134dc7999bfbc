package hierarchy

import (
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/descriptor"
	"github.com/wippyai/continuum/errors"
)

// Map holds one TypeHierarchyInfo per known type.
type Map struct {
	types map[string]descriptor.TypeHierarchyInfo
}

// NewMap creates a map containing only the root type.
func NewMap() *Map {
	m := &Map{types: make(map[string]descriptor.TypeHierarchyInfo)}
	m.types[descriptor.RootType] = descriptor.NewTypeInfo("")
	return m
}

// Add records the ancestry of a type, replacing any previous entry.
func (m *Map) Add(name string, info descriptor.TypeHierarchyInfo) error {
	if err := info.Validate(name); err != nil {
		return err
	}
	m.types[name] = info
	return nil
}

// AddClass records the ancestry declared by a parsed class.
func (m *Map) AddClass(c *bytecode.Class) error {
	if c == nil {
		return errors.NilPointer(errors.PhaseModel, "class")
	}
	return m.Add(c.Name, descriptor.NewTypeInfo(c.SuperName, c.Interfaces...))
}

// Lookup returns the ancestry of a type.
func (m *Map) Lookup(name string) (descriptor.TypeHierarchyInfo, bool) {
	info, ok := m.types[name]
	return info, ok
}

// Len returns the number of known types.
func (m *Map) Len() int { return len(m.types) }

// Names returns all known type names, sorted.
func (m *Map) Names() []string {
	names := make([]string, 0, len(m.types))
	for n := range m.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// wireEntry is the CBOR form of one map entry.
type wireEntry struct {
	Name       string   `cbor:"1,keyasint"`
	Super      string   `cbor:"2,keyasint,omitempty"`
	Interfaces []string `cbor:"3,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// Encode serializes the map as canonical CBOR.
func (m *Map) Encode() ([]byte, error) {
	entries := make([]wireEntry, 0, len(m.types))
	for _, name := range m.Names() {
		info := m.types[name]
		super, _ := info.SuperName()
		entries = append(entries, wireEntry{Name: name, Super: super, Interfaces: info.Interfaces()})
	}
	return encMode.Marshal(entries)
}

// DecodeMap parses a map produced by Encode.
func DecodeMap(data []byte) (*Map, error) {
	var entries []wireEntry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(errors.PhaseCodec, errors.KindInvalidData, err, "decode hierarchy map")
	}
	m := NewMap()
	for _, e := range entries {
		if err := m.Add(e.Name, descriptor.NewTypeInfo(e.Super, e.Interfaces...)); err != nil {
			return nil, err
		}
	}
	return m, nil
}
