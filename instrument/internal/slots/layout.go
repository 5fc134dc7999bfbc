package slots

import (
	"github.com/wippyai/continuum/instrument/internal/analysis"
)

// Entry is where one live value is kept while a frame is suspended.
type Entry struct {
	Value analysis.Value
	// Local is the local slot, or -1 for an operand stack entry.
	Local  int
	Bucket Bucket
	// Index is the position inside the bucket array, or -1 when Bucket is None.
	Index int
}

// Stored reports whether the entry occupies a storage array element.
func (e Entry) Stored() bool { return e.Bucket != None }

// Layout maps a frame onto the storage arrays. Locals come first in slot
// order, then the operand stack from bottom to top; each bucket is
// numbered independently.
type Layout struct {
	Locals []Entry
	Stack  []Entry
	Sizes  StorageSizes
}

// NewLayout lays out f, leaving out local skip (the continuation argument,
// which the caller passes again on resume).
func NewLayout(f *analysis.Frame, skip int) *Layout {
	l := &Layout{}
	add := func(v analysis.Value, local int) Entry {
		e := Entry{Value: v, Local: local, Bucket: BucketOf(v), Index: -1}
		if e.Bucket != None {
			e.Index = l.Sizes[e.Bucket]
			l.Sizes[e.Bucket]++
		}
		return e
	}
	for i, v := range f.Locals {
		if i == skip {
			continue
		}
		switch v.Kind {
		case analysis.KindTop, analysis.KindUninitialized, analysis.KindReturnAddress:
			continue
		}
		l.Locals = append(l.Locals, add(v, i))
	}
	for _, v := range f.Stack {
		l.Stack = append(l.Stack, add(v, -1))
	}
	return l
}
