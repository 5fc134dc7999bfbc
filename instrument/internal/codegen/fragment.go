package codegen

import (
	"github.com/wippyai/continuum/bytecode"
)

// Fragment is a generated instruction sequence plus the exception ranges
// that refer to its labels.
type Fragment struct {
	Insns    *bytecode.InsnList
	TryCatch []bytecode.TryCatchBlock
}

// NewFragment wraps insns.
func NewFragment(insns *bytecode.InsnList) *Fragment {
	return &Fragment{Insns: insns}
}

// Consumed reports whether the fragment was already spliced somewhere.
func (f *Fragment) Consumed() bool { return f.Insns.Consumed() }

// Clone deep-copies the fragment. Labels placed inside it are replaced by
// fresh ones in both the instructions and the exception ranges; labels it
// only refers to are shared.
func (f *Fragment) Clone() *Fragment {
	lm := make(map[*bytecode.Label]*bytecode.Label)
	cp := &Fragment{Insns: f.Insns.Clone(lm)}
	remap := func(l *bytecode.Label) *bytecode.Label {
		if nl, ok := lm[l]; ok {
			return nl
		}
		return l
	}
	for _, tc := range f.TryCatch {
		cp.TryCatch = append(cp.TryCatch, bytecode.TryCatchBlock{
			Start:   remap(tc.Start),
			End:     remap(tc.End),
			Handler: remap(tc.Handler),
			Type:    tc.Type,
		})
	}
	return cp
}
