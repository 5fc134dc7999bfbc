package bytecode

// InsnList is an editable, single-owner sequence of instructions.
//
// Inserting a list into another moves its instructions and marks the source
// consumed. A consumed list is empty; inserting it again panics, since a
// second insertion of the same fragment always indicates a missing Clone.
type InsnList struct {
	insns    []*Instruction
	consumed bool
}

// NewInsnList creates a list holding insns.
func NewInsnList(insns ...*Instruction) *InsnList {
	l := &InsnList{}
	l.insns = append(l.insns, insns...)
	return l
}

// Len returns the number of instructions, including pseudo instructions.
func (l *InsnList) Len() int { return len(l.insns) }

// At returns the instruction at index i.
func (l *InsnList) At(i int) *Instruction { return l.insns[i] }

// Slice returns a copy of the instruction pointers in order.
func (l *InsnList) Slice() []*Instruction {
	return append([]*Instruction(nil), l.insns...)
}

// Consumed reports whether the contents of l were moved into another list.
func (l *InsnList) Consumed() bool { return l.consumed }

// IndexOf returns the position of insn, or -1.
func (l *InsnList) IndexOf(insn *Instruction) int {
	for i, x := range l.insns {
		if x == insn {
			return i
		}
	}
	return -1
}

// Append adds instructions at the end.
func (l *InsnList) Append(insns ...*Instruction) {
	l.insns = append(l.insns, insns...)
}

// AppendList moves all instructions of src to the end of l.
func (l *InsnList) AppendList(src *InsnList) {
	l.insns = append(l.insns, l.take(src)...)
}

// InsertBefore moves all instructions of src in front of anchor.
func (l *InsnList) InsertBefore(anchor *Instruction, src *InsnList) {
	idx := l.mustIndex(anchor)
	l.splice(idx, 0, l.take(src))
}

// InsertAfter moves all instructions of src behind anchor.
func (l *InsnList) InsertAfter(anchor *Instruction, src *InsnList) {
	idx := l.mustIndex(anchor)
	l.splice(idx+1, 0, l.take(src))
}

// Prepend moves all instructions of src to the front of l.
func (l *InsnList) Prepend(src *InsnList) {
	l.splice(0, 0, l.take(src))
}

// Replace substitutes old with the instructions of src.
func (l *InsnList) Replace(old *Instruction, src *InsnList) {
	idx := l.mustIndex(old)
	l.splice(idx, 1, l.take(src))
}

// Remove deletes insn from the list.
func (l *InsnList) Remove(insn *Instruction) {
	idx := l.mustIndex(insn)
	l.splice(idx, 1, nil)
}

// Clone returns a deep copy of l. Labels placed inside l are replaced by
// fresh labels; the mapping is recorded in lm (which may be nil) so that
// callers can remap associated try/catch ranges. Labels referenced but not
// placed in l are kept unless lm already maps them.
func (l *InsnList) Clone(lm map[*Label]*Label) *InsnList {
	if l.consumed {
		panic("bytecode: clone of consumed instruction list")
	}
	if lm == nil {
		lm = make(map[*Label]*Label)
	}
	for _, insn := range l.insns {
		if lbl := insn.LabelOf(); lbl != nil {
			if _, ok := lm[lbl]; !ok {
				lm[lbl] = &Label{name: lbl.name}
			}
		}
	}
	out := &InsnList{insns: make([]*Instruction, len(l.insns))}
	for i, insn := range l.insns {
		out.insns[i] = insn.clone(lm)
	}
	return out
}

// Labels returns the position of every label placed in the list.
func (l *InsnList) Labels() map[*Label]int {
	m := make(map[*Label]int)
	for i, insn := range l.insns {
		if lbl := insn.LabelOf(); lbl != nil {
			m[lbl] = i
		}
	}
	return m
}

func (l *InsnList) take(src *InsnList) []*Instruction {
	if src == l {
		panic("bytecode: cannot insert an instruction list into itself")
	}
	if src.consumed {
		panic("bytecode: insertion of consumed instruction list")
	}
	moved := src.insns
	src.insns = nil
	src.consumed = true
	return moved
}

func (l *InsnList) mustIndex(insn *Instruction) int {
	idx := l.IndexOf(insn)
	if idx < 0 {
		panic("bytecode: anchor instruction not in list")
	}
	return idx
}

func (l *InsnList) splice(at, del int, add []*Instruction) {
	out := make([]*Instruction, 0, len(l.insns)-del+len(add))
	out = append(out, l.insns[:at]...)
	out = append(out, add...)
	out = append(out, l.insns[at+del:]...)
	l.insns = out
}
