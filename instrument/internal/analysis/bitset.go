package analysis

import "math/bits"

// BitSet is a set of instruction indices. The frame analyzer uses it as a
// worklist, always taking the lowest pending index next.
type BitSet struct {
	words []uint64
}

// NewBitSet creates a BitSet sized for indices below n.
func NewBitSet(n int) *BitSet {
	return &BitSet{words: make([]uint64, (n+63)/64)}
}

// Set adds i to the set.
func (b *BitSet) Set(i int) {
	w := i / 64
	if w >= len(b.words) {
		grown := make([]uint64, w+1)
		copy(grown, b.words)
		b.words = grown
	}
	b.words[w] |= 1 << (uint(i) % 64)
}

// Clear removes i from the set.
func (b *BitSet) Clear(i int) {
	if w := i / 64; w < len(b.words) {
		b.words[w] &^= 1 << (uint(i) % 64)
	}
}

// Has reports whether i is in the set.
func (b *BitSet) Has(i int) bool {
	w := i / 64
	if i < 0 || w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<(uint(i)%64)) != 0
}

// Pop removes and returns the lowest index in the set.
func (b *BitSet) Pop() (int, bool) {
	for w, word := range b.words {
		if word == 0 {
			continue
		}
		bit := bits.TrailingZeros64(word)
		b.words[w] &^= 1 << uint(bit)
		return w*64 + bit, true
	}
	return 0, false
}

// Count returns the number of indices in the set.
func (b *BitSet) Count() int {
	n := 0
	for _, word := range b.words {
		n += bits.OnesCount64(word)
	}
	return n
}

// Slice returns the indices in ascending order.
func (b *BitSet) Slice() []int {
	var out []int
	for w, word := range b.words {
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			out = append(out, w*64+bit)
			word &^= 1 << uint(bit)
		}
	}
	return out
}
