package slots

import (
	"fmt"

	"github.com/wippyai/continuum"
	"github.com/wippyai/continuum/bytecode"
	"github.com/wippyai/continuum/instrument/internal/analysis"
)

// Bucket is a typed storage array.
type Bucket uint8

const (
	Ints Bucket = iota
	Longs
	Floats
	Doubles
	Objects
	NumBuckets
)

// None marks a value that is not stored, such as a known null.
const None Bucket = 0xFF

var bucketNames = [...]string{"ints", "longs", "floats", "doubles", "objects"}

func (b Bucket) String() string {
	if b < NumBuckets {
		return bucketNames[b]
	}
	if b == None {
		return "none"
	}
	return fmt.Sprintf("bucket(%d)", b)
}

// BucketOf returns the bucket a value is saved into.
func BucketOf(v analysis.Value) Bucket {
	switch v.Kind {
	case analysis.KindInt:
		return Ints
	case analysis.KindLong:
		return Longs
	case analysis.KindFloat:
		return Floats
	case analysis.KindDouble:
		return Doubles
	case analysis.KindReference:
		return Objects
	}
	return None
}

// StorageRole returns the role of the array slot backing b.
func (b Bucket) StorageRole() Role { return RoleInts + Role(b) }

// TempRole returns the role of the stack spill temporary for b.
func (b Bucket) TempRole() Role { return RoleTempInt + Role(b) }

// ArrayType returns the array type of b.
func (b Bucket) ArrayType() bytecode.Type { return b.StorageRole().Type() }

// ElemType returns the element type of b.
func (b Bucket) ElemType() bytecode.Type { return b.TempRole().Type() }

// DataIndex returns the position of b in the MethodState data container.
func (b Bucket) DataIndex() int {
	return [...]int{
		continuum.DataInts,
		continuum.DataLongs,
		continuum.DataFloats,
		continuum.DataDoubles,
		continuum.DataObjects,
	}[b]
}

// StorageSizes holds, per bucket, the array length a method needs.
type StorageSizes [NumBuckets]int

// Used reports whether bucket b holds anything.
func (s StorageSizes) Used(b Bucket) bool { return s[b] > 0 }

// Total returns the sum over all buckets.
func (s StorageSizes) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Max returns the per-bucket maximum of s and o.
func (s StorageSizes) Max(o StorageSizes) StorageSizes {
	for b := range s {
		if o[b] > s[b] {
			s[b] = o[b]
		}
	}
	return s
}

func (s StorageSizes) String() string {
	return fmt.Sprintf("I=%d J=%d F=%d D=%d L=%d", s[Ints], s[Longs], s[Floats], s[Doubles], s[Objects])
}
