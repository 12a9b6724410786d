package tensor

import (
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// DynamicDim marks a dimension whose size is not known until runtime.
const DynamicDim int64 = -1

// Shape represents the dimensions of a tensor.
// Shape cannot express an unknown rank; Descriptor tracks that separately.
type Shape []int64

// NumElements returns the total number of elements in the tensor.
// It returns -1 if any dimension is dynamic or the count does not fit in an int64.
func (s Shape) NumElements() int64 {
	n, ok := s.ElementCount()
	if !ok {
		return -1
	}
	return n
}

// ElementCount returns the number of elements, or -1 if any dimension is dynamic.
// ok is false when the product of the dimensions overflows int64.
func (s Shape) ElementCount() (n int64, ok bool) {
	if s.IsDynamic() {
		return -1, true
	}
	for _, dim := range s {
		if dim == 0 {
			return 0, true
		}
	}
	u := uint64(1) // Scalar has 1 element
	for _, dim := range s {
		hi, lo := bits.Mul64(u, uint64(dim))
		if hi != 0 || lo > math.MaxInt64 {
			return 0, false
		}
		u = lo
	}
	return int64(u), true //nolint:gosec // G115: bounded by MaxInt64 above.
}

// IsDynamic reports whether at least one dimension is unknown.
func (s Shape) IsDynamic() bool {
	for _, dim := range s {
		if dim < 0 {
			return true
		}
	}
	return false
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String formats the shape as "[2 3 ?]", with "?" for dynamic dimensions.
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		if dim < 0 {
			parts[i] = "?"
			continue
		}
		parts[i] = strconv.FormatInt(dim, 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
