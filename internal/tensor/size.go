package tensor

import (
	"math"
	"math/bits"
)

// stringHeaderBytes approximates the per-element overhead of a String tensor.
const stringHeaderBytes = 24

// MaterializedSize returns the number of bytes a descriptor built from shape and dtype would hold.
// vals are the String values before compact fill and are ignored for other types.
// Dynamic shapes hold no content and report 0. Sizes beyond math.MaxInt64 saturate.
func MaterializedSize(shape Shape, dtype DataType, vals [][]byte) (int64, error) {
	n, ok := shape.ElementCount()
	if !ok {
		return 0, &ShapeContentMismatchError{Shape: shape.Clone(), DType: dtype, Want: -1, Unit: "values"}
	}
	if n <= 0 {
		return 0, nil
	}
	if dtype != String {
		return satMul(n, int64(dtype.Size())), nil
	}
	total := satMul(n, stringHeaderBytes)
	for i, v := range vals {
		if int64(i) >= n {
			break
		}
		total = satAdd(total, int64(len(v)))
	}
	if k := int64(len(vals)); k > 0 && k < n {
		total = satAdd(total, satMul(n-k, int64(len(vals[k-1]))))
	}
	return total, nil
}

// elementCount returns the element count of shape, or -1 when it is dynamic.
// A count whose in-memory size does not fit in an int is a ShapeContentMismatchError with Want -1.
func elementCount(shape Shape, dtype DataType, got int64, unit string) (int64, error) {
	n, ok := shape.ElementCount()
	size := int64(dtype.Size())
	if dtype == String {
		size = stringHeaderBytes
	}
	if ok && n > 0 && n > int64(math.MaxInt)/size {
		ok = false
	}
	if !ok {
		return 0, &ShapeContentMismatchError{Shape: shape.Clone(), DType: dtype, Want: -1, Got: got, Unit: unit}
	}
	return n, nil
}

// checkFill applies the compact-fill rule: got values fill n elements when 0 < got <= n.
func checkFill(shape Shape, dtype DataType, n int64, got int) error {
	g := int64(got)
	if g == n || (g > 0 && g < n) {
		return nil
	}
	return &ShapeContentMismatchError{Shape: shape.Clone(), DType: dtype, Want: n, Got: g, Unit: "values"}
}

func satMul(a, b int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b)) //nolint:gosec // G115: callers pass non-negative values.
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo) //nolint:gosec // G115: bounded above.
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
