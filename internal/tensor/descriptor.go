package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"
)

// Descriptor describes a constant tensor: shape, element type and content.
//
// Content is held as little-endian packed bytes (or a list of byte strings for String tensors).
// A descriptor with a dynamic dimension or an unknown rank carries no content.
// Descriptors are immutable: every accessor returns a copy.
type Descriptor struct {
	shape       Shape
	unknownRank bool
	dtype       DataType
	data        []byte
	strs        [][]byte
	hasContent  bool
}

// Numeric is the set of Go types accepted by FromValues.
type Numeric interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// NewUnknownRank returns a descriptor whose rank is not known.
func NewUnknownRank(dtype DataType) *Descriptor {
	return &Descriptor{dtype: dtype, unknownRank: true}
}

// NewLazy returns a descriptor with the given shape and no content.
func NewLazy(shape Shape, dtype DataType) *Descriptor {
	return &Descriptor{shape: shape.Clone(), dtype: dtype}
}

// FromBytes builds a descriptor from a packed little-endian buffer.
// The buffer length must equal NumElements * dtype.Size().
// When the shape is dynamic the buffer is ignored and the descriptor has no content.
func FromBytes(shape Shape, dtype DataType, buf []byte) (*Descriptor, error) {
	if err := checkType(dtype); err != nil {
		return nil, err
	}
	if dtype == String {
		return nil, fmt.Errorf("string tensors have no packed encoding")
	}
	n, err := elementCount(shape, dtype, int64(len(buf)), "bytes")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return NewLazy(shape, dtype), nil
	}
	want := n * int64(dtype.Size())
	if int64(len(buf)) != want {
		return nil, &ShapeContentMismatchError{Shape: shape.Clone(), DType: dtype, Want: want, Got: int64(len(buf)), Unit: "bytes"}
	}
	data := make([]byte, len(buf))
	copy(data, buf)
	return &Descriptor{shape: shape.Clone(), dtype: dtype, data: data, hasContent: true}, nil
}

// FromValues builds a descriptor from a list of values converted to dtype.
//
// The list may be shorter than the element count: the last value is then repeated to fill the
// remaining elements in row-major order (compact-fill encoding). An empty list for a non-empty
// tensor, or a list longer than the element count, is a ShapeContentMismatchError.
// Float16 and BFloat16 targets convert numerically; use FromHalfBits for raw bit patterns.
func FromValues[T Numeric](shape Shape, dtype DataType, vals []T) (*Descriptor, error) {
	if err := checkType(dtype); err != nil {
		return nil, err
	}
	if dtype == Bool || dtype == String {
		return nil, fmt.Errorf("cannot build %s tensor from numeric values", dtype)
	}
	n, err := sizedCount(shape, dtype, len(vals))
	if err != nil || n < 0 {
		return lazyOrErr(shape, dtype, err)
	}
	size := int64(dtype.Size())
	data := make([]byte, n*size)
	last := int64(len(vals) - 1)
	for i := int64(0); i < n; i++ {
		putNumeric(data[i*size:], dtype, vals[min(i, last)])
	}
	return &Descriptor{shape: shape.Clone(), dtype: dtype, data: data, hasContent: true}, nil
}

// FromHalfBits builds a Float16 or BFloat16 descriptor from raw 16-bit patterns, with compact fill.
func FromHalfBits(shape Shape, dtype DataType, bits []uint16) (*Descriptor, error) {
	if dtype != Float16 && dtype != BFloat16 {
		return nil, fmt.Errorf("half bits require float16 or bfloat16, got %s", dtype)
	}
	n, err := sizedCount(shape, dtype, len(bits))
	if err != nil || n < 0 {
		return lazyOrErr(shape, dtype, err)
	}
	data := make([]byte, 2*n)
	last := int64(len(bits) - 1)
	for i := int64(0); i < n; i++ {
		binary.LittleEndian.PutUint16(data[2*i:], bits[min(i, last)])
	}
	return &Descriptor{shape: shape.Clone(), dtype: dtype, data: data, hasContent: true}, nil
}

// FromBools builds a Bool descriptor, with compact fill.
func FromBools(shape Shape, vals []bool) (*Descriptor, error) {
	n, err := sizedCount(shape, Bool, len(vals))
	if err != nil || n < 0 {
		return lazyOrErr(shape, Bool, err)
	}
	data := make([]byte, n)
	last := int64(len(vals) - 1)
	for i := int64(0); i < n; i++ {
		if vals[min(i, last)] {
			data[i] = 1
		}
	}
	return &Descriptor{shape: shape.Clone(), dtype: Bool, data: data, hasContent: true}, nil
}

// FromStrings builds a String descriptor, with compact fill.
func FromStrings(shape Shape, vals [][]byte) (*Descriptor, error) {
	n, err := sizedCount(shape, String, len(vals))
	if err != nil || n < 0 {
		return lazyOrErr(shape, String, err)
	}
	strs := make([][]byte, n)
	last := int64(len(vals) - 1)
	for i := int64(0); i < n; i++ {
		strs[i] = append([]byte(nil), vals[min(i, last)]...)
	}
	return &Descriptor{shape: shape.Clone(), dtype: String, strs: strs, hasContent: true}, nil
}

// sizedCount validates a value list of length got against shape and returns the element count.
// It returns -1 for a dynamic shape.
func sizedCount(shape Shape, dtype DataType, got int) (int64, error) {
	n, err := elementCount(shape, dtype, int64(got), "values")
	if err != nil || n < 0 {
		return n, err
	}
	return n, checkFill(shape, dtype, n, got)
}

func lazyOrErr(shape Shape, dtype DataType, err error) (*Descriptor, error) {
	if err != nil {
		return nil, err
	}
	return NewLazy(shape, dtype), nil
}

func checkType(dtype DataType) error {
	if !dtype.IsValid() {
		return &UnsupportedTypeError{Tag: int32(dtype)} //nolint:gosec // G115: enum fits in int32.
	}
	return nil
}

//nolint:gocyclo,cyclop // One case per element type.
func putNumeric[T Numeric](b []byte, dtype DataType, v T) {
	switch dtype {
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
	case Float16:
		binary.LittleEndian.PutUint16(b, float16.Fromfloat32(float32(v)).Bits())
	case BFloat16:
		binary.LittleEndian.PutUint16(b, bfloat16FromFloat32(float32(v)))
	case Int8:
		b[0] = byte(int8(v))
	case Uint8:
		b[0] = uint8(v)
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v))) //nolint:gosec // G115: two's complement.
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v))) //nolint:gosec // G115: two's complement.
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v))) //nolint:gosec // G115: two's complement.
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

// bfloat16FromFloat32 truncates to the upper 16 bits with round-to-nearest-even.
func bfloat16FromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	if math.IsNaN(float64(f)) {
		return uint16(bits>>16) | 0x40
	}
	bits += 0x7fff + (bits>>16)&1
	return uint16(bits >> 16)
}

func bfloat16ToFloat32(b uint16) float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// Shape returns a copy of the shape. It is nil for unknown-rank descriptors.
func (d *Descriptor) Shape() Shape {
	return d.shape.Clone()
}

// DType returns the element type.
func (d *Descriptor) DType() DataType {
	return d.dtype
}

// UnknownRank reports whether the rank is unknown.
func (d *Descriptor) UnknownRank() bool {
	return d.unknownRank
}

// HasContent reports whether the tensor values are materialized.
func (d *Descriptor) HasContent() bool {
	return d.hasContent
}

// NumElements returns the element count, or -1 when the shape is dynamic or the rank unknown.
func (d *Descriptor) NumElements() int64 {
	if d.unknownRank {
		return -1
	}
	return d.shape.NumElements()
}

// ByteSize returns the size of the packed content in bytes.
func (d *Descriptor) ByteSize() int {
	if d.dtype == String {
		n := 0
		for _, s := range d.strs {
			n += len(s)
		}
		return n
	}
	return len(d.data)
}

// Bytes returns a copy of the packed little-endian content, or nil when there is none.
func (d *Descriptor) Bytes() []byte {
	if d.data == nil {
		return nil
	}
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}

func (d *Descriptor) require(dtypes ...DataType) error {
	if !d.hasContent {
		return fmt.Errorf("tensor %s %v has no content", d.dtype, d.shape)
	}
	for _, dt := range dtypes {
		if d.dtype == dt {
			return nil
		}
	}
	return fmt.Errorf("tensor is %s, not %v", d.dtype, dtypes)
}

// Float32s decodes the content as float32. Float16 and BFloat16 are widened.
func (d *Descriptor) Float32s() ([]float32, error) {
	if err := d.require(Float32, Float16, BFloat16); err != nil {
		return nil, err
	}
	switch d.dtype {
	case Float16:
		out := make([]float32, len(d.data)/2)
		for i := range out {
			out[i] = float16.Frombits(binary.LittleEndian.Uint16(d.data[2*i:])).Float32()
		}
		return out, nil
	case BFloat16:
		out := make([]float32, len(d.data)/2)
		for i := range out {
			out[i] = bfloat16ToFloat32(binary.LittleEndian.Uint16(d.data[2*i:]))
		}
		return out, nil
	default:
		out := make([]float32, len(d.data)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.data[4*i:]))
		}
		return out, nil
	}
}

// Float16s decodes Float16 content.
func (d *Descriptor) Float16s() ([]float16.Float16, error) {
	if err := d.require(Float16); err != nil {
		return nil, err
	}
	out := make([]float16.Float16, len(d.data)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(d.data[2*i:]))
	}
	return out, nil
}

// Float64s decodes Float64 content.
func (d *Descriptor) Float64s() ([]float64, error) {
	if err := d.require(Float64); err != nil {
		return nil, err
	}
	out := make([]float64, len(d.data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(d.data[8*i:]))
	}
	return out, nil
}

// Int64s decodes any signed or unsigned integer content, widened to int64.
func (d *Descriptor) Int64s() ([]int64, error) {
	if err := d.require(Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64); err != nil {
		return nil, err
	}
	size := d.dtype.Size()
	out := make([]int64, len(d.data)/size)
	for i := range out {
		b := d.data[i*size:]
		switch d.dtype {
		case Int8:
			out[i] = int64(int8(b[0]))
		case Uint8:
			out[i] = int64(b[0])
		case Int16:
			out[i] = int64(int16(binary.LittleEndian.Uint16(b))) //nolint:gosec // G115: two's complement.
		case Uint16:
			out[i] = int64(binary.LittleEndian.Uint16(b))
		case Int32:
			out[i] = int64(int32(binary.LittleEndian.Uint32(b))) //nolint:gosec // G115: two's complement.
		case Uint32:
			out[i] = int64(binary.LittleEndian.Uint32(b))
		default:
			out[i] = int64(binary.LittleEndian.Uint64(b)) //nolint:gosec // G115: uint64 reinterpreted.
		}
	}
	return out, nil
}

// Int32s decodes Int32 content.
func (d *Descriptor) Int32s() ([]int32, error) {
	if err := d.require(Int32); err != nil {
		return nil, err
	}
	out := make([]int32, len(d.data)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(d.data[4*i:])) //nolint:gosec // G115: two's complement.
	}
	return out, nil
}

// Uint64s decodes Uint64 content.
func (d *Descriptor) Uint64s() ([]uint64, error) {
	if err := d.require(Uint64); err != nil {
		return nil, err
	}
	out := make([]uint64, len(d.data)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(d.data[8*i:])
	}
	return out, nil
}

// Bools decodes Bool content.
func (d *Descriptor) Bools() ([]bool, error) {
	if err := d.require(Bool); err != nil {
		return nil, err
	}
	out := make([]bool, len(d.data))
	for i, b := range d.data {
		out[i] = b != 0
	}
	return out, nil
}

// Strings returns a copy of String content.
func (d *Descriptor) Strings() ([][]byte, error) {
	if err := d.require(String); err != nil {
		return nil, err
	}
	out := make([][]byte, len(d.strs))
	for i, s := range d.strs {
		out[i] = append([]byte(nil), s...)
	}
	return out, nil
}

// Values returns the decoded content as a typed slice, or nil when there is none.
// Integers are widened to int64 (uint64 stays uint64), half types to float32.
func (d *Descriptor) Values() any {
	if !d.hasContent {
		return nil
	}
	var (
		v   any
		err error
	)
	switch d.dtype {
	case Float32, Float16, BFloat16:
		v, err = d.Float32s()
	case Float64:
		v, err = d.Float64s()
	case Uint64:
		v, err = d.Uint64s()
	case Bool:
		v, err = d.Bools()
	case String:
		strs, _ := d.Strings()
		out := make([]string, len(strs))
		for i, s := range strs {
			out[i] = string(s)
		}
		return out
	default:
		v, err = d.Int64s()
	}
	if err != nil {
		return nil
	}
	return v
}

// String returns a short summary such as "float32[2 3]".
func (d *Descriptor) String() string {
	if d.unknownRank {
		return d.dtype.String() + "[*]"
	}
	return d.dtype.String() + d.shape.String()
}

// maxDumpValues caps the number of values included by MarshalYAML.
const maxDumpValues = 16

// MarshalYAML renders the descriptor for IR dumps; large payloads are summarized by size.
func (d *Descriptor) MarshalYAML() (any, error) {
	out := map[string]any{"dtype": d.dtype.String()}
	if d.unknownRank {
		out["shape"] = "unknown"
	} else {
		out["shape"] = []int64(d.shape.Clone())
	}
	if !d.hasContent {
		return out, nil
	}
	if d.NumElements() <= maxDumpValues {
		out["values"] = d.Values()
	} else {
		out["bytes"] = d.ByteSize()
	}
	return out, nil
}
