// Package tensor provides the immutable tensor descriptor used for constant payloads in the IR.
package tensor

// DataType is the internal element type of a tensor.
type DataType int

// Supported data types.
const (
	Invalid DataType = iota
	Float32
	Float64
	Float16
	BFloat16
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Bool
	String
)

// Size returns the byte size of one element.
// String elements are variable length and report 0.
func (dt DataType) Size() int {
	switch dt {
	case Float64, Int64, Uint64:
		return 8
	case Float32, Int32, Uint32:
		return 4
	case Float16, BFloat16, Int16, Uint16:
		return 2
	case Int8, Uint8, Bool:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether dt names a supported element type.
func (dt DataType) IsValid() bool {
	return dt > Invalid && dt <= String
}

// IsFloat reports whether dt is a floating point type.
func (dt DataType) IsFloat() bool {
	switch dt {
	case Float32, Float64, Float16, BFloat16:
		return true
	default:
		return false
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Bool:
		return "bool"
	case String:
		return "string"
	default:
		return "invalid"
	}
}

// MarshalText encodes the data type by name.
func (dt DataType) MarshalText() ([]byte, error) {
	return []byte(dt.String()), nil
}
