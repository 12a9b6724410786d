package tensor

import "fmt"

// UnsupportedTypeError is returned when a source element-type tag has no internal DataType.
type UnsupportedTypeError struct {
	Tag  int32  // Source format tag
	Name string // Source format name, empty if the tag is unknown
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unsupported element type %s (tag %d)", e.Name, e.Tag)
	}
	return fmt.Sprintf("unsupported element type tag %d", e.Tag)
}

// ShapeContentMismatchError is returned when tensor content cannot be reconciled with its shape.
type ShapeContentMismatchError struct {
	Shape Shape
	DType DataType
	Want  int64  // Expected size in Unit, -1 when the shape's size overflows
	Got   int64  // Provided size in Unit
	Unit  string // "bytes" or "values"
}

// Error implements the error interface.
func (e *ShapeContentMismatchError) Error() string {
	if e.Want < 0 {
		return fmt.Sprintf("tensor %s %v: element count overflows int64", e.DType, e.Shape)
	}
	return fmt.Sprintf("tensor %s %v: content has %d %s, want %d",
		e.DType, e.Shape, e.Got, e.Unit, e.Want)
}

// ContentTooLargeError is returned when materializing a constant would exceed the configured limit.
type ContentTooLargeError struct {
	Shape Shape
	DType DataType
	Bytes int64 // Materialized size
	Limit int64
}

// Error implements the error interface.
func (e *ContentTooLargeError) Error() string {
	return fmt.Sprintf("tensor %s %v: content needs %d bytes, limit is %d", e.DType, e.Shape, e.Bytes, e.Limit)
}
