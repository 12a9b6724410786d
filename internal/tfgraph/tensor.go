package tfgraph

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/graphir/internal/tensor"
)

// DecodeShape converts a TensorShapeProto. Negative sizes become tensor.DynamicDim.
// unknown_rank reports unknownRank. A nil proto is the default message, which encodes a scalar,
// so it yields an empty, non-nil shape like an explicit rank-0 proto.
func DecodeShape(s *TensorShapeProto) (shape tensor.Shape, unknownRank bool) {
	if s == nil {
		return tensor.Shape{}, false
	}
	if s.UnknownRank {
		return nil, true
	}
	shape = make(tensor.Shape, len(s.Dims))
	for i, d := range s.Dims {
		if d.Size < 0 {
			shape[i] = tensor.DynamicDim
			continue
		}
		shape[i] = d.Size
	}
	return shape, false
}

// DecodeTensor converts a TensorProto payload into a tensor descriptor.
//
// Packed tensor_content must match the shape exactly. Typed value lists may use the compact-fill
// encoding, where the last value is repeated up to the element count. Dynamic shapes and unknown
// ranks produce descriptors without content.
//
//nolint:gocyclo,cyclop // One case per typed value list.
func DecodeTensor(pb *TensorProto) (*tensor.Descriptor, error) {
	if pb == nil {
		return nil, errors.New("nil tensor payload")
	}
	dtype, err := ToDataType(pb.DType)
	if err != nil {
		return nil, err
	}
	shape, unknownRank := DecodeShape(pb.Shape)
	if unknownRank {
		return tensor.NewUnknownRank(dtype), nil
	}
	if shape.IsDynamic() {
		return tensor.NewLazy(shape, dtype), nil
	}

	if len(pb.TensorContent) > 0 {
		if dtype == tensor.String {
			return nil, errors.New("packed DT_STRING content is not supported")
		}
		return tensor.FromBytes(shape, dtype, pb.TensorContent)
	}

	switch dtype {
	case tensor.Float32:
		return tensor.FromValues(shape, dtype, pb.FloatVal)
	case tensor.Float64:
		return tensor.FromValues(shape, dtype, pb.DoubleVal)
	case tensor.Int8, tensor.Int16, tensor.Int32, tensor.Uint8, tensor.Uint16:
		return tensor.FromValues(shape, dtype, pb.IntVal)
	case tensor.Int64:
		return tensor.FromValues(shape, dtype, pb.Int64Val)
	case tensor.Uint32:
		return tensor.FromValues(shape, dtype, pb.Uint32Val)
	case tensor.Uint64:
		return tensor.FromValues(shape, dtype, pb.Uint64Val)
	case tensor.Float16, tensor.BFloat16:
		bits := make([]uint16, len(pb.HalfVal))
		for i, v := range pb.HalfVal {
			bits[i] = uint16(v) //nolint:gosec // G115: half_val stores 16-bit patterns.
		}
		return tensor.FromHalfBits(shape, dtype, bits)
	case tensor.Bool:
		return tensor.FromBools(shape, pb.BoolVal)
	case tensor.String:
		return tensor.FromStrings(shape, pb.StringVal)
	default:
		return nil, &tensor.UnsupportedTypeError{Tag: pb.DType, Name: DataTypeName(pb.DType)}
	}
}

// DefaultMaxTensorBytes bounds the content a single constant may materialize.
const DefaultMaxTensorBytes int64 = 1 << 30

// MaterializedBytes returns how many bytes DecodeTensor would allocate for pb, without allocating.
// Payloads without content and element types DecodeTensor rejects report 0.
func MaterializedBytes(pb *TensorProto) (int64, error) {
	if pb == nil {
		return 0, nil
	}
	dtype, err := ToDataType(pb.DType)
	if err != nil {
		return 0, nil //nolint:nilerr // DecodeTensor reports the type error.
	}
	shape, unknownRank := DecodeShape(pb.Shape)
	if unknownRank {
		return 0, nil
	}
	return tensor.MaterializedSize(shape, dtype, pb.StringVal)
}

// CheckTensorSize fails with a *tensor.ContentTooLargeError when decoding pb would allocate more
// than limit bytes. A limit of zero or less disables the check.
func CheckTensorSize(pb *TensorProto, limit int64) error {
	if limit <= 0 || pb == nil {
		return nil
	}
	size, err := MaterializedBytes(pb)
	if err != nil {
		return err
	}
	if size > limit {
		shape, _ := DecodeShape(pb.Shape)
		dtype, _ := ToDataType(pb.DType)
		return &tensor.ContentTooLargeError{Shape: shape, DType: dtype, Bytes: size, Limit: limit}
	}
	return nil
}

// CheckNodeTensors applies CheckTensorSize to every tensor-valued attribute of node,
// including tensor lists, in attribute-name order.
func CheckNodeTensors(node *NodeDef, limit int64) error {
	if limit <= 0 || node == nil {
		return nil
	}
	names := make([]string, 0, len(node.Attrs))
	for name := range node.Attrs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v := node.Attrs[name]
		if v == nil {
			continue
		}
		if err := CheckTensorSize(v.Tensor, limit); err != nil {
			return errors.Wrapf(err, "attr %q", name)
		}
		if v.List == nil {
			continue
		}
		for i, pb := range v.List.Tensor {
			if err := CheckTensorSize(pb, limit); err != nil {
				return errors.Wrapf(err, "attr %q[%d]", name, i)
			}
		}
	}
	return nil
}
