package tfgraph

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ParseFile parses a binary GraphDef from file.
//
//nolint:gosec // G304: Path is provided by user, reading the graph file is intentional.
func ParseFile(path string) (*GraphDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read graph file %q", path)
	}
	return Parse(data)
}

// Parse parses a binary GraphDef.
func Parse(data []byte) (*GraphDef, error) {
	g := &GraphDef{}
	if err := readGraphDef(data, g); err != nil {
		return nil, errors.WithMessage(err, "failed to parse GraphDef")
	}
	return g, nil
}

// fieldFunc decodes one field value from b and returns the bytes consumed.
// Returning 0 leaves the field to be skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// readFields walks every field of a message.
func readFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(protowire.ParseError(n), "bad field tag")
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return errors.WithMessagef(err, "field %d", num)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return errors.Wrapf(protowire.ParseError(m), "field %d", num)
		}
		b = b[m:]
	}
	return nil
}

func wireMismatch(typ, want protowire.Type) error {
	return errors.Errorf("wire type %d, want %d", typ, want)
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, wireMismatch(typ, protowire.BytesType)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, wireMismatch(typ, protowire.VarintType)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeFixed32(typ protowire.Type, b []byte) (uint32, int, error) {
	if typ != protowire.Fixed32Type {
		return 0, 0, wireMismatch(typ, protowire.Fixed32Type)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

// consumeRepeatedVarint reads one element, or a packed run of elements.
func consumeRepeatedVarint(typ protowire.Type, b []byte, add func(uint64)) (int, error) {
	if typ == protowire.VarintType {
		v, n, err := consumeVarint(typ, b)
		if err != nil {
			return 0, err
		}
		add(v)
		return n, nil
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeVarint(packed)
		if m < 0 {
			return 0, protowire.ParseError(m)
		}
		add(v)
		packed = packed[m:]
	}
	return n, nil
}

func consumeRepeatedFixed32(typ protowire.Type, b []byte, add func(uint32)) (int, error) {
	if typ == protowire.Fixed32Type {
		v, n, err := consumeFixed32(typ, b)
		if err != nil {
			return 0, err
		}
		add(v)
		return n, nil
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed32(packed)
		if m < 0 {
			return 0, protowire.ParseError(m)
		}
		add(v)
		packed = packed[m:]
	}
	return n, nil
}

func consumeRepeatedFixed64(typ protowire.Type, b []byte, add func(uint64)) (int, error) {
	if typ == protowire.Fixed64Type {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		add(v)
		return n, nil
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed64(packed)
		if m < 0 {
			return 0, protowire.ParseError(m)
		}
		add(v)
		packed = packed[m:]
	}
	return n, nil
}

// consumeMessage reads a length-delimited sub-message with read.
func consumeMessage(typ protowire.Type, b []byte, read func([]byte) error) (int, error) {
	data, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	return n, read(data)
}

// readGraphDef reads GraphDef message.
func readGraphDef(data []byte, g *GraphDef) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // node
			return consumeMessage(typ, b, func(sub []byte) error {
				node := NodeDef{}
				if err := readNodeDef(sub, &node); err != nil {
					return errors.WithMessagef(err, "node #%d", len(g.Nodes))
				}
				g.Nodes = append(g.Nodes, node)
				return nil
			})
		case 4: // versions
			return consumeMessage(typ, b, func(sub []byte) error {
				return readVersionDef(sub, &g.Versions)
			})
		default: // library (2), deprecated version (3)
			return 0, nil
		}
	})
}

// readVersionDef reads VersionDef message.
func readVersionDef(data []byte, v *VersionDef) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // producer
			x, n, err := consumeVarint(typ, b)
			v.Producer = int32(x) //nolint:gosec // G115: int32 proto field.
			return n, err
		case 2: // min_consumer
			x, n, err := consumeVarint(typ, b)
			v.MinConsumer = int32(x) //nolint:gosec // G115: int32 proto field.
			return n, err
		default:
			return 0, nil
		}
	})
}

// readNodeDef reads NodeDef message.
func readNodeDef(data []byte, m *NodeDef) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // name
			v, n, err := consumeBytes(typ, b)
			m.Name = string(v)
			return n, err
		case 2: // op
			v, n, err := consumeBytes(typ, b)
			m.Op = string(v)
			return n, err
		case 3: // input
			v, n, err := consumeBytes(typ, b)
			if err == nil {
				m.Inputs = append(m.Inputs, string(v))
			}
			return n, err
		case 4: // device
			v, n, err := consumeBytes(typ, b)
			m.Device = string(v)
			return n, err
		case 5: // attr (map entry)
			return consumeMessage(typ, b, func(sub []byte) error {
				key, value, err := readAttrEntry(sub)
				if err != nil {
					return errors.WithMessagef(err, "node %q", m.Name)
				}
				if m.Attrs == nil {
					m.Attrs = make(map[string]*AttrValue)
				}
				m.Attrs[key] = value
				return nil
			})
		default:
			return 0, nil
		}
	})
}

// readAttrEntry reads one map<string, AttrValue> entry.
func readAttrEntry(data []byte) (string, *AttrValue, error) {
	var key string
	value := &AttrValue{}
	err := readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(typ, b)
			key = string(v)
			return n, err
		case 2:
			return consumeMessage(typ, b, func(sub []byte) error {
				return readAttrValue(sub, value)
			})
		default:
			return 0, nil
		}
	})
	if err != nil {
		return "", nil, errors.WithMessagef(err, "attr %q", key)
	}
	return key, value, nil
}

// readAttrValue reads AttrValue message.
//
//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic.
func readAttrValue(data []byte, m *AttrValue) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // list
			m.Kind = AttrList
			m.List = &ListValue{}
			return consumeMessage(typ, b, func(sub []byte) error {
				return readListValue(sub, m.List)
			})
		case 2: // s
			m.Kind = AttrString
			v, n, err := consumeBytes(typ, b)
			m.S = append([]byte(nil), v...)
			return n, err
		case 3: // i
			m.Kind = AttrInt
			v, n, err := consumeVarint(typ, b)
			m.I = int64(v) //nolint:gosec // G115: int64 proto field.
			return n, err
		case 4: // f
			m.Kind = AttrFloat
			v, n, err := consumeFixed32(typ, b)
			m.F = math.Float32frombits(v)
			return n, err
		case 5: // b
			m.Kind = AttrBool
			v, n, err := consumeVarint(typ, b)
			m.B = protowire.DecodeBool(v)
			return n, err
		case 6: // type
			m.Kind = AttrType
			v, n, err := consumeVarint(typ, b)
			m.Type = int32(v) //nolint:gosec // G115: enum value.
			return n, err
		case 7: // shape
			m.Kind = AttrShape
			m.Shape = &TensorShapeProto{}
			return consumeMessage(typ, b, func(sub []byte) error {
				return readTensorShape(sub, m.Shape)
			})
		case 8: // tensor
			m.Kind = AttrTensor
			m.Tensor = &TensorProto{}
			return consumeMessage(typ, b, func(sub []byte) error {
				return readTensorProto(sub, m.Tensor)
			})
		case 9: // placeholder
			m.Kind = AttrPlaceholder
			v, n, err := consumeBytes(typ, b)
			m.Placeholder = string(v)
			return n, err
		case 10: // func
			m.Kind = AttrFunc
			return consumeMessage(typ, b, func(sub []byte) error {
				name, err := readFuncName(sub)
				m.Func = name
				return err
			})
		default:
			return 0, nil
		}
	})
}

// readFuncName reads the name of a NameAttrList message; its attrs are not retained.
func readFuncName(data []byte) (string, error) {
	var name string
	err := readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		v, n, err := consumeBytes(typ, b)
		name = string(v)
		return n, err
	})
	return name, err
}

// readListValue reads AttrValue.ListValue message.
//
//nolint:gocognit,gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic.
func readListValue(data []byte, m *ListValue) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 2: // s
			v, n, err := consumeBytes(typ, b)
			if err == nil {
				m.S = append(m.S, append([]byte(nil), v...))
			}
			return n, err
		case 3: // i
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.I = append(m.I, int64(v)) //nolint:gosec // G115: int64 proto field.
			})
		case 4: // f
			return consumeRepeatedFixed32(typ, b, func(v uint32) {
				m.F = append(m.F, math.Float32frombits(v))
			})
		case 5: // b
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.B = append(m.B, protowire.DecodeBool(v))
			})
		case 6: // type
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.Type = append(m.Type, int32(v)) //nolint:gosec // G115: enum value.
			})
		case 7: // shape
			return consumeMessage(typ, b, func(sub []byte) error {
				s := &TensorShapeProto{}
				if err := readTensorShape(sub, s); err != nil {
					return err
				}
				m.Shape = append(m.Shape, s)
				return nil
			})
		case 8: // tensor
			return consumeMessage(typ, b, func(sub []byte) error {
				t := &TensorProto{}
				if err := readTensorProto(sub, t); err != nil {
					return err
				}
				m.Tensor = append(m.Tensor, t)
				return nil
			})
		case 9: // func
			return consumeMessage(typ, b, func(sub []byte) error {
				name, err := readFuncName(sub)
				m.Func = append(m.Func, name)
				return err
			})
		default:
			return 0, nil
		}
	})
}

// readTensorProto reads TensorProto message.
//
//nolint:gocognit,gocyclo,cyclop,funlen // Protobuf parsing requires field-by-field switch logic.
func readTensorProto(data []byte, m *TensorProto) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // dtype
			v, n, err := consumeVarint(typ, b)
			m.DType = int32(v) //nolint:gosec // G115: enum value.
			return n, err
		case 2: // tensor_shape
			m.Shape = &TensorShapeProto{}
			return consumeMessage(typ, b, func(sub []byte) error {
				return readTensorShape(sub, m.Shape)
			})
		case 3: // version_number
			v, n, err := consumeVarint(typ, b)
			m.VersionNumber = int32(v) //nolint:gosec // G115: int32 proto field.
			return n, err
		case 4: // tensor_content
			v, n, err := consumeBytes(typ, b)
			m.TensorContent = append([]byte(nil), v...)
			return n, err
		case 5: // float_val
			return consumeRepeatedFixed32(typ, b, func(v uint32) {
				m.FloatVal = append(m.FloatVal, math.Float32frombits(v))
			})
		case 6: // double_val
			return consumeRepeatedFixed64(typ, b, func(v uint64) {
				m.DoubleVal = append(m.DoubleVal, math.Float64frombits(v))
			})
		case 7: // int_val
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.IntVal = append(m.IntVal, int32(v)) //nolint:gosec // G115: int32 proto field.
			})
		case 8: // string_val
			v, n, err := consumeBytes(typ, b)
			if err == nil {
				m.StringVal = append(m.StringVal, append([]byte(nil), v...))
			}
			return n, err
		case 10: // int64_val
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.Int64Val = append(m.Int64Val, int64(v)) //nolint:gosec // G115: int64 proto field.
			})
		case 11: // bool_val
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.BoolVal = append(m.BoolVal, protowire.DecodeBool(v))
			})
		case 13: // half_val
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.HalfVal = append(m.HalfVal, int32(v)) //nolint:gosec // G115: int32 proto field.
			})
		case 16: // uint32_val
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.Uint32Val = append(m.Uint32Val, uint32(v)) //nolint:gosec // G115: uint32 proto field.
			})
		case 17: // uint64_val
			return consumeRepeatedVarint(typ, b, func(v uint64) {
				m.Uint64Val = append(m.Uint64Val, v)
			})
		default: // scomplex_val, dcomplex_val, resource and variant handles
			return 0, nil
		}
	})
}

// readTensorShape reads TensorShapeProto message.
func readTensorShape(data []byte, m *TensorShapeProto) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 2: // dim
			return consumeMessage(typ, b, func(sub []byte) error {
				dim := Dim{}
				if err := readDim(sub, &dim); err != nil {
					return err
				}
				m.Dims = append(m.Dims, dim)
				return nil
			})
		case 3: // unknown_rank
			v, n, err := consumeVarint(typ, b)
			m.UnknownRank = protowire.DecodeBool(v)
			return n, err
		default:
			return 0, nil
		}
	})
}

// readDim reads TensorShapeProto.Dim message.
func readDim(data []byte, m *Dim) error {
	return readFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1: // size
			v, n, err := consumeVarint(typ, b)
			m.Size = int64(v) //nolint:gosec // G115: int64 proto field, -1 for unknown.
			return n, err
		case 2: // name
			v, n, err := consumeBytes(typ, b)
			m.Name = string(v)
			return n, err
		default:
			return 0, nil
		}
	})
}
