// Package tfgraphtest builds GraphDef fixtures for tests: in-memory nodes and their binary encoding.
package tfgraphtest

import (
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/graphir/internal/tfgraph"
)

// Node returns a NodeDef with the given op and inputs.
func Node(name, op string, inputs ...string) tfgraph.NodeDef {
	return tfgraph.NodeDef{Name: name, Op: op, Inputs: inputs, Attrs: map[string]*tfgraph.AttrValue{}}
}

// WithAttr returns node with one more attribute.
func WithAttr(node tfgraph.NodeDef, key string, value *tfgraph.AttrValue) tfgraph.NodeDef {
	if node.Attrs == nil {
		node.Attrs = map[string]*tfgraph.AttrValue{}
	}
	node.Attrs[key] = value
	return node
}

// Const returns a Const node holding t.
func Const(name string, t *tfgraph.TensorProto) tfgraph.NodeDef {
	node := Node(name, "Const")
	node = WithAttr(node, "dtype", TypeAttr(t.DType))
	return WithAttr(node, "value", &tfgraph.AttrValue{Kind: tfgraph.AttrTensor, Tensor: t})
}

// Shape returns a TensorShapeProto with the given dims (-1 for unknown).
func Shape(dims ...int64) *tfgraph.TensorShapeProto {
	s := &tfgraph.TensorShapeProto{Dims: make([]tfgraph.Dim, len(dims))}
	for i, d := range dims {
		s.Dims[i] = tfgraph.Dim{Size: d}
	}
	return s
}

// TypeAttr returns a "type" attribute.
func TypeAttr(dtype int32) *tfgraph.AttrValue {
	return &tfgraph.AttrValue{Kind: tfgraph.AttrType, Type: dtype}
}

// IntAttr returns an "i" attribute.
func IntAttr(v int64) *tfgraph.AttrValue {
	return &tfgraph.AttrValue{Kind: tfgraph.AttrInt, I: v}
}

// FloatAttr returns an "f" attribute.
func FloatAttr(v float32) *tfgraph.AttrValue {
	return &tfgraph.AttrValue{Kind: tfgraph.AttrFloat, F: v}
}

// BoolAttr returns a "b" attribute.
func BoolAttr(v bool) *tfgraph.AttrValue {
	return &tfgraph.AttrValue{Kind: tfgraph.AttrBool, B: v}
}

// StringAttr returns an "s" attribute.
func StringAttr(v string) *tfgraph.AttrValue {
	return &tfgraph.AttrValue{Kind: tfgraph.AttrString, S: []byte(v)}
}

// IntsAttr returns a list attribute of ints.
func IntsAttr(v ...int64) *tfgraph.AttrValue {
	return &tfgraph.AttrValue{Kind: tfgraph.AttrList, List: &tfgraph.ListValue{I: v}}
}

// ShapeAttr returns a "shape" attribute.
func ShapeAttr(s *tfgraph.TensorShapeProto) *tfgraph.AttrValue {
	return &tfgraph.AttrValue{Kind: tfgraph.AttrShape, Shape: s}
}

// Marshal encodes g in the binary GraphDef format.
func Marshal(g *tfgraph.GraphDef) []byte {
	var b []byte
	for i := range g.Nodes {
		b = appendMessage(b, 1, marshalNode(&g.Nodes[i]))
	}
	if g.Versions != (tfgraph.VersionDef{}) {
		var v []byte
		v = appendVarint(v, 1, uint64(g.Versions.Producer))    //nolint:gosec // G115: int32 field.
		v = appendVarint(v, 2, uint64(g.Versions.MinConsumer)) //nolint:gosec // G115: int32 field.
		b = appendMessage(b, 4, v)
	}
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	return appendMessage(b, num, []byte(s))
}

func marshalNode(n *tfgraph.NodeDef) []byte {
	var b []byte
	b = appendString(b, 1, n.Name)
	b = appendString(b, 2, n.Op)
	for _, in := range n.Inputs {
		b = appendString(b, 3, in)
	}
	if n.Device != "" {
		b = appendString(b, 4, n.Device)
	}
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var entry []byte
		entry = appendString(entry, 1, k)
		entry = appendMessage(entry, 2, marshalAttr(n.Attrs[k]))
		b = appendMessage(b, 5, entry)
	}
	return b
}

//nolint:gocyclo,cyclop // One case per attribute kind.
func marshalAttr(a *tfgraph.AttrValue) []byte {
	var b []byte
	switch a.Kind {
	case tfgraph.AttrList:
		b = appendMessage(b, 1, marshalList(a.List))
	case tfgraph.AttrString:
		b = appendMessage(b, 2, a.S)
	case tfgraph.AttrInt:
		b = appendVarint(b, 3, uint64(a.I)) //nolint:gosec // G115: two's complement varint.
	case tfgraph.AttrFloat:
		b = protowire.AppendTag(b, 4, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	case tfgraph.AttrBool:
		b = appendVarint(b, 5, protowire.EncodeBool(a.B))
	case tfgraph.AttrType:
		b = appendVarint(b, 6, uint64(a.Type)) //nolint:gosec // G115: enum value.
	case tfgraph.AttrShape:
		b = appendMessage(b, 7, marshalShape(a.Shape))
	case tfgraph.AttrTensor:
		b = appendMessage(b, 8, MarshalTensor(a.Tensor))
	case tfgraph.AttrPlaceholder:
		b = appendString(b, 9, a.Placeholder)
	case tfgraph.AttrFunc:
		b = appendMessage(b, 10, appendString(nil, 1, a.Func))
	}
	return b
}

func marshalList(l *tfgraph.ListValue) []byte {
	var b []byte
	for _, s := range l.S {
		b = appendMessage(b, 2, s)
	}
	if len(l.I) > 0 {
		var packed []byte
		for _, v := range l.I {
			packed = protowire.AppendVarint(packed, uint64(v)) //nolint:gosec // G115: two's complement varint.
		}
		b = appendMessage(b, 3, packed)
	}
	if len(l.F) > 0 {
		var packed []byte
		for _, v := range l.F {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = appendMessage(b, 4, packed)
	}
	for _, v := range l.B {
		b = appendVarint(b, 5, protowire.EncodeBool(v))
	}
	for _, v := range l.Type {
		b = appendVarint(b, 6, uint64(v)) //nolint:gosec // G115: enum value.
	}
	for _, s := range l.Shape {
		b = appendMessage(b, 7, marshalShape(s))
	}
	for _, t := range l.Tensor {
		b = appendMessage(b, 8, MarshalTensor(t))
	}
	for _, f := range l.Func {
		b = appendMessage(b, 9, appendString(nil, 1, f))
	}
	return b
}

func marshalShape(s *tfgraph.TensorShapeProto) []byte {
	var b []byte
	for _, d := range s.Dims {
		var dim []byte
		dim = appendVarint(dim, 1, uint64(d.Size)) //nolint:gosec // G115: -1 encodes as 10-byte varint.
		if d.Name != "" {
			dim = appendString(dim, 2, d.Name)
		}
		b = appendMessage(b, 2, dim)
	}
	if s.UnknownRank {
		b = appendVarint(b, 3, 1)
	}
	return b
}

// MarshalTensor encodes a TensorProto. Repeated numeric fields use the packed encoding.
//
//nolint:gocognit,gocyclo,cyclop // One block per typed value list.
func MarshalTensor(t *tfgraph.TensorProto) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(t.DType)) //nolint:gosec // G115: enum value.
	if t.Shape != nil {
		b = appendMessage(b, 2, marshalShape(t.Shape))
	}
	if len(t.TensorContent) > 0 {
		b = appendMessage(b, 4, t.TensorContent)
	}
	if len(t.FloatVal) > 0 {
		var packed []byte
		for _, v := range t.FloatVal {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = appendMessage(b, 5, packed)
	}
	if len(t.DoubleVal) > 0 {
		var packed []byte
		for _, v := range t.DoubleVal {
			packed = protowire.AppendFixed64(packed, math.Float64bits(v))
		}
		b = appendMessage(b, 6, packed)
	}
	if len(t.IntVal) > 0 {
		var packed []byte
		for _, v := range t.IntVal {
			packed = protowire.AppendVarint(packed, uint64(int64(v))) //nolint:gosec // G115: sign-extended.
		}
		b = appendMessage(b, 7, packed)
	}
	for _, s := range t.StringVal {
		b = appendMessage(b, 8, s)
	}
	if len(t.Int64Val) > 0 {
		var packed []byte
		for _, v := range t.Int64Val {
			packed = protowire.AppendVarint(packed, uint64(v)) //nolint:gosec // G115: two's complement varint.
		}
		b = appendMessage(b, 10, packed)
	}
	if len(t.BoolVal) > 0 {
		var packed []byte
		for _, v := range t.BoolVal {
			packed = protowire.AppendVarint(packed, protowire.EncodeBool(v))
		}
		b = appendMessage(b, 11, packed)
	}
	if len(t.HalfVal) > 0 {
		var packed []byte
		for _, v := range t.HalfVal {
			packed = protowire.AppendVarint(packed, uint64(v)) //nolint:gosec // G115: 16-bit pattern.
		}
		b = appendMessage(b, 13, packed)
	}
	if len(t.Uint32Val) > 0 {
		var packed []byte
		for _, v := range t.Uint32Val {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		b = appendMessage(b, 16, packed)
	}
	if len(t.Uint64Val) > 0 {
		var packed []byte
		for _, v := range t.Uint64Val {
			packed = protowire.AppendVarint(packed, v)
		}
		b = appendMessage(b, 17, packed)
	}
	return b
}
