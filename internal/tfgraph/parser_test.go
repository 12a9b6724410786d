package tfgraph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/born-ml/graphir/internal/tfgraph"
	"github.com/born-ml/graphir/internal/tfgraph/tfgraphtest"
)

func TestParseGraph(t *testing.T) {
	src := &tfgraph.GraphDef{
		Nodes: []tfgraph.NodeDef{
			tfgraphtest.Const("c", &tfgraph.TensorProto{
				DType:    tfgraph.DTFloat,
				Shape:    tfgraphtest.Shape(2),
				FloatVal: []float32{1.5, -2},
			}),
			tfgraphtest.WithAttr(tfgraphtest.Node("x", "Placeholder"), "shape", tfgraphtest.ShapeAttr(tfgraphtest.Shape(-1, 3))),
			tfgraphtest.Node("add", "AddV2", "c", "x:0", "^init"),
		},
		Versions: tfgraph.VersionDef{Producer: 27, MinConsumer: 12},
	}

	g, err := tfgraph.Parse(tfgraphtest.Marshal(src))
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	assert.Equal(t, int32(27), g.Versions.Producer)
	assert.Equal(t, int32(12), g.Versions.MinConsumer)

	c := g.Nodes[0]
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, "Const", c.Op)
	require.Contains(t, c.Attrs, "value")
	value := c.Attrs["value"]
	assert.Equal(t, tfgraph.AttrTensor, value.Kind)
	assert.Equal(t, []float32{1.5, -2}, value.Tensor.FloatVal)
	assert.Equal(t, int32(tfgraph.DTFloat), c.Attrs["dtype"].Type)

	x := g.Nodes[1]
	require.Contains(t, x.Attrs, "shape")
	assert.Equal(t, []tfgraph.Dim{{Size: -1}, {Size: 3}}, x.Attrs["shape"].Shape.Dims)

	add := g.Nodes[2]
	assert.Equal(t, []string{"c", "x:0", "^init"}, add.Inputs)
	assert.Empty(t, add.Attrs)
}

func TestParseAttrKinds(t *testing.T) {
	node := tfgraphtest.Node("n", "Custom")
	node = tfgraphtest.WithAttr(node, "i", tfgraphtest.IntAttr(-7))
	node = tfgraphtest.WithAttr(node, "f", tfgraphtest.FloatAttr(0.25))
	node = tfgraphtest.WithAttr(node, "b", tfgraphtest.BoolAttr(true))
	node = tfgraphtest.WithAttr(node, "s", tfgraphtest.StringAttr("SAME"))
	node = tfgraphtest.WithAttr(node, "ints", tfgraphtest.IntsAttr(1, 2, -1))
	node = tfgraphtest.WithAttr(node, "fn", &tfgraph.AttrValue{Kind: tfgraph.AttrFunc, Func: "body"})
	node = tfgraphtest.WithAttr(node, "ph", &tfgraph.AttrValue{Kind: tfgraph.AttrPlaceholder, Placeholder: "T"})
	node = tfgraphtest.WithAttr(node, "list", &tfgraph.AttrValue{Kind: tfgraph.AttrList, List: &tfgraph.ListValue{
		S:     [][]byte{[]byte("a"), []byte("b")},
		F:     []float32{0.5},
		B:     []bool{true, false},
		Type:  []int32{tfgraph.DTInt32},
		Shape: []*tfgraph.TensorShapeProto{{UnknownRank: true}},
		Func:  []string{"f1"},
	}})
	node.Device = "/device:CPU:0"

	g, err := tfgraph.Parse(tfgraphtest.Marshal(&tfgraph.GraphDef{Nodes: []tfgraph.NodeDef{node}}))
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)

	n := g.Nodes[0]
	assert.Equal(t, "/device:CPU:0", n.Device)
	assert.Equal(t, int64(-7), n.Attrs["i"].I)
	assert.InDelta(t, 0.25, n.Attrs["f"].F, 1e-9)
	assert.True(t, n.Attrs["b"].B)
	assert.Equal(t, []byte("SAME"), n.Attrs["s"].S)
	assert.Equal(t, []int64{1, 2, -1}, n.Attrs["ints"].List.I)
	assert.Equal(t, "body", n.Attrs["fn"].Func)
	assert.Equal(t, "T", n.Attrs["ph"].Placeholder)

	list := n.Attrs["list"].List
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, list.S)
	assert.Equal(t, []float32{0.5}, list.F)
	assert.Equal(t, []bool{true, false}, list.B)
	assert.Equal(t, []int32{tfgraph.DTInt32}, list.Type)
	require.Len(t, list.Shape, 1)
	assert.True(t, list.Shape[0].UnknownRank)
	assert.Equal(t, []string{"f1"}, list.Func)
}

func TestParseTensorFields(t *testing.T) {
	tensors := []*tfgraph.TensorProto{
		{DType: tfgraph.DTDouble, Shape: tfgraphtest.Shape(2), DoubleVal: []float64{1, 2}},
		{DType: tfgraph.DTInt32, Shape: tfgraphtest.Shape(3), IntVal: []int32{-1, 0, 1}},
		{DType: tfgraph.DTInt64, Shape: tfgraphtest.Shape(1), Int64Val: []int64{-1 << 40}},
		{DType: tfgraph.DTBool, Shape: tfgraphtest.Shape(2), BoolVal: []bool{true, false}},
		{DType: tfgraph.DTHalf, Shape: tfgraphtest.Shape(1), HalfVal: []int32{0x3c00}},
		{DType: tfgraph.DTUint32, Shape: tfgraphtest.Shape(1), Uint32Val: []uint32{1 << 31}},
		{DType: tfgraph.DTUint64, Shape: tfgraphtest.Shape(1), Uint64Val: []uint64{1 << 63}},
		{DType: tfgraph.DTString, Shape: tfgraphtest.Shape(1), StringVal: [][]byte{[]byte("hi")}},
		{DType: tfgraph.DTUint8, Shape: tfgraphtest.Shape(2), TensorContent: []byte{1, 2}},
	}
	nodes := make([]tfgraph.NodeDef, len(tensors))
	for i, tp := range tensors {
		nodes[i] = tfgraphtest.Const("c", tp)
	}

	g, err := tfgraph.Parse(tfgraphtest.Marshal(&tfgraph.GraphDef{Nodes: nodes}))
	require.NoError(t, err)
	require.Len(t, g.Nodes, len(tensors))

	for i, want := range tensors {
		got := g.Nodes[i].Attrs["value"].Tensor
		assert.Equal(t, want, got, "tensor #%d", i)
	}
}

func TestParseUnpackedRepeated(t *testing.T) {
	// float_val written as individual fixed32 fields rather than a packed run.
	var tensor []byte
	tensor = protowire.AppendTag(tensor, 1, protowire.VarintType)
	tensor = protowire.AppendVarint(tensor, tfgraph.DTFloat)
	tensor = protowire.AppendTag(tensor, 5, protowire.Fixed32Type)
	tensor = protowire.AppendFixed32(tensor, 0x3f800000)
	tensor = protowire.AppendTag(tensor, 5, protowire.Fixed32Type)
	tensor = protowire.AppendFixed32(tensor, 0x40000000)

	var attr []byte
	attr = protowire.AppendTag(attr, 8, protowire.BytesType)
	attr = protowire.AppendBytes(attr, tensor)

	var entry []byte
	entry = protowire.AppendTag(entry, 1, protowire.BytesType)
	entry = protowire.AppendString(entry, "value")
	entry = protowire.AppendTag(entry, 2, protowire.BytesType)
	entry = protowire.AppendBytes(entry, attr)

	var node []byte
	node = protowire.AppendTag(node, 1, protowire.BytesType)
	node = protowire.AppendString(node, "c")
	node = protowire.AppendTag(node, 5, protowire.BytesType)
	node = protowire.AppendBytes(node, entry)
	// Unknown field, skipped.
	node = protowire.AppendTag(node, 99, protowire.VarintType)
	node = protowire.AppendVarint(node, 1)

	var graph []byte
	graph = protowire.AppendTag(graph, 1, protowire.BytesType)
	graph = protowire.AppendBytes(graph, node)

	g, err := tfgraph.Parse(graph)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, []float32{1, 2}, g.Nodes[0].Attrs["value"].Tensor.FloatVal)
}

func TestParseErrors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		data := tfgraphtest.Marshal(&tfgraph.GraphDef{Nodes: []tfgraph.NodeDef{tfgraphtest.Node("a", "NoOp")}})
		_, err := tfgraph.Parse(data[:len(data)-1])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse GraphDef")
	})

	t.Run("wire type mismatch", func(t *testing.T) {
		var node []byte
		node = protowire.AppendTag(node, 1, protowire.VarintType) // name must be bytes
		node = protowire.AppendVarint(node, 3)
		var graph []byte
		graph = protowire.AppendTag(graph, 1, protowire.BytesType)
		graph = protowire.AppendBytes(graph, node)

		_, err := tfgraph.Parse(graph)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wire type")
	})

	t.Run("empty", func(t *testing.T) {
		g, err := tfgraph.Parse(nil)
		require.NoError(t, err)
		assert.Empty(t, g.Nodes)
	})
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.pb")
	data := tfgraphtest.Marshal(&tfgraph.GraphDef{Nodes: []tfgraph.NodeDef{tfgraphtest.Node("a", "NoOp")}})
	require.NoError(t, os.WriteFile(path, data, 0o600))

	g, err := tfgraph.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "NoOp", g.Nodes[0].Op)

	_, err = tfgraph.ParseFile(filepath.Join(t.TempDir(), "missing.pb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read graph file")
}

func TestAttrKindString(t *testing.T) {
	assert.Equal(t, "tensor", tfgraph.AttrTensor.String())
	assert.Equal(t, "list", tfgraph.AttrList.String())
	assert.Equal(t, "unset", tfgraph.AttrUnset.String())
}
