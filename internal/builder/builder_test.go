package builder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/extractors"
	"github.com/born-ml/graphir/internal/ir"
	"github.com/born-ml/graphir/internal/metrics"
	"github.com/born-ml/graphir/internal/registry"
	"github.com/born-ml/graphir/internal/tensor"
	"github.com/born-ml/graphir/internal/tfgraph"
	"github.com/born-ml/graphir/internal/tfgraph/tfgraphtest"
)

func constNode(name string) tfgraph.NodeDef {
	return tfgraphtest.Const(name, &tfgraph.TensorProto{
		DType:    tfgraph.DTFloat,
		Shape:    tfgraphtest.Shape(2),
		FloatVal: []float32{1, 2},
	})
}

func graphOf(nodes ...tfgraph.NodeDef) *tfgraph.GraphDef {
	return &tfgraph.GraphDef{Nodes: nodes}
}

func newBuilder(opts Options) *Builder {
	return New(extractors.NewRegistry(), opts)
}

// inEdges maps node names to their input edges rendered as "src.index" or "^src".
func inEdges(g *ir.Graph) map[string][]string {
	out := make(map[string][]string)
	for _, n := range g.Nodes() {
		edges := []string{}
		for _, e := range n.InEdges {
			src := g.Node(e.Src).Name
			if e.Control {
				edges = append(edges, "^"+src)
				continue
			}
			edges = append(edges, fmt.Sprintf("%s.%d", src, e.Index))
		}
		out[n.Name] = edges
	}
	return out
}

func TestBuildChain(t *testing.T) {
	g := graphOf(
		constNode("A"),
		tfgraphtest.Node("B", "Identity", "A"),
		tfgraphtest.Node("C", "Identity", "B:0"),
	)

	graph, err := newBuilder(DefaultOptions()).Build(context.Background(), g)
	require.NoError(t, err)

	want := map[string][]string{
		"A": {},
		"B": {"A.0"},
		"C": {"B.0"},
	}
	if diff := cmp.Diff(want, inEdges(graph)); diff != "" {
		t.Errorf("in_edges mismatch (-want +got):\n%s", diff)
	}

	a, ok := graph.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "Const", a.Op)
	assert.Equal(t, tensor.Float32, a.Attrs["data_type"])

	outs := graph.OutEdges(a.ID)
	require.Len(t, outs, 1)
	assert.Equal(t, "B", graph.Node(outs[0].Dst).Name)
}

func TestBuildEdgeKinds(t *testing.T) {
	g := graphOf(
		tfgraphtest.Node("init", "NoOp"),
		tfgraphtest.Node("x", "Switch", "p", "p"),
		constNode("p"),
		tfgraphtest.Node("y", "Identity", "x:1", "^init"),
	)
	graph, err := newBuilder(DefaultOptions()).Build(context.Background(), g)
	require.NoError(t, err)

	y, ok := graph.Lookup("y")
	require.True(t, ok)
	want := []ir.Edge{{Src: 1, Index: 1}, {Src: 0, Control: true}}
	if diff := cmp.Diff(want, y.InEdges); diff != "" {
		t.Errorf("y edges mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDanglingReference(t *testing.T) {
	g := graphOf(
		constNode("A"),
		tfgraphtest.Node("B", "Identity", "X"),
	)
	graph, report, err := newBuilder(DefaultOptions()).BuildWithReport(context.Background(), g)
	require.Error(t, err)
	assert.Nil(t, graph, "no partial IR on failure")

	var dangling *DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, "B", dangling.Node)
	assert.Equal(t, "X", dangling.Ref)

	require.NotNil(t, report)
	assert.Equal(t, Failed, report.Nodes[1].State)
}

func TestBuildUnsupportedType(t *testing.T) {
	g := graphOf(
		tfgraphtest.Const("q", &tfgraph.TensorProto{DType: tfgraph.DTQint8, Shape: tfgraphtest.Shape(1), IntVal: []int32{1}}),
	)
	graph, report, err := newBuilder(DefaultOptions()).BuildWithReport(context.Background(), g)
	assert.Nil(t, graph)

	var ute *tensor.UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	var ne *NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "q", ne.Node)
	assert.Equal(t, "Const", ne.Op)

	assert.Equal(t, Failed, report.Nodes[0].State)
	assert.Equal(t, 0, report.Count(Populated))
}

func TestBuildConstantTooLarge(t *testing.T) {
	// 2^40 x 2^10 float32 elements, compact-filled from a single value.
	huge := tfgraphtest.Const("huge", &tfgraph.TensorProto{
		DType:    tfgraph.DTFloat,
		Shape:    tfgraphtest.Shape(1<<40, 1<<10),
		FloatVal: []float32{0},
	})
	g := graphOf(constNode("a"), huge, tfgraphtest.Node("sum", "AddV2", "a", "huge"))

	opts := DefaultOptions()
	opts.ErrorMode = CollectAll
	graph, report, err := newBuilder(opts).BuildWithReport(context.Background(), g)
	assert.Nil(t, graph)

	var tooLarge *tensor.ContentTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(1<<52), tooLarge.Bytes)
	assert.Equal(t, tfgraph.DefaultMaxTensorBytes, tooLarge.Limit)
	var ne *NodeError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "huge", ne.Node)

	assert.Equal(t, Populated, report.Nodes[0].State)
	assert.Equal(t, Failed, report.Nodes[1].State)
}

func TestBuildConstantLimit(t *testing.T) {
	g := graphOf(constNode("a"))

	opts := DefaultOptions()
	opts.MaxConstantBytes = 7
	_, err := newBuilder(opts).Build(context.Background(), g)
	var tooLarge *tensor.ContentTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(8), tooLarge.Bytes)

	opts.MaxConstantBytes = 8
	graph, err := newBuilder(opts).Build(context.Background(), g)
	require.NoError(t, err)
	assert.Equal(t, 1, graph.Len())

	opts.MaxConstantBytes = 0
	_, err = newBuilder(opts).Build(context.Background(), g)
	require.NoError(t, err)
}

func TestBuildOverflowingShape(t *testing.T) {
	g := graphOf(tfgraphtest.Const("c", &tfgraph.TensorProto{
		DType:    tfgraph.DTFloat,
		Shape:    tfgraphtest.Shape(1<<62, 2),
		FloatVal: []float32{1},
	}))
	for _, limit := range []int64{tfgraph.DefaultMaxTensorBytes, 0} {
		opts := DefaultOptions()
		opts.MaxConstantBytes = limit
		_, err := newBuilder(opts).Build(context.Background(), g)
		var mismatch *tensor.ShapeContentMismatchError
		require.True(t, errors.As(err, &mismatch), "limit %d", limit)
	}
}

func TestBuildUnmatched(t *testing.T) {
	g := graphOf(
		constNode("x"),
		tfgraphtest.WithAttr(tfgraphtest.Node("q", "FakeQuantWithMinMaxArgs", "x"), "num_bits", tfgraphtest.IntAttr(8)),
	)

	t.Run("fail", func(t *testing.T) {
		_, err := newBuilder(DefaultOptions()).Build(context.Background(), g)
		var unmatched *UnmatchedOperatorError
		require.True(t, errors.As(err, &unmatched))
		assert.Equal(t, "FakeQuantWithMinMaxArgs", unmatched.Op)
	})

	t.Run("pass-through", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Unmatched = UnmatchedPassThrough
		graph, report, err := newBuilder(opts).BuildWithReport(context.Background(), g)
		require.NoError(t, err)

		q, ok := graph.Lookup("q")
		require.True(t, ok)
		assert.Equal(t, extractors.PassThroughOp, q.Op)
		assert.Equal(t, "FakeQuantWithMinMaxArgs", q.Attrs["original_op"])
		assert.Equal(t, int64(8), q.Attrs["num_bits"])
		assert.Equal(t, []ir.Edge{{Src: 0}}, q.InEdges)
		assert.Equal(t, []string{"q"}, report.PassedThrough())
	})

	t.Run("disabled extractor", func(t *testing.T) {
		reg := registry.New()
		require.NoError(t, extractors.RegisterAll(reg))
		require.NoError(t, reg.SetEnabled("Const", false))

		_, err := New(reg, DefaultOptions()).Build(context.Background(), graphOf(constNode("c")))
		var unmatched *UnmatchedOperatorError
		require.True(t, errors.As(err, &unmatched))
		assert.Equal(t, "Const", unmatched.Op)
	})
}

func TestBuildNotConsumed(t *testing.T) {
	reg := registry.New()
	reg.MustRegister("Lazy", extract.Func(func(*tfgraph.NodeDef) (*extract.Update, error) { return nil, nil }), true)

	_, err := New(reg, DefaultOptions()).Build(context.Background(), graphOf(tfgraphtest.Node("l", "Lazy")))
	assert.ErrorIs(t, err, extract.ErrNotConsumed)
}

func TestBuildExtractorPanic(t *testing.T) {
	reg := registry.New()
	reg.MustRegister("Boom", extract.Func(func(*tfgraph.NodeDef) (*extract.Update, error) { panic("boom") }), true)

	_, err := New(reg, DefaultOptions()).Build(context.Background(), graphOf(tfgraphtest.Node("b", "Boom")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extractor panic: boom")
}

func TestBuildKeepsRawOpWhenUpdateHasNone(t *testing.T) {
	reg := registry.New()
	reg.MustRegister("Custom", extract.Func(func(*tfgraph.NodeDef) (*extract.Update, error) {
		return &extract.Update{}, nil
	}), true)

	graph, err := New(reg, DefaultOptions()).Build(context.Background(), graphOf(tfgraphtest.Node("c", "Custom")))
	require.NoError(t, err)
	c, _ := graph.Lookup("c")
	assert.Equal(t, "Custom", c.Op)
	assert.NotNil(t, c.Attrs)
}

func TestBuildFailFastStopsScheduling(t *testing.T) {
	g := graphOf(
		tfgraphtest.Node("bad", "Unknown"),
		constNode("a"),
		constNode("b"),
	)
	_, report, err := newBuilder(DefaultOptions()).BuildWithReport(context.Background(), g)
	require.Error(t, err)

	assert.Equal(t, Failed, report.Nodes[0].State)
	assert.Equal(t, Pending, report.Nodes[1].State)
	assert.Equal(t, Pending, report.Nodes[2].State)
}

func TestBuildCollectAll(t *testing.T) {
	g := graphOf(
		tfgraphtest.Node("u1", "Unknown1"),
		constNode("ok"),
		tfgraphtest.Const("bad", &tfgraph.TensorProto{DType: tfgraph.DTInt32, Shape: tfgraphtest.Shape(2), IntVal: []int32{1, 2, 3}}),
		tfgraphtest.Node("u2", "Unknown2", "missing"),
	)
	opts := DefaultOptions()
	opts.ErrorMode = CollectAll

	graph, report, err := newBuilder(opts).BuildWithReport(context.Background(), g)
	assert.Nil(t, graph)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Errors, 3)
	assert.Equal(t, []string{"u1", "bad", "u2"}, []string{be.Errors[0].Node, be.Errors[1].Node, be.Errors[2].Node})
	assert.Equal(t, []string{"Unknown1", "Const", "Unknown2"}, be.Ops())

	var mismatch *tensor.ShapeContentMismatchError
	assert.True(t, errors.As(err, &mismatch))

	// Wiring is skipped: the dangling "missing" reference is not reported.
	var dangling *DanglingReferenceError
	assert.False(t, errors.As(err, &dangling))

	assert.Equal(t, 1, report.Count(Populated))
	assert.Equal(t, 3, report.Count(Failed))
	assert.Contains(t, be.Error(), "3 nodes failed")
}

func TestBuildCollectAllWiring(t *testing.T) {
	g := graphOf(
		tfgraphtest.Node("a", "Identity", "x"),
		tfgraphtest.Node("b", "Identity", "y"),
	)
	opts := DefaultOptions()
	opts.ErrorMode = CollectAll

	_, err := newBuilder(opts).Build(context.Background(), g)
	var be *BuildError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Errors, 2)
	for _, ne := range be.Errors {
		var dangling *DanglingReferenceError
		assert.True(t, errors.As(ne, &dangling))
	}
}

func TestBuildCycle(t *testing.T) {
	frame := tfgraphtest.StringAttr("while/")
	g := graphOf(
		constNode("init"),
		tfgraphtest.WithAttr(tfgraphtest.Node("enter", "Enter", "init"), "frame_name", frame),
		tfgraphtest.Node("merge", "Merge", "enter", "next"),
		tfgraphtest.Node("body", "Identity", "merge"),
		tfgraphtest.Node("next", "NextIteration", "body"),
	)
	graph, err := newBuilder(DefaultOptions()).Build(context.Background(), g)
	require.NoError(t, err)

	want := map[string][]string{
		"init":  {},
		"enter": {"init.0"},
		"merge": {"enter.0", "next.0"},
		"body":  {"merge.0"},
		"next":  {"body.0"},
	}
	if diff := cmp.Diff(want, inEdges(graph)); diff != "" {
		t.Errorf("in_edges mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildDuplicateNames(t *testing.T) {
	_, err := newBuilder(DefaultOptions()).Build(context.Background(), graphOf(constNode("a"), constNode("a")))
	var dup *DuplicateNodeError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "a", dup.Name)
}

func TestBuildNilGraph(t *testing.T) {
	_, err := newBuilder(DefaultOptions()).Build(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestBuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newBuilder(DefaultOptions()).Build(ctx, graphOf(constNode("a")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildParallelMatchesSequential(t *testing.T) {
	nodes := []tfgraph.NodeDef{constNode("n0")}
	for i := 1; i < 300; i++ {
		nodes = append(nodes, tfgraphtest.Node(fmt.Sprintf("n%d", i), "AddV2", fmt.Sprintf("n%d", i-1), "n0"))
	}
	g := graphOf(nodes...)

	seq, err := newBuilder(DefaultOptions()).Build(context.Background(), g)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Workers = 8
	par, err := newBuilder(opts).Build(context.Background(), g)
	require.NoError(t, err)

	if diff := cmp.Diff(inEdges(seq), inEdges(par)); diff != "" {
		t.Errorf("parallel build differs (-seq +par):\n%s", diff)
	}
	for i, n := range par.Nodes() {
		assert.Equal(t, ir.NodeID(i), n.ID)
		assert.Equal(t, seq.Node(n.ID).Op, n.Op)
	}
}

func TestBuildParallelCollectAll(t *testing.T) {
	var nodes []tfgraph.NodeDef
	for i := 0; i < 100; i++ {
		if i%10 == 0 {
			nodes = append(nodes, tfgraphtest.Node(fmt.Sprintf("u%d", i), "Unknown"))
			continue
		}
		nodes = append(nodes, constNode(fmt.Sprintf("c%d", i)))
	}
	opts := DefaultOptions()
	opts.Workers = 4
	opts.ErrorMode = CollectAll

	_, report, err := newBuilder(opts).BuildWithReport(context.Background(), graphOf(nodes...))
	var be *BuildError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Errors, 10)
	assert.Equal(t, "u0", be.Errors[0].Node)
	assert.Equal(t, "u90", be.Errors[9].Node)
	assert.Equal(t, 90, report.Count(Populated))
}

func TestBuildMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.ErrorMode = CollectAll
	opts.Metrics = collector

	g := graphOf(constNode("a"), constNode("b"), tfgraphtest.Node("u", "Unknown"))
	_, err = newBuilder(opts).Build(context.Background(), g)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "graphir_nodes_extracted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = testutil.GatherAndCount(reg, "graphir_node_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = testutil.GatherAndCount(reg, "graphir_build_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, metrics.ReasonUnmatched, failureReason(&UnmatchedOperatorError{Op: "X"}))
	assert.Equal(t, metrics.ReasonUnsupported, failureReason(&tensor.UnsupportedTypeError{Tag: 8}))
	assert.Equal(t, metrics.ReasonMismatch, failureReason(&tensor.ShapeContentMismatchError{}))
	assert.Equal(t, metrics.ReasonTooLarge, failureReason(&tensor.ContentTooLargeError{}))
	assert.Equal(t, metrics.ReasonMissingAttr, failureReason(&extract.MissingAttrError{Name: "value"}))
	assert.Equal(t, metrics.ReasonNotConsumed, failureReason(extract.ErrNotConsumed))
	assert.Equal(t, metrics.ReasonDangling, failureReason(&DanglingReferenceError{}))
	assert.Equal(t, metrics.ReasonOther, failureReason(errors.New("x")))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "populated", Populated.String())
	assert.Equal(t, "pass-through", UnmatchedPassThrough.String())
	assert.Equal(t, "collect-all", CollectAll.String())
}
