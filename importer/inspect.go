package importer

import (
	"math"
	"sort"

	"github.com/born-ml/graphir/internal/tfgraph"
)

// Summary describes a GraphDef without building it.
type Summary struct {
	Producer    int32
	MinConsumer int32
	Nodes       int
	Ops         []OpCount // Sorted by descending count, then op
	// ConstantBytes is the content Const nodes would materialize, computed without decoding it.
	ConstantBytes int64
	Undecodable   int // Const nodes without a usable value
}

// OpCount is the number of nodes of one op.
type OpCount struct {
	Op    string
	Count int
}

// Inspect summarizes the binary GraphDef at path.
func Inspect(path string) (*Summary, error) {
	g, err := tfgraph.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return summarize(g), nil
}

// InspectBytes summarizes a binary GraphDef.
func InspectBytes(data []byte) (*Summary, error) {
	g, err := tfgraph.Parse(data)
	if err != nil {
		return nil, err
	}
	return summarize(g), nil
}

func summarize(g *tfgraph.GraphDef) *Summary {
	s := &Summary{Producer: g.Versions.Producer, MinConsumer: g.Versions.MinConsumer, Nodes: len(g.Nodes)}
	counts := make(map[string]int)
	for i := range g.Nodes {
		node := &g.Nodes[i]
		counts[node.Op]++
		if node.Op != "Const" {
			continue
		}
		size, ok := constantSize(node)
		if !ok {
			s.Undecodable++
			continue
		}
		if s.ConstantBytes > math.MaxInt64-size {
			s.ConstantBytes = math.MaxInt64
			continue
		}
		s.ConstantBytes += size
	}

	s.Ops = make([]OpCount, 0, len(counts))
	for op, n := range counts {
		s.Ops = append(s.Ops, OpCount{op, n})
	}
	sort.Slice(s.Ops, func(i, j int) bool {
		if s.Ops[i].Count != s.Ops[j].Count {
			return s.Ops[i].Count > s.Ops[j].Count
		}
		return s.Ops[i].Op < s.Ops[j].Op
	})
	return s
}

func constantSize(node *tfgraph.NodeDef) (int64, bool) {
	attr, ok := node.Attrs["value"]
	if !ok || attr.Tensor == nil {
		return 0, false
	}
	if _, err := tfgraph.ToDataType(attr.Tensor.DType); err != nil {
		return 0, false
	}
	size, err := tfgraph.MaterializedBytes(attr.Tensor)
	if err != nil {
		return 0, false
	}
	return size, true
}
