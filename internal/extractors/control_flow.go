package extractors

import (
	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// controlFlowOps are the TensorFlow v1 loop primitives. Graphs using them contain cycles through
// NextIteration -> Merge.
func controlFlowOps() []entry {
	return []entry{
		{"Enter", extractEnter, true},
		{"Exit", unary("Exit"), true},
		{"NextIteration", unary("NextIteration"), true},
		{"LoopCond", unary("LoopCond"), true},
		{"Switch", binary("Switch"), true},
		{"Merge", extractMerge, true},
	}
}

func extractEnter(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := unary("Enter")(node)
	if err != nil {
		return nil, err
	}
	frame, err := extract.AttrString(node, "frame_name", "")
	if err != nil {
		return nil, err
	}
	if frame == "" {
		return nil, &extract.MissingAttrError{Name: "frame_name", Want: tfgraph.AttrString}
	}
	constant, err := extract.AttrBool(node, "is_constant", false)
	if err != nil {
		return nil, err
	}
	iterations, err := extract.AttrInt(node, "parallel_iterations", 10)
	if err != nil {
		return nil, err
	}
	return u.Set("frame_name", frame).
		Set("is_constant", constant).
		Set("parallel_iterations", iterations), nil
}

func extractMerge(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireMinInputs(node, 1); err != nil {
		return nil, err
	}
	u, err := typed(node, "Merge")
	if err != nil {
		return nil, err
	}
	return u.Set("n", int64(dataInputs(node))), nil
}
