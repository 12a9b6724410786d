package extractors

import (
	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// utilityOps are forwarding and bookkeeping ops.
func utilityOps() []entry {
	return []entry{
		{"Identity", unary("Identity"), true},
		{"StopGradient", unary("StopGradient"), true},
		{"NoOp", extractNoOp, true},
		{"Cast", extractCast, true},
		// Assertions are stripped from inference graphs; enable explicitly to keep them.
		{"Assert", extractAssert, false},
	}
}

func extractNoOp(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireInputs(node, 0); err != nil {
		return nil, err
	}
	return extract.NewUpdate("NoOp"), nil
}

func extractCast(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireInputs(node, 1); err != nil {
		return nil, err
	}
	src, err := extract.AttrType(node, "SrcT")
	if err != nil {
		return nil, err
	}
	dst, err := extract.AttrType(node, "DstT")
	if err != nil {
		return nil, err
	}
	truncate, err := extract.AttrBool(node, "Truncate", false)
	if err != nil {
		return nil, err
	}
	return extract.NewUpdate("Cast").
		Set("src_type", src).
		Set("dst_type", dst).
		Set("truncate", truncate), nil
}

func extractAssert(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireMinInputs(node, 1); err != nil {
		return nil, err
	}
	summarize, err := extract.AttrInt(node, "summarize", 3)
	if err != nil {
		return nil, err
	}
	return extract.NewUpdate("Assert").Set("summarize", summarize), nil
}
