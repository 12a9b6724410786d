package extractors

import (
	"fmt"

	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tensor"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// shapeOps are shape manipulation ops.
func shapeOps() []entry {
	return []entry{
		{"Reshape", binary("Reshape"), true},
		{"ExpandDims", binary("Unsqueeze"), true},
		{"Transpose", binary("Transpose"), true},
		{"Squeeze", extractSqueeze, true},
		{"ConcatV2", extractConcat, true},
		{"Shape", extractShape, true},
	}
}

func extractSqueeze(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := unary("Squeeze")(node)
	if err != nil {
		return nil, err
	}
	dims, err := extract.AttrInts(node, "squeeze_dims", []int64{})
	if err != nil {
		return nil, err
	}
	return u.Set("squeeze_dims", dims), nil
}

// extractConcat checks N against the inputs: N values followed by the axis.
func extractConcat(node *tfgraph.NodeDef) (*extract.Update, error) {
	n, err := extract.AttrInt(node, "N", -1)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("ConcatV2 requires N >= 1, got %d", n)
	}
	if err := requireInputs(node, int(n)+1); err != nil {
		return nil, err
	}
	u, err := typed(node, "Concat")
	if err != nil {
		return nil, err
	}
	return u.Set("n", n), nil
}

func extractShape(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := unary("ShapeOf")(node)
	if err != nil {
		return nil, err
	}
	outType := tensor.Int32
	if _, ok := node.Attrs["out_type"]; ok {
		if outType, err = extract.AttrType(node, "out_type"); err != nil {
			return nil, err
		}
	}
	if outType != tensor.Int32 && outType != tensor.Int64 {
		return nil, fmt.Errorf("Shape out_type must be int32 or int64, got %s", outType)
	}
	return u.Set("output_type", outType), nil
}
