package extractors

import (
	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// mathOps are arithmetic ops. Aliases are normalized to a single op name.
func mathOps() []entry {
	return []entry{
		{"Add", binary("Add"), true},
		{"AddV2", binary("Add"), true},
		{"Sub", binary("Sub"), true},
		{"Mul", binary("Mul"), true},
		{"RealDiv", binary("Div"), true},
		{"Maximum", binary("Maximum"), true},
		{"Minimum", binary("Minimum"), true},
		{"MatMul", extractMatMul, true},
		{"BiasAdd", extractBiasAdd, true},
	}
}

func extractMatMul(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := binary("MatMul")(node)
	if err != nil {
		return nil, err
	}
	ta, err := extract.AttrBool(node, "transpose_a", false)
	if err != nil {
		return nil, err
	}
	tb, err := extract.AttrBool(node, "transpose_b", false)
	if err != nil {
		return nil, err
	}
	return u.Set("transpose_a", ta).Set("transpose_b", tb), nil
}

func extractBiasAdd(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := binary("BiasAdd")(node)
	if err != nil {
		return nil, err
	}
	format, err := extract.AttrString(node, "data_format", "NHWC")
	if err != nil {
		return nil, err
	}
	if err := validDataFormat(format); err != nil {
		return nil, err
	}
	return u.Set("data_format", format), nil
}
