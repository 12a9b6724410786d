package extractors

import (
	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// sourceOps are the ops that produce values without data inputs.
func sourceOps() []entry {
	return []entry{
		{"Const", extractConst, true},
		{"Placeholder", extractPlaceholder, true},
		{"PlaceholderWithDefault", extractPlaceholderWithDefault, true},
		{"VariableV2", extractVariable, true},
	}
}

// Const is the constant-tensor extractor.
var Const extract.Extractor = extract.Func(extractConst)

// extractConst decodes attr["value"] into shape, value and data_type.
func extractConst(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireInputs(node, 0); err != nil {
		return nil, err
	}
	value, err := extract.AttrTensor(node, "value")
	if err != nil {
		return nil, err
	}
	return extract.NewUpdate("Const").
		Set("shape", value.Shape()).
		Set("value", value).
		Set("data_type", value.DType()), nil
}

// placeholderAttrs reads dtype and shape. An absent or unknown-rank shape is stored as nil.
func placeholderAttrs(node *tfgraph.NodeDef, op string) (*extract.Update, error) {
	dt, err := extract.AttrType(node, "dtype")
	if err != nil {
		return nil, err
	}
	shape, _, err := extract.AttrShape(node, "shape")
	if err != nil {
		return nil, err
	}
	return extract.NewUpdate(op).Set("data_type", dt).Set("shape", shape), nil
}

func extractPlaceholder(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireInputs(node, 0); err != nil {
		return nil, err
	}
	return placeholderAttrs(node, "Parameter")
}

func extractPlaceholderWithDefault(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireInputs(node, 1); err != nil {
		return nil, err
	}
	return placeholderAttrs(node, "PlaceholderWithDefault")
}

func extractVariable(node *tfgraph.NodeDef) (*extract.Update, error) {
	if err := requireInputs(node, 0); err != nil {
		return nil, err
	}
	u, err := placeholderAttrs(node, "Variable")
	if err != nil {
		return nil, err
	}
	container, err := extract.AttrString(node, "container", "")
	if err != nil {
		return nil, err
	}
	shared, err := extract.AttrString(node, "shared_name", "")
	if err != nil {
		return nil, err
	}
	return u.Set("container", container).Set("shared_name", shared), nil
}
