package extractors

import (
	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// activationOps are elementwise activation functions.
func activationOps() []entry {
	return []entry{
		{"Relu", unary("ReLU"), true},
		{"Relu6", extractRelu6, true},
		{"Sigmoid", unary("Sigmoid"), true},
		{"Tanh", unary("Tanh"), true},
		{"Softmax", extractSoftmax, true},
		{"LeakyRelu", extractLeakyRelu, true},
	}
}

// extractRelu6 normalizes Relu6 to a clamp between 0 and 6.
func extractRelu6(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := unary("Clamp")(node)
	if err != nil {
		return nil, err
	}
	return u.Set("min", float32(0)).Set("max", float32(6)), nil
}

// extractSoftmax records the reduction axis. TensorFlow always reduces the last dimension.
func extractSoftmax(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := unary("Softmax")(node)
	if err != nil {
		return nil, err
	}
	return u.Set("axis", int64(-1)), nil
}

func extractLeakyRelu(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := unary("LeakyReLU")(node)
	if err != nil {
		return nil, err
	}
	alpha, err := extract.AttrFloat(node, "alpha", 0.2)
	if err != nil {
		return nil, err
	}
	return u.Set("alpha", alpha), nil
}
