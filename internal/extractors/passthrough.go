package extractors

import (
	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// PassThroughOp is the IR op of nodes kept by the pass-through extractor.
const PassThroughOp = "PassThrough"

// PassThrough keeps a node without normalization: every raw attribute is converted to an IR value
// and the raw op is recorded as original_op. Attributes that cannot be converted, such as tensors
// of unsupported element types, are kept as the raw *tfgraph.AttrValue.
var PassThrough extract.Extractor = extract.Func(extractPassThrough)

func extractPassThrough(node *tfgraph.NodeDef) (*extract.Update, error) {
	u := extract.NewUpdate(PassThroughOp).Set("original_op", node.Op)
	for name, raw := range node.Attrs {
		v, err := extract.ConvertAttr(raw)
		if err != nil {
			u.Set(name, raw)
			continue
		}
		u.Set(name, v)
	}
	return u, nil
}
