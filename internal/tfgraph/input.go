package tfgraph

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// InputRef is a decoded NodeDef input reference.
type InputRef struct {
	Node    string // Source node name
	Index   int    // Source output index; 0 for control inputs
	Control bool   // Control dependency ("^name")
}

// String formats the reference the way GraphDef stores it.
func (r InputRef) String() string {
	switch {
	case r.Control:
		return "^" + r.Node
	case r.Index == 0:
		return r.Node
	default:
		return r.Node + ":" + strconv.Itoa(r.Index)
	}
}

// ParseInput decodes "name", "name:idx" and "^name" references.
func ParseInput(s string) (InputRef, error) {
	if strings.HasPrefix(s, "^") {
		name := s[1:]
		if name == "" {
			return InputRef{}, errors.Errorf("empty control input %q", s)
		}
		return InputRef{Node: name, Control: true}, nil
	}
	name, idx := s, 0
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		n, err := strconv.Atoi(s[i+1:])
		if err != nil || n < 0 {
			return InputRef{}, errors.Errorf("invalid output index in input %q", s)
		}
		name, idx = s[:i], n
	}
	if name == "" {
		return InputRef{}, errors.Errorf("empty input reference %q", s)
	}
	return InputRef{Node: name, Index: idx}, nil
}

// ParseInputs decodes every input of the node.
func (n *NodeDef) ParseInputs() ([]InputRef, error) {
	refs := make([]InputRef, 0, len(n.Inputs))
	for _, in := range n.Inputs {
		ref, err := ParseInput(in)
		if err != nil {
			return nil, errors.WithMessagef(err, "node %q", n.Name)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
