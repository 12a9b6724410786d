// Package extract defines the contract between the graph builder and per-operator extractors.
//
// An extractor receives one raw node and returns an Update: the normalized op name and attribute
// set that the builder stamps onto a freshly created IR node. Extractors never touch the graph.
package extract

import (
	"github.com/pkg/errors"

	"github.com/born-ml/graphir/internal/ir"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// ErrNotConsumed is reported when an extractor returns neither an update nor an error.
var ErrNotConsumed = errors.New("extractor did not consume node")

// Extractor converts a raw node into normalized IR attributes.
//
// A non-nil Update with a nil error means the node was consumed. A nil Update means the node could
// not be normalized; the builder treats it as a failure of that node.
type Extractor interface {
	Extract(node *tfgraph.NodeDef) (*Update, error)
}

// Func adapts a function to the Extractor interface.
type Func func(node *tfgraph.NodeDef) (*Update, error)

// Extract calls f(node).
func (f Func) Extract(node *tfgraph.NodeDef) (*Update, error) {
	return f(node)
}

// Update is the result of a successful extraction.
type Update struct {
	Op    string   // Normalized op name; empty keeps the raw op
	Attrs ir.Attrs // Normalized attributes
}

// NewUpdate returns an update for op with an empty attribute set.
func NewUpdate(op string) *Update {
	return &Update{Op: op, Attrs: make(ir.Attrs)}
}

// Set records an attribute and returns u for chaining.
func (u *Update) Set(name string, value any) *Update {
	if u.Attrs == nil {
		u.Attrs = make(ir.Attrs)
	}
	u.Attrs[name] = value
	return u
}

// Run invokes ex and enforces the consumed contract.
func Run(ex Extractor, node *tfgraph.NodeDef) (*Update, error) {
	u, err := ex.Extract(node)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotConsumed
	}
	return u, nil
}
