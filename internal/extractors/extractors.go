// Package extractors provides the per-operator extractors for TensorFlow graphs.
//
// RegisterAll is the discovery list: every extractor shipped with the engine is registered there
// exactly once, grouped by operator family.
package extractors

import (
	"fmt"
	"strings"

	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/registry"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// entry is one row of a registration group.
type entry struct {
	op      string
	ex      extract.Func
	enabled bool
}

// RegisterAll registers every extractor with r.
func RegisterAll(r *registry.Registry) error {
	groups := [][]entry{
		sourceOps(),
		utilityOps(),
		mathOps(),
		activationOps(),
		shapeOps(),
		nnOps(),
		controlFlowOps(),
	}
	for _, group := range groups {
		for _, e := range group {
			if err := r.Register(e.op, e.ex, e.enabled); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewRegistry returns a sealed registry holding every extractor.
func NewRegistry() *registry.Registry {
	r := registry.New()
	if err := RegisterAll(r); err != nil {
		panic(err) // the static list is known to be duplicate free
	}
	r.Seal()
	return r
}

// dataInputs counts the non-control inputs of node.
func dataInputs(node *tfgraph.NodeDef) int {
	n := 0
	for _, in := range node.Inputs {
		if !strings.HasPrefix(in, "^") {
			n++
		}
	}
	return n
}

func requireInputs(node *tfgraph.NodeDef, want int) error {
	if got := dataInputs(node); got != want {
		return fmt.Errorf("%s requires %d inputs, got %d", node.Op, want, got)
	}
	return nil
}

func requireMinInputs(node *tfgraph.NodeDef, want int) error {
	if got := dataInputs(node); got < want {
		return fmt.Errorf("%s requires at least %d inputs, got %d", node.Op, want, got)
	}
	return nil
}

// typed returns an update for op carrying data_type from the attribute "T" when present.
func typed(node *tfgraph.NodeDef, op string) (*extract.Update, error) {
	u := extract.NewUpdate(op)
	if _, ok := node.Attrs["T"]; !ok {
		return u, nil
	}
	dt, err := extract.AttrType(node, "T")
	if err != nil {
		return nil, err
	}
	return u.Set("data_type", dt), nil
}

// unary builds an extractor for single-input ops normalized to op.
func unary(op string) extract.Func {
	return func(node *tfgraph.NodeDef) (*extract.Update, error) {
		if err := requireInputs(node, 1); err != nil {
			return nil, err
		}
		return typed(node, op)
	}
}

// binary builds an extractor for two-input elementwise ops normalized to op.
func binary(op string) extract.Func {
	return func(node *tfgraph.NodeDef) (*extract.Update, error) {
		if err := requireInputs(node, 2); err != nil {
			return nil, err
		}
		return typed(node, op)
	}
}

func validDataFormat(format string) error {
	switch format {
	case "NHWC", "NCHW":
		return nil
	default:
		return fmt.Errorf("unsupported data_format %q", format)
	}
}

func validPadding(padding string) error {
	switch padding {
	case "SAME", "VALID", "EXPLICIT":
		return nil
	default:
		return fmt.Errorf("unsupported padding %q", padding)
	}
}
