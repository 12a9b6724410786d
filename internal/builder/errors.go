package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/metrics"
	"github.com/born-ml/graphir/internal/tensor"
)

// ErrNoGraph is returned when Build is called without a graph.
var ErrNoGraph = errors.New("no graph to build")

// UnmatchedOperatorError is returned when no enabled extractor exists for an op.
type UnmatchedOperatorError struct {
	Op string
}

// Error implements the error interface.
func (e *UnmatchedOperatorError) Error() string {
	return fmt.Sprintf("no extractor registered for op %q", e.Op)
}

// DanglingReferenceError is returned when an input reference does not resolve to a node.
type DanglingReferenceError struct {
	Node string // Referencing node
	Ref  string // Input reference as written in the graph
}

// Error implements the error interface.
func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("node %q references unknown node %q", e.Node, e.Ref)
}

// DuplicateNodeError is returned when two raw nodes share a name.
type DuplicateNodeError struct {
	Name string
}

// Error implements the error interface.
func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node name %q", e.Name)
}

// NodeError attaches node identity to a node-level failure.
type NodeError struct {
	Node string
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q (%s): %v", e.Node, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// BuildError gathers every node failure of a collect-all build, in declaration order.
type BuildError struct {
	Errors []*NodeError
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d nodes failed", len(e.Errors))
	for i, ne := range e.Errors {
		if i == 3 {
			fmt.Fprintf(&sb, "; and %d more", len(e.Errors)-i)
			break
		}
		sb.WriteString("; ")
		sb.WriteString(ne.Error())
	}
	return sb.String()
}

// Unwrap exposes every node error to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, ne := range e.Errors {
		errs[i] = ne
	}
	return errs
}

// Ops returns the distinct ops of the failed nodes, in first-failure order.
func (e *BuildError) Ops() []string {
	seen := make(map[string]bool)
	var ops []string
	for _, ne := range e.Errors {
		if !seen[ne.Op] {
			seen[ne.Op] = true
			ops = append(ops, ne.Op)
		}
	}
	return ops
}

// failureReason classifies err for the failures metric.
func failureReason(err error) string {
	var (
		unmatched   *UnmatchedOperatorError
		unsupported *tensor.UnsupportedTypeError
		mismatch    *tensor.ShapeContentMismatchError
		tooLarge    *tensor.ContentTooLargeError
		missing     *extract.MissingAttrError
		dangling    *DanglingReferenceError
	)
	switch {
	case errors.As(err, &unmatched):
		return metrics.ReasonUnmatched
	case errors.As(err, &unsupported):
		return metrics.ReasonUnsupported
	case errors.As(err, &mismatch):
		return metrics.ReasonMismatch
	case errors.As(err, &tooLarge):
		return metrics.ReasonTooLarge
	case errors.As(err, &missing):
		return metrics.ReasonMissingAttr
	case errors.Is(err, extract.ErrNotConsumed):
		return metrics.ReasonNotConsumed
	case errors.As(err, &dangling):
		return metrics.ReasonDangling
	default:
		return metrics.ReasonOther
	}
}
