// Package builder turns a raw GraphDef into an IR graph.
//
// A build runs in two phases. Extraction dispatches every raw node to the extractor registered for
// its op and creates one IR node per successful extraction; nodes are independent, so this phase
// runs on a bounded worker pool with each worker writing only its own slot. After a full barrier,
// wiring resolves every input reference into an IR edge. Only referential integrity is checked:
// cycles are legal. A failed build never returns a partial graph.
package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/extractors"
	"github.com/born-ml/graphir/internal/ir"
	"github.com/born-ml/graphir/internal/metrics"
	"github.com/born-ml/graphir/internal/parallel"
	"github.com/born-ml/graphir/internal/registry"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// Unmatched selects what happens to nodes whose op has no enabled extractor.
type Unmatched int

const (
	// UnmatchedFail fails the node with an UnmatchedOperatorError.
	UnmatchedFail Unmatched = iota
	// UnmatchedPassThrough keeps the node through the fallback extractor.
	UnmatchedPassThrough
)

// String returns the configuration name of the policy.
func (u Unmatched) String() string {
	switch u {
	case UnmatchedFail:
		return "fail"
	case UnmatchedPassThrough:
		return "pass-through"
	default:
		return fmt.Sprintf("Unmatched(%d)", int(u))
	}
}

// ErrorMode selects how node failures are reported.
type ErrorMode int

const (
	// FailFast aborts the build on the first node failure.
	FailFast ErrorMode = iota
	// CollectAll extracts every node and reports all failures in a BuildError.
	CollectAll
)

// String returns the configuration name of the mode.
func (m ErrorMode) String() string {
	switch m {
	case FailFast:
		return "fail-fast"
	case CollectAll:
		return "collect-all"
	default:
		return fmt.Sprintf("ErrorMode(%d)", int(m))
	}
}

// Options configures a Builder.
type Options struct {
	Unmatched Unmatched
	ErrorMode ErrorMode
	Workers   int                // Extraction workers; <= 1 runs sequentially
	Fallback  extract.Extractor  // Extractor for unmatched ops; nil uses extractors.PassThrough
	Metrics   *metrics.Collector // Optional

	// MaxConstantBytes caps the content any single tensor attribute may materialize.
	// Nodes over the cap fail with a *tensor.ContentTooLargeError before extraction. <= 0 disables.
	MaxConstantBytes int64
}

// DefaultOptions returns the default build options: fail on unmatched ops, fail fast, sequential,
// with constants capped at tfgraph.DefaultMaxTensorBytes.
func DefaultOptions() Options {
	return Options{
		Unmatched:        UnmatchedFail,
		ErrorMode:        FailFast,
		Workers:          1,
		MaxConstantBytes: tfgraph.DefaultMaxTensorBytes,
	}
}

// Builder builds IR graphs using a sealed registry. It is safe for concurrent use.
type Builder struct {
	reg  *registry.Registry
	opts Options
}

// New creates a Builder. The registry is sealed: no extractor can be added afterwards.
func New(reg *registry.Registry, opts Options) *Builder {
	reg.Seal()
	if opts.Fallback == nil {
		opts.Fallback = extractors.PassThrough
	}
	return &Builder{reg: reg, opts: opts}
}

// Build converts g into an IR graph.
func (b *Builder) Build(ctx context.Context, g *tfgraph.GraphDef) (*ir.Graph, error) {
	graph, _, err := b.BuildWithReport(ctx, g)
	return graph, err
}

// BuildWithReport is like Build and also returns the per-node report. The report is returned even
// when the build fails.
func (b *Builder) BuildWithReport(ctx context.Context, g *tfgraph.GraphDef) (*ir.Graph, *Report, error) {
	if g == nil {
		return nil, nil, ErrNoGraph
	}
	start := time.Now()
	defer func() { b.opts.Metrics.ObserveBuild(time.Since(start)) }()

	s, err := newBuildState(g)
	if err != nil {
		return nil, nil, err
	}

	if err := b.extractAll(ctx, s); err != nil {
		return nil, s.report(), err
	}
	klog.V(1).Infof("extracted %d nodes", len(s.slots))

	graph, err := b.wire(s)
	if err != nil {
		return nil, s.report(), err
	}
	return graph, s.report(), nil
}

// buildState is the per-build scratch space. Index i of every slice belongs to raw node i.
type buildState struct {
	g       *tfgraph.GraphDef
	index   map[string]int
	states  []NodeState
	slots   []*ir.Node
	errs    []*NodeError
	through []bool
}

func newBuildState(g *tfgraph.GraphDef) (*buildState, error) {
	n := len(g.Nodes)
	s := &buildState{
		g:       g,
		index:   make(map[string]int, n),
		states:  make([]NodeState, n),
		slots:   make([]*ir.Node, n),
		errs:    make([]*NodeError, n),
		through: make([]bool, n),
	}
	for i := range g.Nodes {
		name := g.Nodes[i].Name
		if name == "" {
			return nil, errors.Errorf("node #%d has no name", i)
		}
		if _, dup := s.index[name]; dup {
			return nil, &DuplicateNodeError{Name: name}
		}
		s.index[name] = i
	}
	return s, nil
}

// extractAll runs phase 1.
func (b *Builder) extractAll(ctx context.Context, s *buildState) error {
	err := parallel.ForEach(ctx, len(s.g.Nodes), parallel.WithWorkers(b.opts.Workers), func(_ context.Context, i int) error {
		if ne := b.extractNode(s, i); ne != nil && b.opts.ErrorMode == FailFast {
			return ne
		}
		return nil
	})
	if err != nil {
		var ne *NodeError
		if errors.As(err, &ne) {
			return ne
		}
		return errors.Wrap(err, "build interrupted")
	}

	var failed []*NodeError
	for _, ne := range s.errs {
		if ne != nil {
			failed = append(failed, ne)
		}
	}
	if len(failed) > 0 {
		return &BuildError{Errors: failed}
	}
	return nil
}

// extractNode dispatches raw node i and fills its slot or its error.
func (b *Builder) extractNode(s *buildState, i int) (ne *NodeError) {
	node := &s.g.Nodes[i]
	s.states[i] = Dispatched

	defer func() {
		if r := recover(); r != nil {
			ne = b.fail(s, i, fmt.Errorf("extractor panic: %v", r))
		}
	}()

	ex, ok := b.reg.Lookup(node.Op)
	if !ok {
		if b.opts.Unmatched != UnmatchedPassThrough {
			return b.fail(s, i, &UnmatchedOperatorError{Op: node.Op})
		}
		klog.Warningf("node %q: no extractor for op %q, passing through", node.Name, node.Op)
		ex = b.opts.Fallback
		s.through[i] = true
	}

	if err := tfgraph.CheckNodeTensors(node, b.opts.MaxConstantBytes); err != nil {
		return b.fail(s, i, err)
	}

	klog.V(1).Infof("extracting node %q (%s)", node.Name, node.Op)
	u, err := extract.Run(ex, node)
	if err != nil {
		return b.fail(s, i, err)
	}

	op := u.Op
	if op == "" {
		op = node.Op
	}
	attrs := u.Attrs
	if attrs == nil {
		attrs = ir.Attrs{}
	}
	s.slots[i] = &ir.Node{ID: ir.NodeID(i), Name: node.Name, Op: op, Attrs: attrs}
	s.states[i] = Populated
	b.opts.Metrics.NodeExtracted(node.Op)
	return nil
}

func (b *Builder) fail(s *buildState, i int, err error) *NodeError {
	node := &s.g.Nodes[i]
	ne := &NodeError{Node: node.Name, Op: node.Op, Err: err}
	s.slots[i] = nil
	s.errs[i] = ne
	s.states[i] = Failed
	b.opts.Metrics.NodeFailed(node.Op, failureReason(err))
	return ne
}

// wire runs phase 2. Every node is Populated when it starts.
func (b *Builder) wire(s *buildState) (*ir.Graph, error) {
	var failed []*NodeError
	for i := range s.g.Nodes {
		node := &s.g.Nodes[i]
		refs, err := node.ParseInputs()
		if err != nil {
			failed = append(failed, b.fail(s, i, err))
			if b.opts.ErrorMode == FailFast {
				return nil, failed[0]
			}
			continue
		}

		edges := make([]ir.Edge, 0, len(refs))
		for _, ref := range refs {
			src, ok := s.index[ref.Node]
			if !ok {
				ne := b.fail(s, i, &DanglingReferenceError{Node: node.Name, Ref: ref.String()})
				failed = append(failed, ne)
				break
			}
			klog.V(2).Infof("edge %s -> %q", ref, node.Name)
			edges = append(edges, ir.Edge{Src: ir.NodeID(src), Index: ref.Index, Control: ref.Control})
		}
		if len(failed) > 0 && b.opts.ErrorMode == FailFast {
			return nil, failed[0]
		}
		if s.slots[i] != nil {
			s.slots[i].InEdges = edges
		}
	}
	if len(failed) > 0 {
		return nil, &BuildError{Errors: failed}
	}

	graph, err := ir.NewGraph(s.slots)
	if err != nil {
		return nil, errors.Wrap(err, "failed to assemble graph")
	}
	return graph, nil
}
