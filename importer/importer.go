// Package importer converts TensorFlow GraphDef files into graphir IR graphs.
//
// The conversion dispatches every node of the graph to the extractor registered for its op and
// wires the extracted nodes into a single graph with validated shapes, element types and edges.
//
// # Example Usage
//
//	graph, err := importer.Load(ctx, "frozen_graph.pb", importer.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, node := range graph.Nodes() {
//	    fmt.Println(node.Name, node.Op)
//	}
//
// Use [ListSupportedOps] to get the list of ops with an enabled extractor.
package importer

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/graphir/internal/builder"
	"github.com/born-ml/graphir/internal/config"
	"github.com/born-ml/graphir/internal/extractors"
	"github.com/born-ml/graphir/internal/ir"
	"github.com/born-ml/graphir/internal/metrics"
	"github.com/born-ml/graphir/internal/registry"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// Graph is a built IR graph.
type Graph = ir.Graph

// Node is a node of an IR graph.
type Node = ir.Node

// Report describes the outcome of every raw node of a build.
type Report = builder.Report

// BuildOptions configures the graph builder.
type BuildOptions = builder.Options

// NodeState is the extraction state of a raw node in a Report.
type NodeState = builder.NodeState

// Registration describes one registered extractor.
type Registration = registry.Registration

// Metrics records extraction statistics. Create one with NewMetrics.
type Metrics = metrics.Collector

// Config is a file and environment based configuration. See LoadConfig.
type Config = config.Config

// Errors returned by the builder, matchable with errors.As.
type (
	NodeError              = builder.NodeError
	BuildError             = builder.BuildError
	UnmatchedOperatorError = builder.UnmatchedOperatorError
	DanglingReferenceError = builder.DanglingReferenceError
)

// Unmatched-op policies and error modes of BuildOptions.
const (
	UnmatchedFail        = builder.UnmatchedFail
	UnmatchedPassThrough = builder.UnmatchedPassThrough
	FailFast             = builder.FailFast
	CollectAll           = builder.CollectAll
)

// Node states of a Report.
const (
	Pending    = builder.Pending
	Dispatched = builder.Dispatched
	Populated  = builder.Populated
	Failed     = builder.Failed
)

// DefaultMaxConstantBytes is the default of BuildOptions.MaxConstantBytes.
const DefaultMaxConstantBytes = tfgraph.DefaultMaxTensorBytes

// Options configures graph loading.
type Options struct {
	Build   BuildOptions
	Enable  []string // Ops whose extractor is enabled on top of the defaults
	Disable []string // Ops whose extractor is disabled
}

// DefaultOptions returns the default options for loading graphs.
//
// Default configuration:
//   - Unmatched ops fail the build
//   - The first node failure aborts the build
//   - Extraction runs sequentially
//   - A constant may materialize at most DefaultMaxConstantBytes
func DefaultOptions() Options {
	return Options{Build: builder.DefaultOptions()}
}

// LoadConfig reads a configuration from a YAML file, .env files and GRAPHIR_* variables.
// An empty path uses the defaults and the environment only.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	return config.Load(path, envFiles...)
}

// ParseMaxConstantBytes parses a size such as "512MiB" for BuildOptions.MaxConstantBytes.
// Empty selects DefaultMaxConstantBytes and "0" disables the limit.
func ParseMaxConstantBytes(s string) (int64, error) {
	return config.ParseMaxConstantBytes(s)
}

// OptionsFromConfig converts a configuration into loading options.
func OptionsFromConfig(cfg *Config) (Options, error) {
	build, err := cfg.BuildOptions()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Build:   build,
		Enable:  append([]string(nil), cfg.Ops.Enabled...),
		Disable: append([]string(nil), cfg.Ops.Disabled...),
	}, nil
}

// NewMetrics creates extraction metrics registered with reg. Set the result as
// Options.Build.Metrics to record builds.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	return metrics.New(reg)
}

// WriteMetrics writes the metrics gathered from g in the Prometheus text format.
func WriteMetrics(w io.Writer, g prometheus.Gatherer) error {
	return metrics.WriteText(w, g)
}

// Load loads a binary GraphDef from a file path and builds its IR graph.
func Load(ctx context.Context, path string, opts Options) (*Graph, error) {
	g, err := tfgraph.ParseFile(path)
	if err != nil {
		return nil, err
	}
	graph, _, err := build(ctx, g, opts)
	return graph, err
}

// LoadFromBytes builds the IR graph of a binary GraphDef.
func LoadFromBytes(ctx context.Context, data []byte, opts Options) (*Graph, error) {
	graph, _, err := LoadWithReport(ctx, data, opts)
	return graph, err
}

// LoadWithReport is like LoadFromBytes and also returns the per-node report. The report is nil
// only when the graph could not be decoded or its node names are invalid.
func LoadWithReport(ctx context.Context, data []byte, opts Options) (*Graph, *Report, error) {
	g, err := tfgraph.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return build(ctx, g, opts)
}

// ListSupportedOps returns the sorted ops that have an extractor enabled by default.
func ListSupportedOps() []string {
	return extractors.NewRegistry().SupportedOps()
}

// ListRegistrations returns every registered extractor, enabled or not, sorted by op.
func ListRegistrations() []Registration {
	return extractors.NewRegistry().Registrations()
}

func build(ctx context.Context, g *tfgraph.GraphDef, opts Options) (*Graph, *Report, error) {
	reg, err := newRegistry(opts)
	if err != nil {
		return nil, nil, err
	}
	return builder.New(reg, opts.Build).BuildWithReport(ctx, g)
}

func newRegistry(opts Options) (*registry.Registry, error) {
	reg := registry.New()
	if err := extractors.RegisterAll(reg); err != nil {
		return nil, errors.Wrap(err, "failed to register extractors")
	}
	ops := &config.Config{Ops: config.Ops{Enabled: opts.Enable, Disabled: opts.Disable}}
	if err := ops.ApplyOps(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
