package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/born-ml/graphir/importer"
)

type convertFlags struct {
	configPath  string
	outFile     string
	collectAll  bool
	passThrough bool
	workers     int
	maxConst    string
	enable      []string
	disable     []string
	metrics     bool
}

func newConvertCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert <graph.pb>",
		Short: "Build the IR of a GraphDef and write it as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args[0], &f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&f.outFile, "output", "o", "", "Write the IR to this file instead of stdout")
	flags.BoolVar(&f.collectAll, "collect-all", false, "Report every node failure instead of stopping at the first")
	flags.BoolVar(&f.passThrough, "pass-through", false, "Keep nodes without an extractor as PassThrough nodes")
	flags.IntVar(&f.workers, "workers", 1, "Extraction workers; 1 runs sequentially")
	flags.StringVar(&f.maxConst, "max-constant-bytes", "", `Largest constant to materialize, e.g. "256MiB"; "0" disables the limit`)
	flags.StringSliceVar(&f.enable, "enable", nil, "Enable the extractor of these ops")
	flags.StringSliceVar(&f.disable, "disable", nil, "Disable the extractor of these ops")
	flags.BoolVar(&f.metrics, "metrics", false, "Print extraction metrics to stderr")
	return cmd
}

func runConvert(cmd *cobra.Command, path string, f *convertFlags) error {
	opts, err := convertOptions(cmd, f)
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	if f.metrics {
		reg = prometheus.NewRegistry()
		if opts.Build.Metrics, err = importer.NewMetrics(reg); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: graph path is provided by the user.
	if err != nil {
		return errors.Wrapf(err, "failed to read %q", path)
	}
	graph, report, err := importer.LoadWithReport(cmd.Context(), data, opts)
	if reg != nil {
		if werr := importer.WriteMetrics(cmd.ErrOrStderr(), reg); werr != nil {
			klog.Errorf("failed to write metrics: %v", werr)
		}
	}
	if err != nil {
		printFailures(cmd.ErrOrStderr(), report)
		return errors.WithMessagef(err, "failed to convert %q", path)
	}
	klog.V(1).Infof("built %d nodes from %q", graph.Len(), path)

	if f.outFile == "" {
		return graph.WriteYAML(cmd.OutOrStdout())
	}
	out, err := os.Create(f.outFile)
	if err != nil {
		return errors.Wrap(err, "failed to create output")
	}
	if err := graph.WriteYAML(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// convertOptions loads the configuration and applies the flags the user set on top of it.
func convertOptions(cmd *cobra.Command, f *convertFlags) (importer.Options, error) {
	cfg, err := importer.LoadConfig(f.configPath)
	if err != nil {
		return importer.Options{}, err
	}
	opts, err := importer.OptionsFromConfig(cfg)
	if err != nil {
		return importer.Options{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("collect-all") {
		opts.Build.ErrorMode = importer.FailFast
		if f.collectAll {
			opts.Build.ErrorMode = importer.CollectAll
		}
	}
	if flags.Changed("pass-through") {
		opts.Build.Unmatched = importer.UnmatchedFail
		if f.passThrough {
			opts.Build.Unmatched = importer.UnmatchedPassThrough
		}
	}
	if flags.Changed("workers") {
		opts.Build.Workers = f.workers
	}
	if flags.Changed("max-constant-bytes") {
		limit, err := importer.ParseMaxConstantBytes(f.maxConst)
		if err != nil {
			return importer.Options{}, err
		}
		opts.Build.MaxConstantBytes = limit
	}
	opts.Enable = append(opts.Enable, f.enable...)
	opts.Disable = append(opts.Disable, f.disable...)
	return opts, nil
}

func printFailures(w io.Writer, report *importer.Report) {
	if report == nil {
		return
	}
	for _, ns := range report.Nodes {
		if ns.State == importer.Failed {
			fmt.Fprintf(w, "FAILED %s\n", ns.Err)
		}
	}
	fmt.Fprintf(w, "%d populated, %d failed, %d pending\n",
		report.Count(importer.Populated), report.Count(importer.Failed), report.Count(importer.Pending))
}
