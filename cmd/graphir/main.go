// Package main provides the graphir CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	klog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "graphir",
		Short: "graphir converts TensorFlow GraphDef files into an intermediate representation",
		Long: `graphir walks a binary TensorFlow GraphDef, dispatches every node to the extractor
registered for its op and builds a validated graph of typed nodes and edges.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addKlogFlags(root.PersistentFlags())

	root.AddCommand(newConvertCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newOpsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// addKlogFlags exposes -v, --logtostderr and the other klog flags.
func addKlogFlags(flags *pflag.FlagSet) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	flags.AddGoFlagSet(fs)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "graphir %s\n", version)
		},
	}
}
