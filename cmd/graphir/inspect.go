package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/born-ml/graphir/importer"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <graph.pb>",
		Short: "Print op counts and constant sizes of a GraphDef",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := importer.Inspect(args[0])
			if err != nil {
				return err
			}
			printSummary(cmd, s)
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, s *importer.Summary) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "producer: %d, min consumer: %d\n", s.Producer, s.MinConsumer)
	fmt.Fprintf(w, "nodes: %s, ops: %d\n", humanize.Comma(int64(s.Nodes)), len(s.Ops))
	fmt.Fprintf(w, "constants: %s", humanize.Bytes(uint64(s.ConstantBytes))) //nolint:gosec // G115: never negative.
	if s.Undecodable > 0 {
		fmt.Fprintf(w, " (%d undecodable)", s.Undecodable)
	}
	fmt.Fprintln(w)
	for _, oc := range s.Ops {
		fmt.Fprintf(w, "  %-28s %s\n", oc.Op, humanize.Comma(int64(oc.Count)))
	}
}
