package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/graphir/importer"
)

func newOpsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "List the ops with a registered extractor",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			for _, reg := range importer.ListRegistrations() {
				switch {
				case reg.Enabled:
					fmt.Fprintln(w, reg.Op)
				case all:
					fmt.Fprintf(w, "%s (disabled)\n", reg.Op)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled extractors")
	return cmd
}
