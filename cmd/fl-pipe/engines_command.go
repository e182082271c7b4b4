package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weak-head/fl-pipe/internal/engine"
)

func newEnginesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "engines",
		Short:       "List the conversion engines built into this binary",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors := engine.DefaultRegistry().Describe()

			rows := make([][]string, 0, len(descriptors))
			for _, d := range descriptors {
				rows = append(rows, []string{d.Name, strings.Join(d.MimeTypes, ", "), d.Description})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, []string{"Engine", "MIME types", "Description"}, rows, nil))
			return nil
		},
	}
}
