package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/integra-harvester/internal/normalize"
	"github.com/JakeFAU/integra-harvester/internal/store"
)

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Rebuild the derived tables from every stored raw record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := a.NormalizeAll(cmd.Context())
			if err != nil {
				return err
			}
			printNormalizeStats(cmd, stats)
			return nil
		},
	}
}

func printNormalizeStats(cmd *cobra.Command, s normalize.Stats) {
	fmt.Fprintf(out(cmd), "normalized %d records (%d parse errors, %d delete errors, %d load errors, %d row errors, %d rows filtered)\n",
		s.Processed, s.ParseErrors, s.DeleteErrors, s.LoadErrors, s.RowErrors, s.Filtered)
	w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tROWS\tRECORDS")
	for _, e := range store.Entities() {
		fmt.Fprintf(w, "%s\t%d\t%d\n", e, s.Rows[e], s.Coverage[e])
	}
	_ = w.Flush()
}
