package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/integra-harvester/internal/source"
)

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the known portals",
		Args:  cobra.NoArgs,
		// Listing needs no store.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREGION\tURL")
			for _, s := range source.Default().All() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Region, s.BaseURL)
			}
			return w.Flush()
		},
	}
}
