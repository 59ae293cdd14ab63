package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/integra-harvester/internal/app"
)

func newHarvestCmd() *cobra.Command {
	var normalizeAfter bool
	cmd := &cobra.Command{
		Use:   "harvest [SOURCE...]",
		Short: "Harvest the named sources, or every source when none is given",
		Long: `Pages through each portal's people listing, keeps staff whose role matches a
teaching term, fetches their detail records and upserts them by slug. Re-running
updates records in place. An interrupt stops new requests; records already
fetched are still saved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, len(args))
			for i, arg := range args {
				ids[i] = strings.ToUpper(strings.TrimSpace(arg))
			}
			return withStatusServer(cmd.Context(), a, func(ctx context.Context) error {
				report, err := a.Harvest(ctx, ids)
				if err != nil {
					return err
				}
				printHarvestReport(cmd, report)
				if !normalizeAfter || report.Interrupted {
					return nil
				}
				stats, err := a.NormalizeAll(ctx)
				if err != nil {
					return err
				}
				printNormalizeStats(cmd, stats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&normalizeAfter, "normalize", false, "normalize every stored record after harvesting")
	return cmd
}

func printHarvestReport(cmd *cobra.Command, r app.HarvestReport) {
	w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTOTAL\tLISTED\tCANDIDATES\tDETAILS\tSAVED\tFAILED\tERRORS\tNOTE")
	for _, s := range r.Sources {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			s.Source, s.TotalHint, s.Listed, s.Candidates, s.DetailsCollected,
			s.Saved, s.Failed, s.RequestErrors, s.Diagnostic)
	}
	_ = w.Flush()
	fmt.Fprintf(out(cmd), "run %s: %d saved, %d failed in %s\n",
		r.RunID, r.Saved, r.Failed, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	if len(r.Unknown) > 0 {
		fmt.Fprintf(out(cmd), "unknown sources ignored: %s\n", strings.Join(r.Unknown, ", "))
	}
	if r.Interrupted {
		fmt.Fprintln(out(cmd), "interrupted: results are partial")
	}
}
