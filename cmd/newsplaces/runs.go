package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"newsplaces/internal/app"
)

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent task executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				runs, err := a.DB().ListTaskRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "FINISHED\tTASK\tSTATUS\tATTEMPTS\tDURATION\tERROR")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
						formatTime(r.FinishedAt, a.Location()), r.Name, r.Status, r.Attempts, r.FinishedAt.Sub(r.StartedAt), r.Error)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max rows")
	return cmd
}
