package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"newsplaces/internal/app"
)

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect periodic jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show each schedule's active value, fallback state and next run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				loc := a.Location()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tKIND\tKEY\tACTIVE\tFALLBACK\tLAST RUN\tNEXT RUN\tDUE")
				for _, e := range a.Scheduler().Preview(cmd.Context()) {
					st := e.Schedule
					fallback := "-"
					if st.Fallback {
						fallback = st.Cause
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
						e.Name, st.Kind, st.ConfigKey, st.Active, fallback,
						formatTime(e.LastRun, loc), formatTime(e.NextRun, loc), e.Due)
				}
				return w.Flush()
			})
		},
	})
	return cmd
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format("2006-01-02 15:04:05 MST")
}
