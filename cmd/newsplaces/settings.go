package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"newsplaces/internal/app"
	"newsplaces/internal/settings"
	"newsplaces/internal/task/schedule"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and change runtime settings",
		Long: `Runtime settings are stored in the database and read on every schedule check,
so changes take effect without a restart.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all settings with their current and default values",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(opts, func(a *app.App) error {
					entries, err := a.Settings().List(cmd.Context())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "KEY\tVALUE\tDEFAULT\tOVERRIDDEN")
					for _, e := range entries {
						fmt.Fprintf(w, "%s\t%q\t%q\t%t\n", e.Key, e.Value, e.Default, e.Overridden)
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(opts, func(a *app.App) error {
					v, err := a.Settings().Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Override a setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, value := args[0], args[1]
				return withApp(opts, func(a *app.App) error {
					if err := a.Settings().Set(cmd.Context(), key, value); err != nil {
						return err
					}
					if err := checkScheduleValue(key, value); err != nil {
						cmd.PrintErrf("warning: %v; the schedule will use its default until this is fixed\n", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %q\n", key, value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reset KEY",
			Short: "Remove an override so the default applies",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(opts, func(a *app.App) error {
					if err := a.Settings().Reset(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s reset\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

// checkScheduleValue reports values the schedules would reject.
func checkScheduleValue(key, value string) error {
	var err error
	switch key {
	case settings.EmailSendTime:
		_, err = schedule.ParseFireTime(value)
	case settings.WeatherFetchInterval:
		_, err = schedule.ParseInterval(value)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
