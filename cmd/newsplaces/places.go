package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"newsplaces/internal/app"
	"newsplaces/internal/storage"
)

func newPlacesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "places",
		Short: "Manage places and their weather history",
	}

	var p storage.Place
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				if err := a.Places().Create(cmd.Context(), &p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "place %d created\n", p.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&p.Name, "name", "", "place name")
	add.Flags().Float64Var(&p.Latitude, "lat", 0, "latitude (-90..90)")
	add.Flags().Float64Var(&p.Longitude, "lon", 0, "longitude (-180..180)")
	add.Flags().IntVar(&p.Rating, "rating", 0, "rating (0..25)")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List places",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				all, err := a.Places().List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tLAT\tLON\tRATING")
				for _, p := range all {
					fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%d\n", p.ID, p.Name, p.Latitude, p.Longitude, p.Rating)
				}
				return w.Flush()
			})
		},
	}

	var limit int
	weather := &cobra.Command{
		Use:   "weather ID",
		Short: "Show a place's weather summaries, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid place id %q", args[0])
			}
			return withApp(opts, func(a *app.App) error {
				rows, err := a.Places().Weather(cmd.Context(), id, limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tTEMP °C\tHUMIDITY %\tPRESSURE mmHg\tWIND DIR\tWIND m/s")
				for _, r := range rows {
					fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%g\n",
						formatTime(r.Timestamp, a.Location()), r.Temperature, r.Humidity, r.Pressure, r.WindDirection, r.WindSpeed)
				}
				return w.Flush()
			})
		},
	}
	weather.Flags().IntVar(&limit, "limit", 20, "max rows (0 = all)")

	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch weather for every place now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				return a.Places().FetchWeather(cmd.Context())
			})
		},
	}

	cmd.AddCommand(add, list, weather, fetch)
	return cmd
}
