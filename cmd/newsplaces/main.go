package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"newsplaces/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "newsplaces",
		Short:         "News digest and place weather service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./config.json", "path to config file (json, yaml or toml)")

	root.AddCommand(
		newServeCmd(opts),
		newSettingsCmd(opts),
		newScheduleCmd(opts),
		newPlacesCmd(opts),
		newNewsCmd(opts),
		newRunsCmd(opts),
	)
	return root
}

// withApp builds the app for a one-shot command and closes it afterwards.
func withApp(opts *rootOptions, fn func(a *app.App) error) error {
	a, err := app.NewApp(opts.configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
