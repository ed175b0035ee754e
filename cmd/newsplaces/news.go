package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"newsplaces/internal/app"
	"newsplaces/internal/storage"
)

func newNewsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Manage news and the daily digest",
	}

	var (
		n         storage.News
		imagePath string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Publish a news item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			img, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			n.MainImage = img
			return withApp(opts, func(a *app.App) error {
				if err := a.News().Create(cmd.Context(), &n); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "news %d published (preview: %t)\n", n.ID, n.PreviewImage != nil)
				return nil
			})
		},
	}
	add.Flags().StringVar(&n.Title, "title", "", "headline")
	add.Flags().StringVar(&n.Content, "content", "", "body text")
	add.Flags().StringVar(&n.Author, "author", "", "author name")
	add.Flags().StringVar(&imagePath, "image", "", "main image file (jpeg, png, gif, webp, bmp)")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("image")

	list := &cobra.Command{
		Use:   "list",
		Short: "List news, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				all, err := a.News().List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tPUBLISHED\tAUTHOR\tTITLE\tPREVIEW")
				for _, n := range all {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", n.ID, formatTime(n.PublishedAt, a.Location()), n.Author, n.Title, n.PreviewImage != nil)
				}
				return w.Flush()
			})
		},
	}

	digest := &cobra.Command{
		Use:   "digest",
		Short: "Send today's digest now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(a *app.App) error {
				return a.News().SendDigest(cmd.Context())
			})
		},
	}

	cmd.AddCommand(add, list, digest)
	return cmd
}
