package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	search := &cobra.Command{Use: "search", Short: "Work with the catalog search index"}

	search.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Index every book and report the count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			rt, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			n, err := rt.Domain.Catalog.RebuildIndex(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d books\n", n)
			return nil
		},
	})

	var page int
	query := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a catalog search against a freshly built index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rt, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			if _, err := rt.Domain.Catalog.RebuildIndex(ctx); err != nil {
				return err
			}
			res, err := rt.Domain.Catalog.Search(ctx, strings.Join(args, " "), page)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range res.Items {
				fmt.Fprintf(out, "%6d  %-17s  %s / %s\n", b.ID, b.ISBN, b.Title, b.Author)
			}
			fmt.Fprintf(out, "page %d of %d, %d matches\n", res.Page.Page, res.Page.TotalPages, res.Page.Total)
			return nil
		},
	}
	query.Flags().IntVar(&page, "page", 1, "result page")
	search.AddCommand(query)
	return search
}
