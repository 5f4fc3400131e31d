package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/biblionet/biblionet-backend/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "BiblioNet operator tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSeedCmd(), newStaffCmd(), newJobsCmd(), newSearchCmd())
	return root
}

// bootstrap starts the admin process. withRedis also dials Redis for
// commands that take job locks.
func bootstrap(ctx context.Context, withRedis bool) (*app.Runtime, error) {
	return app.Start(ctx, app.StartOptions{Service: "admin", Redis: withRedis})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
