package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biblionet/biblionet-backend/internal/cron"
)

func newJobsCmd() *cobra.Command {
	jobs := &cobra.Command{Use: "jobs", Short: "Inspect and trigger periodic jobs"}

	jobs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the registered jobs and their schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			rt, err := bootstrap(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()
			registry, err := rt.Domain.CronRegistry(rt.Config.Cron, rt.Logger)
			if err != nil {
				return err
			}
			for _, job := range registry.Jobs() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", job.Name(), job.Schedule())
			}
			return nil
		},
	})

	jobs.AddCommand(&cobra.Command{
		Use:       "run <job>",
		Short:     "Run one job now under its cluster lock",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{cron.MoraSweepJob, cron.ReservationExpiryJob, cron.OverdueReminderJob},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			rt, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()
			registry, err := rt.Domain.CronRegistry(rt.Config.Cron, rt.Logger)
			if err != nil {
				return err
			}
			location, err := rt.Config.App.Location()
			if err != nil {
				return err
			}
			svc, err := cron.NewService(cron.ServiceParams{
				Logger:   rt.Logger,
				Registry: registry,
				Locks: cron.RedisLocks(rt.Redis, func(job string) string {
					return rt.Redis.LockKey("cron", job)
				}, rt.Config.Cron.LockTTL),
				Location: location,
			})
			if err != nil {
				return err
			}
			if err := svc.RunOnce(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s finished\n", args[0])
			return nil
		},
	})
	return jobs
}
