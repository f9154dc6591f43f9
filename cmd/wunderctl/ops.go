package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/app"
	"github.com/bryanwahyu/wunderbrand/internal/infra/db"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()

			d := db.Dialect(cfg.Database.Driver)
			conn, err := db.Connect(ctx, d, cfg.DatabaseDSN())
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := db.Migrate(ctx, conn, d); err != nil {
				return err
			}
			c.logger.Info("schema applied", zap.String("driver", string(d)))
			return nil
		},
	}
}

func (c *cli) jobsCmd() *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Run scheduled jobs by hand",
	}
	jobs.AddCommand(&cobra.Command{
		Use:       "run <name>",
		Short:     "Run one job now: entitlement-sweeper, followup-nudge or sync-retry",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"entitlement-sweeper", "followup-nudge", "sync-retry"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			cfg.Server.AutoMigrate = false
			ctx, cancel := c.context(cmd)
			defer cancel()

			a, err := app.Build(ctx, cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.ScheduleJobs(ctx, false); err != nil {
				return err
			}
			if err := a.Scheduler.RunOnce(ctx, args[0]); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(a.Scheduler.Statuses())
		},
	})
	jobs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List job names and their cron specs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-22s %s\n", "entitlement-sweeper", cfg.Jobs.EntitlementSweep)
			fmt.Fprintf(out, "%-22s %s\n", "followup-nudge", cfg.Jobs.FollowupNudge)
			fmt.Fprintf(out, "%-22s %s\n", "sync-retry", cfg.Jobs.SyncRetry)
			return nil
		},
	})
	return jobs
}
