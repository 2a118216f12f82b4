package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/basehunter/basehunter/internal/scheduler"
)

func scheduleCmd(flags *rootFlags) *cobra.Command {
	var (
		cronExpr string
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run scans on a cron schedule, persisting when DATABASE_URL is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()

			schedCfg := scheduler.DefaultConfig()
			if cronExpr != "" {
				for i := range schedCfg.Jobs {
					schedCfg.Jobs[i].Schedule = cronExpr
				}
			}

			sched := scheduler.New(schedCfg, app.scanner, app.universe, app.repo)

			if once {
				return sched.RunOnce(ctx, "manual")
			}

			if err := sched.Start(ctx); err != nil {
				return err
			}
			status := sched.Status()
			log.Info().
				Int("enabled_jobs", status.EnabledJobs).
				Time("next_run", status.NextRun).
				Msg("scheduler running")

			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Override every job's cron expression")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single scan immediately and exit")
	return cmd
}
