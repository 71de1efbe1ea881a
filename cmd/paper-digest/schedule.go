// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run digests on a cron schedule until interrupted",
	Long: `Schedule stays in the foreground and runs a digest at every trigger of
the configured schedule (a daily HH:MM time or a five-field cron
expression, evaluated in the configured timezone). A trigger that fires
while a run is still in progress is skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := schedule.New(cfg.Schedule.Timezone, logger)
		if err != nil {
			return err
		}
		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		job := func(ctx context.Context) error {
			_, err := runDigest(ctx, cfg, metricsFile, cmd.OutOrStdout())
			return err
		}
		if err := s.Add(ctx, cfg.Schedule.Cron, job); err != nil {
			return err
		}

		if now, _ := cmd.Flags().GetBool("now"); now {
			if err := job(ctx); err != nil {
				logger.Error().Err(err).Msg("initial run failed")
			}
		}
		logger.Info().Time("next", s.Next()).Msg("waiting for next trigger")
		s.Run(ctx)
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("cron", "", "daily HH:MM time or cron expression")
	scheduleCmd.Flags().String("timezone", "", "IANA timezone for the schedule")
	scheduleCmd.Flags().Bool("now", false, "run once immediately before waiting")
	scheduleCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after each run")

	_ = viper.BindPFlag("schedule.cron", scheduleCmd.Flags().Lookup("cron"))
	_ = viper.BindPFlag("schedule.timezone", scheduleCmd.Flags().Lookup("timezone"))

	rootCmd.AddCommand(scheduleCmd)
}
