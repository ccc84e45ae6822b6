package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/folio/internal/adapters/reaper"
	"github.com/target/folio/internal/bootstrap"
	"github.com/target/folio/internal/service"
)

func newReapCmd(c *cli) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Run one maintenance sweep: expired reset tokens, login locks, old versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := bootstrap.ConnectDB(ctx, c.cfg.Postgres, c.logger)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer func() {
				if cerr := db.Close(); cerr != nil {
					c.logger.Warn("db close failed", "error", cerr)
				}
			}()

			runner, err := reaper.NewRunner(reaper.RunnerOptions{DB: db, Config: c.cfg.Reaper, Logger: c.logger})
			if err != nil {
				return err
			}
			report, err := runner.RunOnce(ctx)
			if werr := printSweep(cmd, report); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall sweep timeout")
	return cmd
}

func printSweep(cmd *cobra.Command, r service.SweepReport) error {
	return writef(cmd.OutOrStdout(),
		"reset tokens cleared: %d\nlogin locks released: %d\nversions deleted:     %d\nelapsed:              %s\n",
		r.ResetTokens, r.Locks, r.Versions, r.Elapsed.Round(time.Millisecond))
}
