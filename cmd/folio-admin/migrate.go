package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/folio/internal/bootstrap"
	"github.com/target/folio/internal/migrate"
)

const defaultMigrationTimeout = 5 * time.Minute

func newMigrateCmd(c *cli) *cobra.Command {
	var (
		timeout time.Duration
		status  bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
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

			if status {
				pending, err := migrate.Pending(ctx, db)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(pending) == 0 {
					return writef(out, "database is up to date\n")
				}
				for _, v := range pending {
					if err := writef(out, "pending %s\n", v); err != nil {
						return err
					}
				}
				return nil
			}
			return bootstrap.RunMigrations(ctx, db, c.logger)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "overall migration timeout")
	cmd.Flags().BoolVar(&status, "status", false, "list pending migrations without applying them")
	return cmd
}
