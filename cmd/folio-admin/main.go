package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/target/folio/config"
	"github.com/target/folio/internal/bootstrap"
)

// cli carries what every subcommand needs. loadConfig is replaced in tests.
type cli struct {
	logger     *slog.Logger
	loadConfig func() (config.AppConfig, error)
	cfg        config.AppConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &cli{logger: bootstrap.InitLogger(), loadConfig: bootstrap.LoadConfig}
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		c.logger.ErrorContext(ctx, "command failed", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "folio-admin",
		Short:         "Operational commands for a Folio installation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.AddCommand(
		newMigrateCmd(c),
		newRoutesCmd(c),
		newSchemaCmd(c),
		newCreateUserCmd(c),
		newHashAPIKeyCmd(c),
		newProbeCmd(c),
		newReapCmd(c),
		newSeedCmd(c),
	)
	return root
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
