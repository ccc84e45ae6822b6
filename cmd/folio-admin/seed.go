package main

import (
	"github.com/spf13/cobra"

	"github.com/target/folio/internal/bootstrap"
	"github.com/target/folio/internal/devseed"
)

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load fixture documents and globals, skipping any that already exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := devseed.Load(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			infra, err := bootstrap.Connect(ctx, &c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := infra.Close(); cerr != nil {
					c.logger.Warn("close infrastructure failed", "error", cerr)
				}
			}()
			services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
				Config:      &c.cfg,
				DB:          infra.DB,
				RedisClient: infra.Redis,
				Logger:      c.logger,
			})
			if err != nil {
				return err
			}

			res, err := devseed.New(services.Docs, services.Schema, c.logger).Run(ctx, file)
			if werr := writef(cmd.OutOrStdout(), "created: %d\nskipped: %d\nfailed:  %d\n",
				res.Created, res.Skipped, res.Failed); werr != nil {
				return werr
			}
			return err
		},
	}
}
