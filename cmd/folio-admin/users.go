package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/target/folio/internal/bootstrap"
	"github.com/target/folio/internal/service"
)

// passwordEnv is read when --password-stdin is not given.
const passwordEnv = "FOLIO_ADMIN_PASSWORD"

func readSecretLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newCreateUserCmd(c *cli) *cobra.Command {
	var (
		email         string
		collection    string
		rawData       string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user in an auth-enabled collection, bypassing access rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv(passwordEnv)
			if passwordStdin {
				var err error
				if password, err = readSecretLine(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			if password == "" {
				return fmt.Errorf("password required: pipe it with --password-stdin or set %s", passwordEnv)
			}

			fields := map[string]any{}
			if rawData != "" {
				if err := json.Unmarshal([]byte(rawData), &fields); err != nil {
					return fmt.Errorf("--data must be a JSON object: %w", err)
				}
			}
			fields["email"] = email
			fields["password"] = password
			if collection == "" {
				collection = c.cfg.Admin.UserSlug
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

			doc, err := services.Docs.Create(ctx, service.WriteRequest{
				Collection: collection,
				Data:       fields,
				Read:       service.ReadOptions{Depth: 0},
				Caller:     service.Caller{OverrideAccess: true},
			})
			if err != nil {
				return err
			}
			return writef(cmd.OutOrStdout(), "created %s %v\n", collection, doc["id"])
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the new user")
	cmd.Flags().StringVar(&collection, "collection", "", "auth collection (defaults to ADMIN_USER_SLUG)")
	cmd.Flags().StringVar(&rawData, "data", "", "additional fields as a JSON object")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newHashAPIKeyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-api-key",
		Short: "Print the stored index of an API key read from stdin",
		Long: "Reads an API key from stdin and prints the digest Folio stores in apiKeyIndex. " +
			"The key is never echoed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := readSecretLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read api key: %w", err)
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("no api key on stdin")
			}
			return writef(cmd.OutOrStdout(), "%s\n", service.APIKeyIndex([]byte(c.cfg.Secret), key))
		},
	}
}
