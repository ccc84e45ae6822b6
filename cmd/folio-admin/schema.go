package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/target/folio/internal/adapters/schemafile"
	"github.com/target/folio/internal/bootstrap"
	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
)

func (c *cli) schema(path string) (*schema.Config, error) {
	admin := c.cfg.Admin
	if path != "" {
		admin.SchemaPath = path
	}
	return bootstrap.LoadSchema(admin)
}

func newSchemaCmd(c *cli) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Validate the schema file and print it normalized",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := c.schema(path)
			if err != nil {
				return err
			}
			b, err := schemafile.Marshal(sc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "schema file (defaults to SCHEMA_PATH)")
	return cmd
}

func newRoutesCmd(c *cli) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the admin route table in match order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := c.schema(path)
			if err != nil {
				return err
			}
			custom, err := bootstrap.CustomRoutes(sc)
			if err != nil {
				return err
			}
			table := route.Build(route.BuildInput{
				Collections:     sc.Collections,
				Globals:         sc.Globals,
				UserSlug:        c.cfg.Admin.UserSlug,
				LogoutRoute:     c.cfg.Admin.LogoutRoute,
				InactivityRoute: c.cfg.Admin.InactivityRoute,
				Custom:          custom,
			})
			return printRoutes(cmd.OutOrStdout(), c.cfg.Admin.RoutePrefix, table)
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "schema file (defaults to SCHEMA_PATH)")
	return cmd
}

func printRoutes(w io.Writer, root string, table *route.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "ACCESS\tPATH\tVIEW\tGUARD\tMATCH\n"); err != nil {
		return err
	}
	for _, r := range table.All() {
		access := "protected"
		if r.Public {
			access = "public"
		}
		guard := "-"
		if !r.Guard.IsZero() {
			guard = fmt.Sprintf("%s:%s:%s", r.Guard.Entity, r.Guard.Slug, r.Guard.Action)
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			access, joinRoot(root, r.Pattern), r.View, guard, matchFlags(r.MatchOptions)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func joinRoot(root, pattern string) string {
	if pattern == "/" {
		return root
	}
	return strings.TrimSuffix(root, "/") + pattern
}

func matchFlags(o route.MatchOptions) string {
	var flags []string
	if o.Exact {
		flags = append(flags, "exact")
	}
	if o.Strict {
		flags = append(flags, "strict")
	}
	if o.Sensitive {
		flags = append(flags, "sensitive")
	}
	if len(flags) == 0 {
		return "prefix"
	}
	return strings.Join(flags, ",")
}
