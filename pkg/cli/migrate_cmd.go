package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	internaldb "gridbase/internal/db"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending metadata schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pools, err := opts.openPools()
			if err != nil {
				return err
			}
			defer pools.Close() //nolint:errcheck

			if !statusOnly {
				if err := internaldb.RunMigrations(pools.Write, pools.Dialect); err != nil {
					return err
				}
			}
			v, err := internaldb.MigrationVersion(pools.Write, pools.Dialect)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]any{
					"dialect": string(pools.Dialect),
					"version": v,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", pools.Dialect, v)
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "Only report the current schema version")

	return cmd
}
