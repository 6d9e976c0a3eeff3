// Package reset provides the reset command.
package reset

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tphakala/gallery-migrate/internal/app"
)

// Command creates and returns the reset command
func Command(rt *app.Runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the task state of a migration",
		Long: `Reset deletes the stage and cursor state of the configured migration so it can be
started again. Per-row marks are kept: rows already migrated are never migrated twice.
An incomplete migration is only reset with --force.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			name := rt.Settings.Migration.Name
			if err := a.Store().DeleteTask(cmd.Context(), name, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migration %s reset\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reset a migration that has not completed")

	return cmd
}
