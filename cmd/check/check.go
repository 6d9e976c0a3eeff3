// Package check provides the check command.
package check

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tphakala/gallery-migrate/internal/app"
)

// Command creates and returns the check command
func Command(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify source tables, directories and the asset root without migrating",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Check(cmd.Context()); err != nil {
				return fmt.Errorf("preflight failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "preflight passed")
			return nil
		},
	}
}
