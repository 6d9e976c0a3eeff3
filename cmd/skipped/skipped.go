// Package skipped provides the skipped command.
package skipped

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/gallery-migrate/internal/app"
	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"gopkg.in/yaml.v3"
)

// Row is one skipped source row in the command output.
type Row struct {
	Table    string    `yaml:"table"`
	SourceID uint      `yaml:"source_id"`
	Reason   string    `yaml:"reason"`
	LastSeen time.Time `yaml:"last_seen"`
}

// Command creates and returns the skipped command
func Command(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "skipped",
		Short: "List source rows skipped for manual remediation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rows, err := a.Store().ListSkipped(cmd.Context(), rt.Settings.Migration.Name)
			if err != nil {
				return err
			}
			return Write(cmd.OutOrStdout(), rows)
		},
	}
}

// Write prints rows as a YAML list, or a short note when there are none.
func Write(w io.Writer, rows []checkpoint.MigrationSkippedRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no skipped rows")
		return err
	}

	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = Row{
			Table:    r.SourceTable,
			SourceID: r.SourceID,
			Reason:   r.Reason,
			LastSeen: r.UpdatedAt.UTC(),
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode skipped rows: %w", err)
	}
	return enc.Close()
}
