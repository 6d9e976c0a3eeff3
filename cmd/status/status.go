// Package status provides the status command.
package status

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/gallery-migrate/internal/app"
	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"gopkg.in/yaml.v3"
)

// Report is the YAML document printed by the status command.
type Report struct {
	Migration   string        `yaml:"migration"`
	State       string        `yaml:"state"`
	Stage       string        `yaml:"stage,omitempty"`
	Invocations int           `yaml:"invocations"`
	LastRunID   string        `yaml:"last_run_id,omitempty"`
	LastError   string        `yaml:"last_error,omitempty"`
	StartedAt   *time.Time    `yaml:"started_at,omitempty"`
	UpdatedAt   *time.Time    `yaml:"updated_at,omitempty"`
	CompletedAt *time.Time    `yaml:"completed_at,omitempty"`
	Tables      []TableReport `yaml:"tables,omitempty"`
}

// TableReport is the cursor of one source table.
type TableReport struct {
	Table        string `yaml:"table"`
	Stage        string `yaml:"stage"`
	Status       string `yaml:"status"`
	LastSourceID uint   `yaml:"last_source_id"`
	MaxID        uint   `yaml:"max_id"`
	Migrated     int64  `yaml:"migrated"`
	Skipped      int64  `yaml:"skipped"`
	Pass         int    `yaml:"pass,omitempty"`
	Deferred     int64  `yaml:"deferred,omitempty"`
	Progress     string `yaml:"progress"`
}

// Command creates and returns the status command
func Command(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the progress of the migration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.Open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			report, err := Build(cmd.Context(), a.Store(), rt.Settings.Migration.Name)
			if err != nil {
				return err
			}
			return Write(cmd.OutOrStdout(), report)
		},
	}
}

// Build collects the report of a migration. A migration that never ran is
// reported as not started.
func Build(ctx context.Context, store *checkpoint.Store, name string) (*Report, error) {
	state, err := store.GetTask(ctx, name)
	if errors.IsNotFound(err) {
		return &Report{Migration: name, State: "not started"}, nil
	}
	if err != nil {
		return nil, err
	}

	report := &Report{
		Migration:   name,
		State:       "in progress",
		Stage:       state.Stage,
		Invocations: state.Invocations,
		LastRunID:   state.RunID,
		LastError:   state.LastError,
		StartedAt:   nonZero(state.StartedAt),
		UpdatedAt:   nonZero(state.UpdatedAt),
		CompletedAt: state.CompletedAt,
	}
	if state.Completed() {
		report.State = "done"
	}

	for _, table := range stageOrdered(state) {
		c := state.Cursors[table]
		report.Tables = append(report.Tables, TableReport{
			Table:        c.Table,
			Stage:        c.Stage,
			Status:       c.Status,
			LastSourceID: c.LastSourceID,
			MaxID:        c.MaxID,
			Migrated:     c.Migrated,
			Skipped:      c.Skipped,
			Pass:         c.Pass,
			Deferred:     c.Deferred,
			Progress:     fmt.Sprintf("%.1f%%", c.Progress()*100),
		})
	}
	return report, nil
}

// stageOrdered returns the cursor tables in the order their stages run.
func stageOrdered(state *checkpoint.TaskState) []string {
	tables := make([]string, 0, len(state.Cursors))
	for table := range state.Cursors {
		tables = append(tables, table)
	}
	rank := func(table string) int {
		if i := slices.Index(state.Stages, state.Cursors[table].Stage); i >= 0 {
			return i
		}
		return len(state.Stages)
	}
	slices.SortFunc(tables, func(a, b string) int {
		if d := rank(a) - rank(b); d != 0 {
			return d
		}
		if a < b {
			return -1
		}
		if a > b {
			return 1
		}
		return 0
	})
	return tables
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Write encodes report as YAML.
func Write(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return enc.Close()
}
