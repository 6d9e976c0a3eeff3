// Package run provides the run command.
package run

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/gallery-migrate/internal/app"
	"github.com/tphakala/gallery-migrate/internal/migration"
)

// Command creates and returns the run command
func Command(rt *app.Runtime) *cobra.Command {
	var untilDone bool
	var pause time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one time-boxed migration slice",
		Long: `Run migrates rows until the time budget is spent, saves its progress and exits.
Exit status 0 means the migration is done, 3 that work remains and the command
should be invoked again, 1 that an operator must intervene.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runMigration(ctx, cmd, rt, untilDone, pause)
		},
	}

	cmd.Flags().BoolVar(&untilDone, "until-done", false, "Run slices back to back until the migration is done")
	cmd.Flags().DurationVar(&pause, "pause", 0, "Pause between slices with --until-done")

	return cmd
}

func runMigration(ctx context.Context, cmd *cobra.Command, rt *app.Runtime, untilDone bool, pause time.Duration) error {
	a, err := rt.Open(ctx)
	if err != nil {
		return &app.ExitError{Code: app.ExitFatal, Err: err}
	}
	defer func() { _ = a.Close() }()

	var res migration.Result
	if untilDone {
		res = a.RunUntilDone(ctx, pause)
	} else {
		runner, err := a.NewRunner()
		if err != nil {
			return &app.ExitError{Code: app.ExitFatal, Err: err}
		}
		res = a.RunSlice(ctx, runner)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: stage %s, %d migrated, %d skipped in %s\n",
		res.Outcome, res.Stage, res.Migrated(), res.Skipped(), res.Elapsed.Round(time.Millisecond))

	if code := app.ExitCode(res.Outcome); code != app.ExitDone {
		return &app.ExitError{Code: code, Err: res.Err}
	}
	return nil
}
