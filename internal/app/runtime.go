package app

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/tphakala/gallery-migrate/internal/buildinfo"
	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"github.com/tphakala/gallery-migrate/internal/migration"
)

const sentryFlushTimeout = 2 * time.Second

// Exit codes of the run command.
const (
	ExitDone     = 0
	ExitFatal    = 1
	ExitContinue = 3
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a slice outcome to the exit code of the run command.
func ExitCode(outcome migration.Outcome) int {
	switch outcome {
	case migration.OutcomeDone:
		return ExitDone
	case migration.OutcomeContinue:
		return ExitContinue
	default:
		return ExitFatal
	}
}

// Runtime is the process-wide state shared by the commands: build metadata,
// loaded settings and the central logger.
type Runtime struct {
	Build    *buildinfo.Context
	Settings *conf.Settings

	central *logger.CentralLogger
}

// NewRuntime returns a runtime for the given build.
func NewRuntime(build *buildinfo.Context) *Runtime {
	return &Runtime{Build: build}
}

// Init loads the settings, starts logging and, when a DSN is configured,
// error telemetry.
func (r *Runtime) Init(configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	r.Settings = settings

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(fmt.Errorf("failed to initialize logging: %w", err)).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	r.central = central

	if err := errors.InitSentry(settings.Telemetry.SentryDSN, r.Build.Release()); err != nil {
		r.Logger("app").Warn("error telemetry disabled", logger.Error(err))
	}

	r.Logger("app").Debug("settings loaded",
		logger.String("version", r.Build.GetVersion()),
		logger.String("migration", settings.Migration.Name))
	return nil
}

// Logger returns a module logger.
func (r *Runtime) Logger(module string) logger.Logger {
	return r.central.Module(module)
}

// Open opens the target database of the loaded settings.
func (r *Runtime) Open(ctx context.Context) (*App, error) {
	return Open(ctx, r.Settings, r.central.Module("migrate"))
}

// Close flushes pending telemetry events and closes the log file.
func (r *Runtime) Close() error {
	if errors.GetTelemetryReporter() != nil {
		sentry.Flush(sentryFlushTimeout)
	}
	if r.central == nil {
		return nil
	}
	return r.central.Close()
}
