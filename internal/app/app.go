// Package app wires settings, databases and the migration engine together for
// the command line.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/datastore"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/gallery"
	"github.com/tphakala/gallery-migrate/internal/legacy"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"github.com/tphakala/gallery-migrate/internal/migration"
	"github.com/tphakala/gallery-migrate/internal/observability/metrics"
)

const bytesPerMB = 1024 * 1024

// App holds the opened target database and checkpoint store. The source is
// opened on demand since only running and checking need it.
type App struct {
	settings *conf.Settings
	log      logger.Logger

	target   datastore.Manager
	source   datastore.Manager
	store    *checkpoint.Store
	registry *prometheus.Registry
	metrics  *metrics.MigrationMetrics
}

// Open opens the target database and prepares the gallery and checkpoint tables.
func Open(ctx context.Context, settings *conf.Settings, log logger.Logger) (*App, error) {
	target, err := datastore.Open(&datastore.Config{
		Settings:    settings.Target.Database,
		TablePrefix: settings.Target.TablePrefix,
		Logger:      log.Module("datastore"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open target database: %w", err)
	}

	a := &App{
		settings: settings,
		log:      log.Module("app"),
		target:   target,
		store:    checkpoint.NewStore(target.DB()),
		registry: prometheus.NewRegistry(),
	}

	if err := gallery.Initialize(ctx, target.DB()); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.store.Initialize(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.metrics, err = metrics.NewMigrationMetrics(a.registry)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a.log.Debug("target opened",
		logger.String("driver", settings.Target.Database.Driver),
		logger.String("location", target.Path()))
	return a, nil
}

// Store returns the checkpoint store.
func (a *App) Store() *checkpoint.Store {
	return a.store
}

// Source opens the legacy database on first use.
func (a *App) Source() (*legacy.Source, error) {
	if a.source == nil {
		src, err := datastore.Open(&datastore.Config{
			Settings:    a.settings.Source.Database,
			TablePrefix: a.settings.Source.TablePrefix,
			Logger:      a.log.Module("datastore"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open source database: %w", err)
		}
		a.source = src
	}
	return legacy.NewSource(a.source.DB(), a.settings.Source.TablePrefix, a.settings.Source.Path, a.log), nil
}

// Assets returns the asset placer configured by the target settings.
func (a *App) Assets() *gallery.Assets {
	t := a.settings.Target
	return gallery.NewAssets(gallery.AssetConfig{
		Root:          t.AssetRoot,
		DetailWidth:   t.DetailWidth,
		DetailHeight:  t.DetailHeight,
		ThumbWidth:    t.ThumbWidth,
		ThumbHeight:   t.ThumbHeight,
		JPEGQuality:   t.JPEGQuality,
		MoveOriginals: t.MoveOriginals,
		MinFreeBytes:  t.MinFreeMB * bytesPerMB,
	}, a.log)
}

// Check runs the preflight checks of a slice without migrating anything.
func (a *App) Check(ctx context.Context) error {
	src, err := a.Source()
	if err != nil {
		return err
	}
	if _, err := legacy.NewDecoder(a.settings.Source.Charset); err != nil {
		return err
	}
	return errors.Join(src.Check(ctx), a.Assets().Check(ctx))
}

// NewRunner builds a runner for the configured migration.
func (a *App) NewRunner() (*migration.Runner, error) {
	src, err := a.Source()
	if err != nil {
		return nil, err
	}
	decode, err := legacy.NewDecoder(a.settings.Source.Charset)
	if err != nil {
		return nil, err
	}

	m := a.settings.Migration
	return migration.NewRunner(migration.Config{
		Name:            m.Name,
		Budget:          m.EffectiveBudget(),
		IntegrityPolicy: m.IntegrityPolicy,
		RowsPerSecond:   m.RowsPerSecond,
		BatchSize:       m.BatchSize,
	}, migration.Dependencies{
		Source:  src,
		Target:  gallery.NewWriter(a.target.DB(), a.log),
		Store:   a.store,
		Assets:  a.Assets(),
		Metrics: a.metrics,
		Decode:  decode,
		Logger:  a.log,
	})
}

// RunSlice runs one slice and exports the metrics afterwards.
func (a *App) RunSlice(ctx context.Context, runner *migration.Runner) migration.Result {
	res := runner.RunSlice(ctx)
	a.exportMetrics()
	return res
}

// RunUntilDone runs slices back to back until the migration is done, fails,
// hits a retryable error or ctx is cancelled. Each slice is still bounded by
// the time budget and gets its own runner, so no gallery lookup cache
// outlives a slice.
func (a *App) RunUntilDone(ctx context.Context, pause time.Duration) migration.Result {
	for {
		runner, err := a.NewRunner()
		if err != nil {
			return migration.Result{Outcome: migration.OutcomeFatal, Err: err}
		}
		res := a.RunSlice(ctx, runner)
		if res.Outcome != migration.OutcomeContinue || res.Err != nil || ctx.Err() != nil {
			return res
		}
		if pause > 0 {
			select {
			case <-ctx.Done():
				return res
			case <-time.After(pause):
			}
		}
	}
}

func (a *App) exportMetrics() {
	path := a.settings.Metrics.TextfilePath
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.log.Warn("failed to write metrics textfile",
			logger.String("path", path),
			logger.Error(err))
	}
}

// Close closes the opened databases.
func (a *App) Close() error {
	var errs []error
	if a.source != nil {
		errs = append(errs, a.source.Close())
	}
	if a.target != nil {
		errs = append(errs, a.target.Close())
	}
	return errors.Join(errs...)
}
