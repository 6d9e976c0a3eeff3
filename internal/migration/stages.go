package migration

import (
	"context"
	"fmt"

	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/gallery"
	"github.com/tphakala/gallery-migrate/internal/legacy"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"github.com/tphakala/gallery-migrate/internal/mapper"
	"github.com/tphakala/gallery-migrate/internal/observability/metrics"
)

// rowPlan describes how one stage walks its source table.
type rowPlan[T any] struct {
	stage   Stage
	table   legacy.Table
	fetch   FetchFunc[T]
	idOf    func(T) uint
	migrate func(ctx context.Context, row T) error

	// deferrable rows whose parent is not migrated yet are left for another
	// pass over the table instead of being skipped.
	deferrable bool
}

type rowResult int

const (
	rowMigrated rowResult = iota
	rowSkipped
	rowDeferred
)

// runRows migrates the rows of one table until the table is exhausted or the
// time guard runs out. A row is marked only after its target record and files
// are written.
func runRows[T any](ctx context.Context, s *slice, plan rowPlan[T]) (bool, error) {
	r := s.runner
	table := r.deps.Source.TableName(plan.table)
	cur := s.state.Cursor(plan.stage.String(), table)

	if cur.Status == "" || cur.Status == checkpoint.StatusPending {
		maxID, err := r.deps.Source.MaxID(ctx, plan.table)
		if err != nil {
			return false, err
		}
		cur.MaxID = maxID
		cur.Begin()
	}
	if cur.Status == checkpoint.StatusComplete {
		return true, nil
	}

	exclude := func(ctx context.Context, ids []uint) (map[uint]bool, error) {
		return r.deps.Store.MigratedAmong(ctx, table, ids)
	}
	rows := NewCursor(plan.fetch, plan.idOf, exclude, cur.LastSourceID, r.cfg.BatchSize)
	counts := s.result.counts(plan.stage)
	defer func() {
		r.deps.Metrics.RecordCursor(table, cur.LastSourceID, cur.MaxID)
	}()

	// The first row is processed even when the budget is already spent, so
	// every slice that enters a stage makes progress.
	for first := true; first || s.guard.Remaining(); first = false {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		row, ok, err := rows.Next(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			if cur.FinishPass() {
				s.log.Info("deferred rows left, starting another pass",
					logger.String("stage", plan.stage.String()),
					logger.Int("pass", cur.Pass),
					logger.Bool("final", cur.Final))
				rows = NewCursor(plan.fetch, plan.idOf, exclude, cur.LastSourceID, r.cfg.BatchSize)
				continue
			}
			s.log.Info("stage finished",
				logger.String("stage", plan.stage.String()),
				logger.Int64("migrated", cur.Migrated),
				logger.Int64("skipped", cur.Skipped))
			return true, nil
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return false, err
			}
		}

		id := plan.idOf(row)
		deferrable := plan.deferrable && !cur.Final
		res, err := s.processRow(ctx, plan.stage, table, id, deferrable, func(ctx context.Context) error {
			return plan.migrate(ctx, row)
		})
		if err != nil {
			return false, err
		}

		if id > cur.LastSourceID {
			cur.LastSourceID = id
		}
		switch res {
		case rowSkipped:
			cur.Skipped++
			counts.Skipped++
		case rowDeferred:
			cur.Deferred++
		default:
			cur.Migrated++
			cur.PassMigrated++
			counts.Migrated++
		}
	}
	return false, nil
}

// processRow migrates one row and marks it. A row whose parent is missing is
// deferred when deferrable; other integrity violations are skipped or
// returned depending on the integrity policy.
func (s *slice) processRow(ctx context.Context, stage Stage, table string, id uint, deferrable bool, migrate func(context.Context) error) (rowResult, error) {
	r := s.runner
	if err := migrate(ctx); err != nil {
		if deferrable && errors.Is(err, gallery.ErrMissingReference) {
			s.log.Debug("row deferred",
				logger.String("table", table),
				logger.Uint64("source_id", uint64(id)),
				logger.Error(err))
			return rowDeferred, nil
		}

		kind := Classify(err)
		r.deps.Metrics.RecordRowError(stage.String(), kind.String())

		if kind != KindIntegrity {
			return rowMigrated, fmt.Errorf("%s row %d: %w", table, id, err)
		}
		if r.cfg.IntegrityPolicy == conf.IntegrityPolicyAbort {
			return rowMigrated, fmt.Errorf("%s row %d: %w", table, id, err)
		}

		if err := r.deps.Store.RecordSkipped(ctx, s.state.Name, table, id, err.Error()); err != nil {
			return rowMigrated, err
		}
		s.log.Warn("row skipped",
			logger.String("table", table),
			logger.Uint64("source_id", uint64(id)),
			logger.Error(err))
		r.deps.Metrics.RecordRow(stage.String(), metrics.RowSkipped)
		return rowSkipped, nil
	}

	if err := r.deps.Store.MarkMigrated(ctx, s.state.Name, table, id); err != nil {
		return rowMigrated, err
	}
	r.deps.Metrics.RecordRow(stage.String(), metrics.RowMigrated)
	return rowMigrated, nil
}

func (s *slice) mapOptions() mapper.Options {
	return mapper.Options{Now: s.guard.Start(), Decode: s.runner.deps.Decode}
}

func (s *slice) migrateCategories(ctx context.Context) (bool, error) {
	r := s.runner
	opts := s.mapOptions()
	return runRows(ctx, s, rowPlan[legacy.Category]{
		stage: StageCategories,
		table: legacy.CategoriesTable,
		fetch: r.deps.Source.CategoriesAfter,
		idOf:  legacy.Category.SourceID,
		migrate: func(ctx context.Context, src legacy.Category) error {
			cat := mapper.Category(src, opts)
			if err := r.deps.Target.PrepareCategory(ctx, &cat); err != nil {
				return err
			}
			if err := r.deps.Assets.PrepareCategory(ctx, cat.Catpath); err != nil {
				return err
			}
			return r.deps.Target.WriteCategory(ctx, &cat)
		},
		// 4images lets a category move under a parent created later.
		deferrable: true,
	})
}

func (s *slice) rebuild(ctx context.Context) (bool, error) {
	if err := s.runner.deps.Target.RebuildTree(ctx); err != nil {
		return false, err
	}
	s.log.Info("category tree rebuilt")
	return true, nil
}

func (s *slice) migrateImages(ctx context.Context) (bool, error) {
	r := s.runner
	opts := s.mapOptions()
	return runRows(ctx, s, rowPlan[legacy.Image]{
		stage: StageImages,
		table: legacy.ImagesTable,
		fetch: r.deps.Source.ImagesAfter,
		idOf:  legacy.Image.SourceID,
		migrate: func(ctx context.Context, src legacy.Image) error {
			img := mapper.Image(src, opts)
			catPath, err := r.deps.Target.CategoryPath(ctx, img.CatID)
			if err != nil {
				return err
			}

			paths := r.relocator.Paths(src.CatID, src.ImageMediaFile, src.ImageThumbFile)
			placed, err := r.deps.Assets.Place(ctx, gallery.AssetRequest{
				CatPath:   catPath,
				FileName:  img.ImgFilename,
				Original:  paths.Original,
				Thumbnail: paths.Thumbnail,
			})
			if err != nil {
				return err
			}
			img.ImgFilename = placed.FileName
			img.ImgThumbName = placed.FileName

			return r.deps.Target.WriteImage(ctx, &img)
		},
	})
}

func (s *slice) migrateComments(ctx context.Context) (bool, error) {
	r := s.runner
	opts := s.mapOptions()
	return runRows(ctx, s, rowPlan[legacy.Comment]{
		stage: StageComments,
		table: legacy.CommentsTable,
		fetch: r.deps.Source.CommentsAfter,
		idOf:  legacy.Comment.SourceID,
		migrate: func(ctx context.Context, src legacy.Comment) error {
			cmt := mapper.Comment(src, opts)
			return r.deps.Target.WriteComment(ctx, &cmt)
		},
	})
}
