package checkpoint

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/gallery-migrate/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTaskNotFound is returned by GetTask for an unknown migration name.
var ErrTaskNotFound = errors.NewStd("migration task not found")

// ErrTaskIncomplete is returned by DeleteTask for a task that has not finished.
var ErrTaskIncomplete = errors.NewStd("migration task is not complete")

// Store persists task state, cursors, marks and skipped rows.
// All errors returned are categorized as checkpoint errors.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Initialize creates the checkpoint tables.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return checkpointError(fmt.Errorf("failed to migrate checkpoint tables: %w", err), "initialize")
	}
	return nil
}

// GetTask loads a persisted task with its cursors.
func (s *Store) GetTask(ctx context.Context, name string) (*TaskState, error) {
	db := s.db.WithContext(ctx)

	var task MigrationTask
	err := db.Where("name = ?", name).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(fmt.Errorf("%w: %s", ErrTaskNotFound, name)).
			Component("checkpoint").
			Category(errors.CategoryNotFound).
			Context("task", name).
			Build()
	}
	if err != nil {
		return nil, checkpointError(fmt.Errorf("failed to load task %s: %w", name, err), "get_task")
	}

	var cursors []MigrationCursor
	if err := db.Where("task_name = ?", name).Order("source_table").Find(&cursors).Error; err != nil {
		return nil, checkpointError(fmt.Errorf("failed to load cursors of task %s: %w", name, err), "get_task")
	}

	state := &TaskState{
		Name:        task.Name,
		Stage:       task.Stage,
		RunID:       task.RunID,
		Invocations: task.Invocations,
		LastError:   task.LastError,
		StartedAt:   task.StartedAt,
		UpdatedAt:   task.UpdatedAt,
		CompletedAt: task.CompletedAt,
		Cursors:     make(map[string]*CursorState, len(cursors)),
		persisted:   true,
	}
	if task.Stages != "" {
		state.Stages = strings.Split(task.Stages, ",")
	}
	for i := range cursors {
		c := &cursors[i]
		state.Cursors[c.SourceTable] = &CursorState{
			Table:        c.SourceTable,
			Stage:        c.Stage,
			Status:       c.Status,
			LastSourceID: c.LastSourceID,
			MaxID:        c.MaxID,
			Migrated:     c.Migrated,
			Skipped:      c.Skipped,
			Pass:         c.Pass,
			Deferred:     c.Deferred,
			PassMigrated: c.PassMigrated,
			Final:        c.Final,
		}
	}
	return state, nil
}

// LoadTask returns the persisted task, or a fresh unsaved task positioned at
// the first of stages when none exists yet.
func (s *Store) LoadTask(ctx context.Context, name string, stages []string) (*TaskState, error) {
	state, err := s.GetTask(ctx, name)
	if errors.IsNotFound(err) {
		return NewTaskState(name, stages), nil
	}
	return state, err
}

// SaveTask writes the task and all of its cursors in one transaction.
func (s *Store) SaveTask(ctx context.Context, state *TaskState) error {
	now := time.Now().UTC()
	if state.StartedAt.IsZero() {
		state.StartedAt = now
	}
	state.UpdatedAt = now

	task := MigrationTask{
		Name:        state.Name,
		Stages:      strings.Join(state.Stages, ","),
		Stage:       state.Stage,
		RunID:       state.RunID,
		Invocations: state.Invocations,
		LastError:   state.LastError,
		StartedAt:   state.StartedAt,
		UpdatedAt:   now,
		CompletedAt: state.CompletedAt,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&task).Error; err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		for _, c := range state.Cursors {
			row := MigrationCursor{
				TaskName:     state.Name,
				SourceTable:  c.Table,
				Stage:        c.Stage,
				Status:       c.Status,
				LastSourceID: c.LastSourceID,
				MaxID:        c.MaxID,
				Migrated:     c.Migrated,
				Skipped:      c.Skipped,
				Pass:         c.Pass,
				Deferred:     c.Deferred,
				PassMigrated: c.PassMigrated,
				Final:        c.Final,
				UpdatedAt:    now,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save cursor %s: %w", c.Table, err)
			}
		}
		return nil
	})
	if err != nil {
		return checkpointError(fmt.Errorf("task %s: %w", state.Name, err), "save_task")
	}

	state.persisted = true
	return nil
}

// DeleteTask removes a task and its cursors. Unless force is set only a
// completed task can be deleted. Marks and skipped rows are kept.
func (s *Store) DeleteTask(ctx context.Context, name string, force bool) error {
	state, err := s.GetTask(ctx, name)
	if err != nil {
		return err
	}
	if !state.Completed() && !force {
		return errors.New(fmt.Errorf("%w: %s is at stage %s", ErrTaskIncomplete, name, state.Stage)).
			Component("checkpoint").
			Category(errors.CategoryState).
			Context("task", name).
			Build()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_name = ?", name).Delete(&MigrationCursor{}).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", name).Delete(&MigrationTask{}).Error
	})
	if err != nil {
		return checkpointError(fmt.Errorf("failed to delete task %s: %w", name, err), "delete_task")
	}
	return nil
}

// MarkMigrated records that (table, sourceID) has been migrated. A second
// mark for the same row is an error.
func (s *Store) MarkMigrated(ctx context.Context, task, table string, sourceID uint) error {
	mark := MigrationMark{
		SourceTable: table,
		SourceID:    sourceID,
		TaskName:    task,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&mark).Error; err != nil {
		return errors.New(fmt.Errorf("failed to mark %s/%d as migrated: %w", table, sourceID, err)).
			Component("checkpoint").
			Category(errors.CategoryCheckpoint).
			Priority(errors.PriorityCritical).
			Row(table, sourceID).
			Build()
	}
	return nil
}

// IsMigrated reports whether (table, sourceID) carries a mark.
func (s *Store) IsMigrated(ctx context.Context, table string, sourceID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&MigrationMark{}).
		Where("source_table = ? AND source_id = ?", table, sourceID).
		Count(&count).Error
	if err != nil {
		return false, checkpointError(fmt.Errorf("failed to look up mark %s/%d: %w", table, sourceID, err), "is_migrated")
	}
	return count > 0, nil
}

// MigratedAmong returns the subset of ids of table that carry a mark.
func (s *Store) MigratedAmong(ctx context.Context, table string, ids []uint) (map[uint]bool, error) {
	migrated := make(map[uint]bool)
	if len(ids) == 0 {
		return migrated, nil
	}

	var found []uint
	err := s.db.WithContext(ctx).Model(&MigrationMark{}).
		Where("source_table = ? AND source_id IN ?", table, ids).
		Pluck("source_id", &found).Error
	if err != nil {
		return nil, checkpointError(fmt.Errorf("failed to look up marks of %s: %w", table, err), "migrated_among")
	}
	for _, id := range found {
		migrated[id] = true
	}
	return migrated, nil
}

// CountMarks returns the number of marks of table.
func (s *Store) CountMarks(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&MigrationMark{}).Where("source_table = ?", table).Count(&count).Error; err != nil {
		return 0, checkpointError(fmt.Errorf("failed to count marks of %s: %w", table, err), "count_marks")
	}
	return count, nil
}

// RecordSkipped stores a row that could not be migrated. Recording the same
// row again updates its reason.
func (s *Store) RecordSkipped(ctx context.Context, task, table string, sourceID uint, reason string) error {
	row := MigrationSkippedRow{
		TaskName:    task,
		SourceTable: table,
		SourceID:    sourceID,
		Reason:      reason,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "task_name"}, {Name: "source_table"}, {Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return checkpointError(fmt.Errorf("failed to record skipped row %s/%d: %w", table, sourceID, err), "record_skipped")
	}
	return nil
}

// ListSkipped returns the skipped rows of a task ordered by table and id.
func (s *Store) ListSkipped(ctx context.Context, task string) ([]MigrationSkippedRow, error) {
	var rows []MigrationSkippedRow
	err := s.db.WithContext(ctx).
		Where("task_name = ?", task).
		Order("source_table, source_id").
		Find(&rows).Error
	if err != nil {
		return nil, checkpointError(fmt.Errorf("failed to list skipped rows of %s: %w", task, err), "list_skipped")
	}
	return rows, nil
}

func checkpointError(err error, operation string) error {
	return errors.New(err).
		Component("checkpoint").
		Category(errors.CategoryCheckpoint).
		Context("operation", operation).
		Build()
}
