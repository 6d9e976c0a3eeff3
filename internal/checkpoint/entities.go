// Package checkpoint persists migration progress in the target database:
// the task state of each migration, the cursor of every source table and the
// append-only set of migrated marks.
package checkpoint

import "time"

// Cursor statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
)

// MigrationTask is the persisted state of one named migration.
type MigrationTask struct {
	Name        string `gorm:"primaryKey;size:100"`
	Stages      string `gorm:"size:255;not null"` // comma separated, in execution order
	Stage       string `gorm:"size:32;not null"`
	RunID       string `gorm:"size:36"` // run id of the last invocation
	Invocations int    `gorm:"not null;default:0"`
	LastError   string `gorm:"type:text"`
	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// MigrationCursor is the position of one stage in its source table.
type MigrationCursor struct {
	TaskName     string `gorm:"primaryKey;size:100"`
	SourceTable  string `gorm:"primaryKey;size:100"`
	Stage        string `gorm:"size:32;not null"`
	Status       string `gorm:"size:16;not null;default:pending"`
	LastSourceID uint   `gorm:"not null;default:0"`
	MaxID        uint   `gorm:"not null;default:0"` // cached at stage start
	Migrated     int64  `gorm:"not null;default:0"`
	Skipped      int64  `gorm:"not null;default:0"`
	Pass         int    `gorm:"not null;default:0"` // restarts for deferred rows
	Deferred     int64  `gorm:"not null;default:0"`
	PassMigrated int64  `gorm:"not null;default:0"`
	Final        bool   `gorm:"not null;default:false"`
	UpdatedAt    time.Time
}

// MigrationMark records that a source row has been migrated. Marks are
// created once per row and never deleted.
type MigrationMark struct {
	SourceTable string `gorm:"primaryKey;size:100"`
	SourceID    uint   `gorm:"primaryKey;autoIncrement:false"`
	TaskName    string `gorm:"size:100;index"`
	CreatedAt   time.Time
}

// MigrationSkippedRow is a source row left behind for manual remediation.
type MigrationSkippedRow struct {
	TaskName    string `gorm:"primaryKey;size:100"`
	SourceTable string `gorm:"primaryKey;size:100"`
	SourceID    uint   `gorm:"primaryKey;autoIncrement:false"`
	Reason      string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Models lists all checkpoint tables for AutoMigrate.
func Models() []any {
	return []any{&MigrationTask{}, &MigrationCursor{}, &MigrationMark{}, &MigrationSkippedRow{}}
}
