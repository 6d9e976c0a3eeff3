package migration

import (
	"context"
	"time"

	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"github.com/tphakala/gallery-migrate/internal/gallery"
	"github.com/tphakala/gallery-migrate/internal/legacy"
)

// Source reads the legacy gallery. Implemented by *legacy.Source.
type Source interface {
	Check(ctx context.Context) error
	TableName(t legacy.Table) string
	OriginalsDir() string
	ThumbnailsDir() string
	MaxID(ctx context.Context, t legacy.Table) (uint, error)
	CategoriesAfter(ctx context.Context, afterID uint, limit int) ([]legacy.Category, error)
	ImagesAfter(ctx context.Context, afterID uint, limit int) ([]legacy.Image, error)
	CommentsAfter(ctx context.Context, afterID uint, limit int) ([]legacy.Comment, error)
}

// Target writes the gallery records. Implemented by *gallery.Writer.
type Target interface {
	PrepareCategory(ctx context.Context, cat *gallery.Category) error
	CategoryPath(ctx context.Context, cid uint) (string, error)
	WriteCategory(ctx context.Context, cat *gallery.Category) error
	RebuildTree(ctx context.Context) error
	WriteImage(ctx context.Context, img *gallery.Image) error
	WriteComment(ctx context.Context, c *gallery.Comment) error
}

// CheckpointStore persists progress. Implemented by *checkpoint.Store.
type CheckpointStore interface {
	LoadTask(ctx context.Context, name string, stages []string) (*checkpoint.TaskState, error)
	SaveTask(ctx context.Context, state *checkpoint.TaskState) error
	MarkMigrated(ctx context.Context, task, table string, sourceID uint) error
	MigratedAmong(ctx context.Context, table string, ids []uint) (map[uint]bool, error)
	RecordSkipped(ctx context.Context, task, table string, sourceID uint, reason string) error
}

// AssetPlacer places image files into the gallery layout. Implemented by *gallery.Assets.
type AssetPlacer interface {
	Check(ctx context.Context) error
	PrepareCategory(ctx context.Context, catPath string) error
	Place(ctx context.Context, req gallery.AssetRequest) (gallery.PlacedAsset, error)
}

// Recorder receives migration metrics. Implemented by *metrics.MigrationMetrics.
type Recorder interface {
	RecordRow(stage, result string)
	RecordRowError(stage, kind string)
	RecordSlice(outcome string, duration time.Duration)
	RecordCursor(table string, lastID, maxID uint)
}

type noopRecorder struct{}

func (noopRecorder) RecordRow(string, string) {}
func (noopRecorder) RecordRowError(string, string) {}
func (noopRecorder) RecordSlice(string, time.Duration) {}
func (noopRecorder) RecordCursor(string, uint, uint) {}
