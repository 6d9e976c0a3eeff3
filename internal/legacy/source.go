package legacy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"gorm.io/gorm"
)

// Source reads 4images rows in ascending id order, one batch at a time.
type Source struct {
	db       *gorm.DB
	prefix   string
	basePath string
	log      logger.Logger
}

// NewSource returns a Source for the tables prefixed with prefix and the
// installation rooted at basePath.
func NewSource(db *gorm.DB, prefix, basePath string, log logger.Logger) *Source {
	return &Source{
		db:       db,
		prefix:   prefix,
		basePath: basePath,
		log:      log.Module("source"),
	}
}

// TableName returns the prefixed name of t.
func (s *Source) TableName(t Table) string {
	return s.prefix + t.Name
}

// OriginalsDir is the directory holding original media, one subdirectory per category id.
func (s *Source) OriginalsDir() string {
	return filepath.Join(s.basePath, "data", "media")
}

// ThumbnailsDir is the directory holding thumbnails, one subdirectory per category id.
func (s *Source) ThumbnailsDir() string {
	return filepath.Join(s.basePath, "data", "thumbnails")
}

// Check verifies that all required tables and media directories exist.
// Every problem found is returned as one configuration error.
func (s *Source) Check(ctx context.Context) error {
	var problems []error

	migrator := s.db.WithContext(ctx).Migrator()
	for _, t := range RequiredTables {
		name := s.TableName(t)
		if !migrator.HasTable(name) {
			problems = append(problems, fmt.Errorf("source table %s does not exist", name))
		}
	}

	for _, dir := range []string{s.OriginalsDir(), s.ThumbnailsDir()} {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			problems = append(problems, fmt.Errorf("source directory %s: %w", dir, err))
		case !info.IsDir():
			problems = append(problems, fmt.Errorf("source path %s is not a directory", dir))
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.Join(problems...)).
			Component("source").
			Category(errors.CategoryConfiguration).
			Context("table_prefix", s.prefix).
			Context("base_path", s.basePath).
			Build()
	}

	s.log.Debug("source check passed",
		logger.String("table_prefix", s.prefix),
		logger.String("base_path", s.basePath))
	return nil
}

// CategoriesAfter returns up to limit categories with cat_id > afterID.
func (s *Source) CategoriesAfter(ctx context.Context, afterID uint, limit int) ([]Category, error) {
	var rows []Category
	err := s.db.WithContext(ctx).
		Table(s.TableName(CategoriesTable)).
		Where("cat_id > ?", afterID).
		Order("cat_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, s.queryError(err, CategoriesTable, afterID)
	}
	return rows, nil
}

// ImagesAfter returns up to limit images with image_id > afterID, joined with
// the uploader's user name.
func (s *Source) ImagesAfter(ctx context.Context, afterID uint, limit int) ([]Image, error) {
	var rows []Image
	err := s.db.WithContext(ctx).
		Table(s.TableName(ImagesTable)+" AS i").
		Select("i.*, u.user_name").
		Joins("LEFT JOIN "+s.TableName(UsersTable)+" AS u ON i.user_id = u.user_id").
		Where("i.image_id > ?", afterID).
		Order("i.image_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, s.queryError(err, ImagesTable, afterID)
	}
	return rows, nil
}

// CommentsAfter returns up to limit comments with comment_id > afterID.
func (s *Source) CommentsAfter(ctx context.Context, afterID uint, limit int) ([]Comment, error) {
	var rows []Comment
	err := s.db.WithContext(ctx).
		Table(s.TableName(CommentsTable)).
		Where("comment_id > ?", afterID).
		Order("comment_id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, s.queryError(err, CommentsTable, afterID)
	}
	return rows, nil
}

// MaxID returns the highest id of t, or 0 for an empty table.
func (s *Source) MaxID(ctx context.Context, t Table) (uint, error) {
	var maxID uint
	err := s.db.WithContext(ctx).
		Table(s.TableName(t)).
		Select(fmt.Sprintf("COALESCE(MAX(%s), 0)", t.IDColumn)).
		Scan(&maxID).Error
	if err != nil {
		return 0, s.queryError(err, t, 0)
	}
	return maxID, nil
}

func (s *Source) queryError(err error, t Table, afterID uint) error {
	return errors.New(err).
		Component("source").
		Category(errors.CategoryDatabase).
		Context("table", s.TableName(t)).
		Context("after_id", afterID).
		Build()
}
