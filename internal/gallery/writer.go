package gallery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/patrickmn/go-cache"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMissingReference is wrapped by integrity errors: a row references a
// category or image that does not exist in the gallery.
var ErrMissingReference = errors.NewStd("referenced record missing in gallery")

// Writer upserts gallery records by their preserved ids. Writing the same
// record twice leaves exactly one row.
type Writer struct {
	db  *gorm.DB
	log logger.Logger

	// known caches category paths ("cat:<id>") and image ids ("img:<id>")
	// already present in the gallery. Only hits are cached and nothing is
	// evicted, so a Writer lives for one slice.
	known *cache.Cache
}

// NewWriter returns a Writer on db.
func NewWriter(db *gorm.DB, log logger.Logger) *Writer {
	return &Writer{
		db:    db,
		log:   log.Module("gallery"),
		known: cache.New(cache.NoExpiration, 0),
	}
}

// PrepareCategory checks that the parent of cat exists and derives its catpath.
func (w *Writer) PrepareCategory(ctx context.Context, cat *Category) error {
	if cat.Alias == "" {
		cat.Alias = "category"
	}
	segment := cat.Alias + "_" + strconv.FormatUint(uint64(cat.CID), 10)

	if cat.ParentID == 0 {
		cat.Catpath = segment
		return nil
	}
	if cat.ParentID == cat.CID {
		return integrityError("category", cat.ParentID, "category is its own parent")
	}

	parentPath, err := w.CategoryPath(ctx, cat.ParentID)
	if err != nil {
		return err
	}
	cat.Catpath = parentPath + "/" + segment
	return nil
}

// CategoryPath returns the catpath of an existing category.
func (w *Writer) CategoryPath(ctx context.Context, cid uint) (string, error) {
	key := categoryKey(cid)
	if v, ok := w.known.Get(key); ok {
		return v.(string), nil
	}

	var cat Category
	err := w.db.WithContext(ctx).Select("cid", "catpath").Where("cid = ?", cid).Take(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", integrityError("category", cid, "category not found")
	}
	if err != nil {
		return "", databaseError(err, "category_path", cid)
	}

	w.known.Set(key, cat.Catpath, cache.NoExpiration)
	return cat.Catpath, nil
}

// WriteCategory upserts cat. Its catpath is derived when not yet prepared.
func (w *Writer) WriteCategory(ctx context.Context, cat *Category) error {
	if cat.Catpath == "" {
		if err := w.PrepareCategory(ctx, cat); err != nil {
			return err
		}
	}

	if err := w.upsert(ctx, cat); err != nil {
		return databaseError(err, "write_category", cat.CID)
	}
	w.known.Set(categoryKey(cat.CID), cat.Catpath, cache.NoExpiration)

	w.log.Trace("category written",
		logger.Uint64("cid", uint64(cat.CID)),
		logger.String("catpath", cat.Catpath))
	return nil
}

// WriteImage upserts img after checking that its category exists.
func (w *Writer) WriteImage(ctx context.Context, img *Image) error {
	if _, err := w.CategoryPath(ctx, img.CatID); err != nil {
		return err
	}

	if err := w.upsert(ctx, img); err != nil {
		return databaseError(err, "write_image", img.ID)
	}
	w.known.Set(imageKey(img.ID), true, cache.NoExpiration)
	return nil
}

// WriteComment upserts c after checking that its image exists.
func (w *Writer) WriteComment(ctx context.Context, c *Comment) error {
	if err := w.requireImage(ctx, c.CmtPic); err != nil {
		return err
	}

	if err := w.upsert(ctx, c); err != nil {
		return databaseError(err, "write_comment", c.CmtID)
	}
	return nil
}

func (w *Writer) requireImage(ctx context.Context, id uint) error {
	key := imageKey(id)
	if _, ok := w.known.Get(key); ok {
		return nil
	}

	var count int64
	if err := w.db.WithContext(ctx).Model(&Image{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return databaseError(err, "image_exists", id)
	}
	if count == 0 {
		return integrityError("image", id, "image not found")
	}

	w.known.Set(key, true, cache.NoExpiration)
	return nil
}

func (w *Writer) upsert(ctx context.Context, value any) error {
	return w.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func categoryKey(id uint) string { return "cat:" + strconv.FormatUint(uint64(id), 10) }
func imageKey(id uint) string    { return "img:" + strconv.FormatUint(uint64(id), 10) }

func integrityError(kind string, id uint, reason string) error {
	return errors.New(fmt.Errorf("%w: %s %d: %s", ErrMissingReference, kind, id, reason)).
		Component("gallery").
		Category(errors.CategoryIntegrity).
		Context("referenced_kind", kind).
		Context("referenced_id", id).
		Build()
}

func databaseError(err error, operation string, id uint) error {
	return errors.New(err).
		Component("gallery").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("id", id).
		Build()
}
