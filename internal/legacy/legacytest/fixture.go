// Package legacytest builds throwaway 4images installations for tests: a
// SQLite database with the 4images tables and the data/ media directories.
package legacytest

import (
	"database/sql"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
	"github.com/stretchr/testify/require"
	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/datastore"
	"github.com/tphakala/gallery-migrate/internal/legacy"
	"github.com/tphakala/gallery-migrate/internal/logger"
)

// DefaultPrefix is the table prefix used when New is given an empty prefix.
const DefaultPrefix = "4images_"

// Fixture is a seeded 4images installation.
type Fixture struct {
	Prefix   string
	BasePath string
	DBPath   string

	db *sql.DB
}

const schema = `
CREATE TABLE %[1]scategories (
  cat_id INTEGER PRIMARY KEY,
  cat_name VARCHAR(255) NOT NULL DEFAULT '',
  cat_description TEXT NOT NULL DEFAULT '',
  cat_parent_id INTEGER NOT NULL DEFAULT 0,
  cat_hits INTEGER NOT NULL DEFAULT 0,
  cat_order INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE %[1]susers (
  user_id INTEGER PRIMARY KEY,
  user_name VARCHAR(255) NOT NULL DEFAULT ''
);
CREATE TABLE %[1]simages (
  image_id INTEGER PRIMARY KEY,
  cat_id INTEGER NOT NULL DEFAULT 0,
  user_id INTEGER NOT NULL DEFAULT 0,
  image_name VARCHAR(255) NOT NULL DEFAULT '',
  image_description TEXT NOT NULL DEFAULT '',
  image_keywords TEXT NOT NULL DEFAULT '',
  image_date INTEGER NOT NULL DEFAULT 0,
  image_active INTEGER NOT NULL DEFAULT 1,
  image_media_file VARCHAR(255) NOT NULL DEFAULT '',
  image_thumb_file VARCHAR(255) NOT NULL DEFAULT '',
  image_votes INTEGER NOT NULL DEFAULT 0,
  image_rating DECIMAL(4,2) NOT NULL DEFAULT 0,
  image_hits INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE %[1]scomments (
  comment_id INTEGER PRIMARY KEY,
  image_id INTEGER NOT NULL DEFAULT 0,
  user_id INTEGER NOT NULL DEFAULT 0,
  user_name VARCHAR(255) NOT NULL DEFAULT '',
  comment_headline VARCHAR(255) NOT NULL DEFAULT '',
  comment_text TEXT NOT NULL DEFAULT '',
  comment_ip VARCHAR(20) NOT NULL DEFAULT '',
  comment_date INTEGER NOT NULL DEFAULT 0
);
`

// New creates an empty 4images installation in a temporary directory.
func New(t testing.TB, prefix string) *Fixture {
	t.Helper()
	if prefix == "" {
		prefix = DefaultPrefix
	}

	base := t.TempDir()
	f := &Fixture{
		Prefix:   prefix,
		BasePath: base,
		DBPath:   filepath.Join(base, "4images.db"),
	}

	for _, dir := range []string{"media", "thumbnails"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, "data", dir), 0o750))
	}

	db, err := sql.Open("sqlite3", f.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	f.db = db

	_, err = db.Exec(fmt.Sprintf(schema, prefix))
	require.NoError(t, err, "failed to create 4images schema")

	return f
}

// DatabaseSettings returns settings that open the fixture database.
func (f *Fixture) DatabaseSettings() conf.DatabaseSettings {
	s := conf.DatabaseSettings{Driver: conf.DriverSQLite}
	s.SQLite.Path = f.DBPath
	return s
}

// Exec runs a raw statement; %s in query is replaced by the table prefix.
func (f *Fixture) Exec(t testing.TB, query string, args ...any) {
	t.Helper()
	_, err := f.db.Exec(fmt.Sprintf(query, f.Prefix), args...)
	require.NoError(t, err)
}

// AddCategory inserts a category.
func (f *Fixture) AddCategory(t testing.TB, c legacy.Category) {
	t.Helper()
	f.Exec(t, `INSERT INTO %scategories (cat_id, cat_name, cat_description, cat_parent_id, cat_hits, cat_order)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.CatID, c.CatName, c.CatDescription, c.CatParentID, c.CatHits, c.CatOrder)
}

// AddUser inserts a user.
func (f *Fixture) AddUser(t testing.TB, id int, name string) {
	t.Helper()
	f.Exec(t, `INSERT INTO %susers (user_id, user_name) VALUES (?, ?)`, id, name)
}

// AddImage inserts an image row. Media files are written separately with WriteMedia.
func (f *Fixture) AddImage(t testing.TB, img legacy.Image) {
	t.Helper()
	f.Exec(t, `INSERT INTO %simages (image_id, cat_id, user_id, image_name, image_description, image_keywords,
		image_date, image_active, image_media_file, image_thumb_file, image_votes, image_rating, image_hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ImageID, img.CatID, img.UserID, img.ImageName, img.ImageDescription, img.ImageKeywords,
		img.ImageDate, img.ImageActive, img.ImageMediaFile, img.ImageThumbFile, img.ImageVotes,
		img.ImageRating, img.ImageHits)
}

// AddComment inserts a comment.
func (f *Fixture) AddComment(t testing.TB, c legacy.Comment) {
	t.Helper()
	f.Exec(t, `INSERT INTO %scomments (comment_id, image_id, user_id, user_name, comment_headline, comment_text,
		comment_ip, comment_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CommentID, c.ImageID, c.UserID, c.UserName, c.CommentHeadline, c.CommentText, c.CommentIP, c.CommentDate)
}

// WriteMedia writes a generated image to data/media/<catID>/<name> and returns its path.
func (f *Fixture) WriteMedia(t testing.TB, catID uint, name string, width, height int) string {
	t.Helper()
	return writeImage(t, filepath.Join(f.BasePath, "data", "media"), catID, name, width, height)
}

// WriteThumbnail writes a generated image to data/thumbnails/<catID>/<name> and returns its path.
func (f *Fixture) WriteThumbnail(t testing.TB, catID uint, name string, width, height int) string {
	t.Helper()
	return writeImage(t, filepath.Join(f.BasePath, "data", "thumbnails"), catID, name, width, height)
}

func writeImage(t testing.TB, root string, catID uint, name string, width, height int) string {
	t.Helper()
	dir := filepath.Join(root, strconv.FormatUint(uint64(catID), 10))
	require.NoError(t, os.MkdirAll(dir, 0o750))

	path := filepath.Join(dir, name)
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

// Open returns a Source reading the fixture. The database is closed when the test ends.
func (f *Fixture) Open(t testing.TB) *legacy.Source {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)

	m, err := datastore.NewSQLiteManager(&datastore.Config{
		Settings:    f.DatabaseSettings(),
		TablePrefix: f.Prefix,
		Logger:      log,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return legacy.NewSource(m.DB(), f.Prefix, f.BasePath, log)
}
