package datastore

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/errors"
	"github.com/tphakala/gallery-migrate/internal/logger"
)

type widget struct {
	ID   uint
	Name string
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func TestOpen_SQLiteAppliesTablePrefix(t *testing.T) {
	t.Parallel()

	settings := conf.DatabaseSettings{Driver: conf.DriverSQLite}
	settings.SQLite.Path = filepath.Join(t.TempDir(), "nested", "gallery.db")

	mgr, err := Open(&Config{Settings: settings, TablePrefix: "jg_", Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	assert.False(t, mgr.IsMySQL())
	assert.Equal(t, settings.SQLite.Path, mgr.Path())
	assert.Equal(t, "jg_", mgr.TablePrefix())

	require.NoError(t, mgr.DB().AutoMigrate(&widget{}))
	assert.True(t, mgr.DB().Migrator().HasTable("jg_widgets"))
	require.NoError(t, mgr.DB().Create(&widget{ID: 1, Name: "one"}).Error)

	var got widget
	require.NoError(t, mgr.DB().Take(&got, 1).Error)
	assert.Equal(t, "one", got.Name)
}

func TestOpen_InMemory(t *testing.T) {
	t.Parallel()

	settings := conf.DatabaseSettings{Driver: conf.DriverSQLite}
	settings.SQLite.Path = ":memory:"

	mgr, err := Open(&Config{Settings: settings, Logger: testLogger()})
	require.NoError(t, err)
	require.NoError(t, mgr.Close())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(&Config{Settings: conf.DatabaseSettings{Driver: "postgres"}, Logger: testLogger()})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
