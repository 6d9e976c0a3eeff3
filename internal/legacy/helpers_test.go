package legacy_test

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tphakala/gallery-migrate/internal/datastore"
	"github.com/tphakala/gallery-migrate/internal/legacy/legacytest"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"gorm.io/gorm"
)

func discardLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func openDB(t *testing.T, f *legacytest.Fixture) *gorm.DB {
	t.Helper()
	m, err := datastore.NewSQLiteManager(&datastore.Config{
		Settings: f.DatabaseSettings(),
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m.DB()
}
