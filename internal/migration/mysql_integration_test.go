//go:build integration && mysql

// MySQL integration tests for the migration runner.
// Run with: go test -tags="integration,mysql" -v ./internal/migration/...
//
// With MYSQL_TEST_PASSWORD set the tests use an existing server:
//
//	MYSQL_TEST_HOST (default: localhost)
//	MYSQL_TEST_PORT (default: 3306)
//	MYSQL_TEST_USER (default: gallery)
//	MYSQL_TEST_PASSWORD
//	MYSQL_TEST_DATABASE (default: gallery_test)
//
// Otherwise a MySQL container is started with testcontainers.
package migration_test

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/tphakala/gallery-migrate/internal/checkpoint"
	"github.com/tphakala/gallery-migrate/internal/conf"
	"github.com/tphakala/gallery-migrate/internal/datastore"
	"github.com/tphakala/gallery-migrate/internal/gallery"
	"github.com/tphakala/gallery-migrate/internal/legacy"
	"github.com/tphakala/gallery-migrate/internal/legacy/legacytest"
	"github.com/tphakala/gallery-migrate/internal/logger"
	"github.com/tphakala/gallery-migrate/internal/migration"
)

const mysqlImage = "mysql:8.4"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// mysqlSettings returns connection settings for a test MySQL server.
func mysqlSettings(t *testing.T) conf.MySQLSettings {
	t.Helper()

	if password := os.Getenv("MYSQL_TEST_PASSWORD"); password != "" {
		return conf.MySQLSettings{
			Host:     getEnvOrDefault("MYSQL_TEST_HOST", "localhost"),
			Port:     getEnvOrDefault("MYSQL_TEST_PORT", "3306"),
			Username: getEnvOrDefault("MYSQL_TEST_USER", "gallery"),
			Password: password,
			Database: getEnvOrDefault("MYSQL_TEST_DATABASE", "gallery_test"),
		}
	}

	ctx := context.Background()
	ctr, err := tcmysql.Run(ctx, mysqlImage,
		tcmysql.WithDatabase("gallery_test"),
		tcmysql.WithUsername("gallery"),
		tcmysql.WithPassword("gallery"),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("Skipping MySQL test: container not available: %v", err)
	}

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	return conf.MySQLSettings{
		Host:     host,
		Port:     port.Port(),
		Username: "gallery",
		Password: "gallery",
		Database: "gallery_test",
	}
}

func TestMySQL_MigratesIntoTarget(t *testing.T) {
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	ctx := context.Background()

	settings := conf.DatabaseSettings{Driver: conf.DriverMySQL, MySQL: mysqlSettings(t)}
	prefix := "it" + time.Now().Format("150405") + "_"
	mgr, err := datastore.Open(&datastore.Config{Settings: settings, TablePrefix: prefix, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	require.True(t, mgr.IsMySQL())

	require.NoError(t, gallery.Initialize(ctx, mgr.DB()))
	store := checkpoint.NewStore(mgr.DB())
	require.NoError(t, store.Initialize(ctx))

	f := legacytest.New(t, "")
	f.AddCategory(t, legacy.Category{CatID: 1, CatName: "Gärten"})
	f.AddImage(t, legacy.Image{ImageID: 10, CatID: 1, ImageName: "Rotkehlchen",
		ImageDate: 1700000000, ImageActive: 1, ImageMediaFile: "robin.jpg", ImageThumbFile: "robin.jpg"})
	f.AddComment(t, legacy.Comment{CommentID: 20, ImageID: 10, UserName: "guest", CommentText: "Schön"})
	f.WriteMedia(t, 1, "robin.jpg", 640, 480)
	f.WriteThumbnail(t, 1, "robin.jpg", 64, 48)

	runner, err := migration.NewRunner(migration.Config{
		Name:            "4images",
		IntegrityPolicy: conf.IntegrityPolicyAbort,
	}, migration.Dependencies{
		Source: f.Open(t),
		Target: gallery.NewWriter(mgr.DB(), log),
		Store:  store,
		Assets: gallery.NewAssets(gallery.AssetConfig{
			Root:         t.TempDir(),
			DetailWidth:  320,
			DetailHeight: 320,
			ThumbWidth:   64,
			ThumbHeight:  64,
			JPEGQuality:  80,
		}, log),
		Logger: log,
	})
	require.NoError(t, err)

	res := runner.RunSlice(ctx)
	require.Equal(t, migration.OutcomeDone, res.Outcome, "err: %v", res.Err)

	var cat gallery.Category
	require.NoError(t, mgr.DB().Take(&cat, 1).Error)
	assert.Equal(t, "garten", cat.Alias)
	assert.Equal(t, "Gärten", cat.Name)

	var img gallery.Image
	require.NoError(t, mgr.DB().Take(&img, 10).Error)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), img.ImgDate.UTC())

	var cmt gallery.Comment
	require.NoError(t, mgr.DB().Take(&cmt, 20).Error)
	assert.Equal(t, "Schön", cmt.CmtText)

	task, err := store.GetTask(ctx, "4images")
	require.NoError(t, err)
	assert.True(t, task.Completed())
}
