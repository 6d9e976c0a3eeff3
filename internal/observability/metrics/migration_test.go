package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*MigrationMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	m, err := NewMigrationMetrics(registry)
	require.NoError(t, err)
	return m, registry
}

func TestMigrationMetrics_RecordRow(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t)

	m.RecordRow("images", RowMigrated)
	m.RecordRow("images", RowMigrated)
	m.RecordRow("images", RowSkipped)
	m.RecordRowError("comments", "transient")

	assert.InDelta(t, 2, testutil.ToFloat64(m.rowsTotal.WithLabelValues("images", RowMigrated)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rowsTotal.WithLabelValues("images", RowSkipped)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rowsTotal.WithLabelValues("comments", RowFailed)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rowErrorsTotal.WithLabelValues("comments", "transient")), 0)
}

func TestMigrationMetrics_RecordSlice(t *testing.T) {
	t.Parallel()
	m, registry := newTestMetrics(t)

	m.RecordSlice("continue", 2*time.Second)
	m.RecordSlice("done", 500*time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.slicesTotal.WithLabelValues("done")), 0)

	families, err := registry.Gather()
	require.NoError(t, err)

	var histogram *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "migration_slice_duration_seconds" {
			require.Len(t, mf.GetMetric(), 1)
			histogram = mf.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, histogram)
	assert.Equal(t, uint64(2), histogram.GetSampleCount())
	assert.InDelta(t, 2.5, histogram.GetSampleSum(), 0.0001)
}

func TestMigrationMetrics_RecordCursor(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t)

	m.RecordCursor("4images_images", 40, 120)

	assert.InDelta(t, 40, testutil.ToFloat64(m.cursorPosition.WithLabelValues("4images_images")), 0)
	assert.InDelta(t, 120, testutil.ToFloat64(m.cursorMaxID.WithLabelValues("4images_images")), 0)
}

func TestMigrationMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()

	_, err := NewMigrationMetrics(registry)
	require.NoError(t, err)
	_, err = NewMigrationMetrics(registry)
	require.Error(t, err)
}

func TestMigrationMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()
	m, _ := newTestMetrics(t)
	m.RecordSlice("done", time.Second)

	path := filepath.Join(t.TempDir(), "migration.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `migration_slices_total{outcome="done"} 1`)
}
