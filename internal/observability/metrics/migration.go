// Package metrics provides Prometheus metrics for the migration engine.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Row results recorded by RecordRow.
const (
	RowMigrated = "migrated"
	RowSkipped  = "skipped"
	RowFailed   = "failed"
)

// MigrationMetrics contains Prometheus metrics for migration slices.
type MigrationMetrics struct {
	registry *prometheus.Registry

	rowsTotal      *prometheus.CounterVec
	rowErrorsTotal *prometheus.CounterVec
	slicesTotal    *prometheus.CounterVec
	sliceDuration  prometheus.Histogram
	cursorPosition *prometheus.GaugeVec
	cursorMaxID    *prometheus.GaugeVec

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewMigrationMetrics creates and registers new migration metrics.
func NewMigrationMetrics(registry *prometheus.Registry) (*MigrationMetrics, error) {
	m := &MigrationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MigrationMetrics) initMetrics() {
	m.rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_rows_total",
			Help: "Total number of source rows handled, by stage and result",
		},
		[]string{"stage", "result"}, // result: migrated, skipped, failed
	)

	m.rowErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_row_errors_total",
			Help: "Total number of row errors, by stage and error kind",
		},
		[]string{"stage", "kind"},
	)

	m.slicesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_slices_total",
			Help: "Total number of time-boxed slices, by outcome",
		},
		[]string{"outcome"}, // outcome: continue, done, fatal
	)

	m.sliceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "migration_slice_duration_seconds",
			Help:    "Wall-clock duration of one slice",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
	)

	m.cursorPosition = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "migration_cursor_last_source_id",
			Help: "Last source id processed per source table",
		},
		[]string{"table"},
	)

	m.cursorMaxID = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "migration_cursor_max_source_id",
			Help: "Highest source id per source table, cached at stage start",
		},
		[]string{"table"},
	)

	m.collectors = []prometheus.Collector{
		m.rowsTotal,
		m.rowErrorsTotal,
		m.slicesTotal,
		m.sliceDuration,
		m.cursorPosition,
		m.cursorMaxID,
	}
}

// Describe implements the Collector interface
func (m *MigrationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *MigrationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordRow records the result of one source row.
func (m *MigrationMetrics) RecordRow(stage, result string) {
	m.rowsTotal.WithLabelValues(stage, result).Inc()
}

// RecordRowError records a row error by kind.
func (m *MigrationMetrics) RecordRowError(stage, kind string) {
	m.rowErrorsTotal.WithLabelValues(stage, kind).Inc()
	m.rowsTotal.WithLabelValues(stage, RowFailed).Inc()
}

// RecordSlice records the outcome and duration of one slice.
func (m *MigrationMetrics) RecordSlice(outcome string, duration time.Duration) {
	m.slicesTotal.WithLabelValues(outcome).Inc()
	m.sliceDuration.Observe(duration.Seconds())
}

// RecordCursor records cursor progress of a source table.
func (m *MigrationMetrics) RecordCursor(table string, lastID, maxID uint) {
	m.cursorPosition.WithLabelValues(table).Set(float64(lastID))
	m.cursorMaxID.WithLabelValues(table).Set(float64(maxID))
}

// WriteTextfile writes all metrics of the registry in the text exposition
// format, for the node_exporter textfile collector.
func (m *MigrationMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
