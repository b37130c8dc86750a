package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics tracks seeding and CSV imports.
type DatastoreMetrics struct {
	importedRows *prometheus.CounterVec
}

// NewDatastoreMetrics creates and registers the datastore collectors.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{
		importedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantcare_imported_rows_total",
				Help: "Rows read from seed and import CSV files",
			},
			[]string{"source", "result"}, // result: imported, skipped
		),
	}
	if err := registry.Register(m.importedRows); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

// RecordImport adds the outcome of one import run.
func (m *DatastoreMetrics) RecordImport(source string, imported, skipped int) {
	m.importedRows.WithLabelValues(source, "imported").Add(float64(imported))
	m.importedRows.WithLabelValues(source, "skipped").Add(float64(skipped))
}
