package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the various metrics used for monitoring the application.
// It covers the employee store (query durations and operation outcomes)
// and the roster importer (runs, imported items, fixed emails).
type Metrics struct {
	Runs              *prometheus.CounterVec
	ItemsImported     *prometheus.CounterVec
	LastSuccessfulRun prometheus.Gauge
	RunDuration       prometheus.Histogram
	EmailsFixed       prometheus.Counter
	DBQueryDuration   *prometheus.HistogramVec
	StoreOperations   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with the provided Registerer.
//
// Parameters:
//   - reg: A prometheus.Registerer used to register the metrics.
//
// Returns:
//   - A pointer to the newly created Metrics instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		Runs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mnemosyne_runs_total",
			Help: "Total times the roster importer has successfully or unsuccessfully completed a run.",
		}, []string{"status"}),
		ItemsImported: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mnemosyne_items_imported_total",
			Help: "Total number of roster entries processed, by result.",
		}, []string{"result"}), // result: 'created', 'updated', 'skipped', 'rejected'
		LastSuccessfulRun: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mnemosyne_last_successful_run_timestamp",
			Help: "Last time when a roster import run was successful",
		}),
		RunDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "mnemosyne_run_duration_seconds",
			Help: "Measures how long it takes for a roster import to complete",
		}),
		EmailsFixed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mnemosyne_emails_fixed_total",
			Help: "Total number of employee emails that were fixed or generated.",
		}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mnemosyne_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'find_employee_by_id', 'insert_employee'
		StoreOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mnemosyne_store_operations_total",
			Help: "Total number of employee store operations, by query and status.",
		}, []string{"query_type", "status"}),
	}

	metrics.Runs.WithLabelValues("success")
	metrics.Runs.WithLabelValues("failure")

	return metrics
}
