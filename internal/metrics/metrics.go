package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the sync core.
	Registry = prometheus.NewRegistry()

	// SyncRuns counts sync runs by provider and outcome.
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_runs_total", Help: "Sync runs by provider and outcome."},
		[]string{"provider", "outcome"},
	)
	// OrdersProcessed counts external orders processed by provider.
	OrdersProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_orders_processed_total", Help: "External orders processed."},
		[]string{"provider"},
	)
	// InvoicesCreated counts invoices created from external orders.
	InvoicesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_invoices_created_total", Help: "Invoices created from external orders."},
		[]string{"provider"},
	)
	// OrderErrors counts per-order failures by provider and error code.
	OrderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_order_errors_total", Help: "Per-order sync failures."},
		[]string{"provider", "code"},
	)
	// RunDuration records sync run durations in seconds.
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "sync_run_duration_seconds", Help: "Sync run duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"provider"},
	)
)

var regOnce sync.Once

// RegisterDefault registers the sync collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(SyncRuns)
		Registry.MustRegister(OrdersProcessed)
		Registry.MustRegister(InvoicesCreated)
		Registry.MustRegister(OrderErrors)
		Registry.MustRegister(RunDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
