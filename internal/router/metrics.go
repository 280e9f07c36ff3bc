package router

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the RPC router
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestsFailed  *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	ProviderHealthy *prometheus.GaugeVec
	DailyCalls      *prometheus.GaugeVec

	QueueDepth      prometheus.Gauge
	QueueRejections prometheus.Counter
	ActiveWorkers   prometheus.Gauge
	SelectorWaits   prometheus.Counter
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics returns the singleton Metrics instance
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_rpc_requests_total",
			Help: "Total number of RPC requests issued, per provider",
		}, []string{"provider"}),
		RequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "router_rpc_requests_failed_total",
			Help: "Total number of failed RPC requests, per provider and kind",
		}, []string{"provider", "kind"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_rpc_request_duration_seconds",
			Help:    "RPC request round-trip latency, per provider",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ProviderHealthy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "router_provider_healthy",
			Help: "Provider health flag (1=healthy, 0=backing off)",
		}, []string{"provider"}),
		DailyCalls: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "router_provider_daily_calls",
			Help: "Calls counted against the provider's daily quota",
		}, []string{"provider"}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "router_queue_depth",
			Help: "Number of calls waiting in the admission queue",
		}),
		QueueRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "router_queue_rejections_total",
			Help: "Calls rejected because the admission queue was full",
		}),
		ActiveWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "router_active_workers",
			Help: "Workers currently executing a call",
		}),
		SelectorWaits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "router_selector_bounded_waits_total",
			Help: "Selections that had to sleep for the next available token",
		}),
	}
}
