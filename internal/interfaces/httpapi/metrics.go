package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records processor activity in a private registry. It satisfies
// application.ProcessorObserver.
type Metrics struct {
	registry        *prometheus.Registry
	branchFetches   *prometheus.CounterVec
	branchRecords   *prometheus.CounterVec
	processedTotal  prometheus.Counter
	transactions    prometheus.Histogram
	processDuration prometheus.Histogram
	httpRequests    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		branchFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethtracker_branch_fetches_total",
				Help: "Fetch branches completed, by branch and outcome",
			},
			[]string{"branch", "status"},
		),
		branchRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethtracker_branch_records_total",
				Help: "Records returned by each fetch branch",
			},
			[]string{"branch"},
		),
		processedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ethtracker_addresses_processed_total",
			Help: "Addresses processed to completion",
		}),
		transactions: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ethtracker_transactions_per_address",
			Help:    "Transactions returned per processed address",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		processDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ethtracker_process_duration_seconds",
			Help:    "Wall time spent processing one address",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethtracker_http_requests_total",
				Help: "HTTP requests served, by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

func (m *Metrics) OnBranchFetched(branch string, count int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.branchFetches.WithLabelValues(branch, status).Inc()
	m.branchRecords.WithLabelValues(branch).Add(float64(count))
}

func (m *Metrics) OnProcessed(address string, count int, duration time.Duration) {
	m.processedTotal.Inc()
	m.transactions.Observe(float64(count))
	m.processDuration.Observe(duration.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
