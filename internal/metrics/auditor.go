package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

var (
	auditFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auditor",
		Name:      "fetch_batch_total",
		Help:      "Count of header batch fetches.",
	}, []string{"network", "status"})

	auditFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "auditor",
		Name:      "fetch_batch_duration_seconds",
		Help:      "Duration of fetching a batch of headers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})

	auditFetchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "auditor",
		Name:      "fetch_batch_size",
		Help:      "Number of headers fetched per batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"network"})

	auditHeadersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auditor",
		Name:      "headers_total",
		Help:      "Count of audited headers by outcome.",
	}, []string{"network", "algo", "outcome"})

	auditHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "auditor",
		Name:      "audited_height",
		Help:      "Highest audited block height.",
	}, []string{"network"})

	auditReorgsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auditor",
		Name:      "reorgs_total",
		Help:      "Count of detected reorganizations that reset the audit window.",
	}, []string{"network"})
)

// Auditor tracks metrics for the retarget audit pipeline.
type Auditor struct {
	network string
}

// NewAuditor constructs an Auditor collector for network.
func NewAuditor(network model.Network) *Auditor {
	return &Auditor{network: orUnknown(string(network))}
}

// ObserveFetchBatch records a header batch fetch.
func (m Auditor) ObserveFetchBatch(err error, headers int, started time.Time) {
	s := status(err)
	auditFetchTotal.WithLabelValues(m.network, s).Inc()
	auditFetchDuration.WithLabelValues(m.network, s).Observe(time.Since(started).Seconds())
	if err == nil {
		auditFetchSize.WithLabelValues(m.network).Observe(float64(headers))
	}
}

// ObserveHeader records the outcome of auditing one header.
func (m Auditor) ObserveHeader(algo, outcome string, height uint64) {
	auditHeadersTotal.WithLabelValues(m.network, orUnknown(algo), outcome).Inc()
	auditHeight.WithLabelValues(m.network).Set(float64(height))
}

// ObserveReorg records a reorganization.
func (m Auditor) ObserveReorg() {
	auditReorgsTotal.WithLabelValues(m.network).Inc()
}
