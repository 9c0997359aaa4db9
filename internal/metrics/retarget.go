package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/multialgo-retarget/internal/pow"
)

var (
	retargetTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retarget",
		Name:      "calculations_total",
		Help:      "Count of next-work calculations by result branch.",
	}, []string{"network", "algo", "reason"})

	retargetAdjustments = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "retarget",
		Name:      "adjustments",
		Help:      "Per-algorithm compensation steps applied; negative values ease the target.",
		Buckets:   prometheus.LinearBuckets(-12, 2, 13), // -12..12
	}, []string{"network", "algo"})

	retargetBits = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "retarget",
		Name:      "next_bits",
		Help:      "Last computed compact target.",
	}, []string{"network", "algo"})
)

// Retarget exports pow.Retarget records. It implements pow.Observer.
type Retarget struct{}

// NewRetarget creates a Retarget collector.
func NewRetarget() *Retarget {
	return &Retarget{}
}

// ObserveRetarget records r.
func (m *Retarget) ObserveRetarget(r pow.Retarget) {
	network := orUnknown(r.Network)
	algo := r.Algo.String()
	retargetTotal.WithLabelValues(network, algo, string(r.Reason)).Inc()
	retargetBits.WithLabelValues(network, algo).Set(float64(r.Bits))
	if r.Reason == pow.ReasonRetarget {
		retargetAdjustments.WithLabelValues(network, algo).Observe(float64(r.Adjustments))
	}
}
