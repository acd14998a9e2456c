package analysis

import "github.com/prometheus/client_golang/prometheus"

// Job results used as the "result" label of jobCounter.
const (
	resultFound     = "found"
	resultNotFound  = "not_found"
	resultStale     = "stale"
	resultEmpty     = "empty"
	resultPreempted = "preempted"
)

var (
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "linden",
			Subsystem: "analysis",
			Name:      "job_duration_seconds",
			Help:      "Bucketed histogram of analysis job run time.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 100us ~ 3.3s
		}, []string{"variant"})

	jobCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linden",
			Subsystem: "analysis",
			Name:      "jobs_total",
			Help:      "Total number of analysis jobs by result.",
		}, []string{"variant", "result"})

	publishedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linden",
			Subsystem: "analysis",
			Name:      "published_total",
			Help:      "Total number of linearizations published.",
		}, []string{"variant"})

	priceGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "linden",
			Subsystem: "analysis",
			Name:      "linearization_price",
			Help:      "Price of the most recently published linearization.",
		}, []string{"variant"})

	markedNodesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "linden",
			Subsystem: "analysis",
			Name:      "marked_nodes",
			Help:      "Number of search nodes after clustering in the last job.",
		}, []string{"variant"})
)

// InitMetrics registers all metrics in this package.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(jobDuration)
	registry.MustRegister(jobCounter)
	registry.MustRegister(publishedCounter)
	registry.MustRegister(priceGauge)
	registry.MustRegister(markedNodesGauge)
}
