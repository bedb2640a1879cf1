package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	// Detector latency buckets in milliseconds; everything here runs on the
	// request path so the interesting range is sub-millisecond to a cache RTT.
	latencyBuckets = []float64{
		0.05, 0.1, 0.25, 0.5,
		1, 2.5, 5, 10,
		25, 50, 100, 250,
	}

	AlertsPublishedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustsentinel_alerts_published_total",
			Help: "Total number of security alerts published",
		},
		[]string{"alert_type"},
	)

	ActivityRecordedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustsentinel_activity_events_total",
			Help: "Activity events by outcome (recorded, rejected, failed)",
		},
		[]string{"result"},
	)

	StoreDegradedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustsentinel_store_degraded_total",
			Help: "Operations that failed open because the shared store was unavailable",
		},
		[]string{"operation"},
	)

	OriginsBlockedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "trustsentinel_origins_blocked_total",
			Help: "Number of times an origin was blocked for brute force",
		},
	)

	AlertSinkFailuresTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustsentinel_alert_sink_failures_total",
			Help: "Alert deliveries that failed per sink",
		},
		[]string{"sink"},
	)

	DetectorLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustsentinel_detector_latency_ms",
			Help:    "Time spent in a detector operation in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"detector"},
	)
)

type MetricsConfig struct {
	EnableLatency bool // Per-detector latency histograms
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		EnableLatency: true,
	}
}

var Config = DefaultMetricsConfig()

func Initialize(cfg MetricsConfig) {
	Config = cfg
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}

func ObserveDetectorLatency(detector string, start time.Time) {
	if !Config.EnableLatency {
		return
	}
	DetectorLatency.WithLabelValues(detector).Observe(float64(time.Since(start).Microseconds()) / 1000)
}
