// Package metrics exposes Prometheus collectors for the API and the engines
// behind it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lotto"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "sync_runs_total",
			Help:      "Archive sync runs by mode and outcome.",
		},
		[]string{"mode", "success"},
	)

	syncedDraws = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "synced_draws_total",
			Help:      "Draws written by sync runs.",
		},
	)

	archiveSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "draws",
			Help:      "Number of draws currently in the archive.",
		},
	)

	trainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ml",
			Name:      "training_runs_total",
			Help:      "Training runs by outcome.",
		},
		[]string{"success"},
	)

	trainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ml",
			Name:      "training_duration_seconds",
			Help:      "Duration of training runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	simulationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Simulation runs by outcome.",
		},
		[]string{"cancelled"},
	)

	simulationTrials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trials_total",
			Help:      "Simulated tickets across all runs.",
		},
	)

	simulationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Duration of simulation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		syncRuns,
		syncedDraws,
		archiveSize,
		trainingRuns,
		trainingDuration,
		simulationRuns,
		simulationTrials,
		simulationDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordSync records one sync run
func RecordSync(mode string, synced int, success bool) {
	syncRuns.WithLabelValues(mode, strconv.FormatBool(success)).Inc()
	if synced > 0 {
		syncedDraws.Add(float64(synced))
	}
}

// SetArchiveSize updates the archive size gauge
func SetArchiveSize(n int) {
	archiveSize.Set(float64(n))
}

// RecordTraining records one training run
func RecordTraining(duration time.Duration, success bool) {
	trainingRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	if success {
		trainingDuration.Observe(duration.Seconds())
	}
}

// RecordSimulation records one finished simulation
func RecordSimulation(trials int64, duration time.Duration, cancelled bool) {
	simulationRuns.WithLabelValues(strconv.FormatBool(cancelled)).Inc()
	simulationTrials.Add(float64(trials))
	simulationDuration.Observe(duration.Seconds())
}
