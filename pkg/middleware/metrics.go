package middleware

import (
	"sync"
	"time"

	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "airset").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for run duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "airset",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for airset stores.
type metrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runErrors    *prometheus.CounterVec
	commitsTotal *prometheus.CounterVec
	eventsTotal  *prometheus.CounterVec
	updateCount  *prometheus.GaugeVec
	activeStores prometheus.Gauge
}

// globalMetrics is the singleton metrics instance.
// Created on first call to Prometheus or Instrument.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runs_total",
			Help:        "Total number of store runs",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "status"}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "run_duration_seconds",
			Help:        "Store run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store"}),

		runErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "run_errors_total",
			Help:        "Total number of failed store runs by error type",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "error_type"}),

		commitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commits_total",
			Help:        "Total number of completed runs by merge result",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "result"}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of store lifecycle events",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "event"}),

		updateCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "update_count",
			Help:        "Commits since the store was created or last destroyed",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		activeStores: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_stores",
			Help:        "Number of mounted stores",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func getMetrics(opts []MetricsOption) *metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	return globalMetrics
}

// Prometheus creates middleware that collects Prometheus metrics for store
// runs.
//
// Metrics collected:
//   - airset_runs_total: Counter of runs by store and status
//   - airset_run_duration_seconds: Histogram of run duration
//   - airset_run_errors_total: Counter of failed runs by store and error type
//   - airset_commits_total: Counter of completed runs by result (changed, unchanged)
//
// Metrics are registered once per process; options given after the first
// call to Prometheus or Instrument are ignored.
//
// Example:
//
//	s := store.New(data, store.WithMiddleware(
//	    middleware.Prometheus(middleware.WithNamespace("myapp")),
//	))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) store.Middleware {
	m := getMetrics(opts)

	return func(next store.RunFunc) store.RunFunc {
		return func(tc *store.TaskContext) error {
			name := tc.Store.Name()

			start := time.Now()
			err := next(tc)
			m.runDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

			status := "success"
			if err != nil {
				status = "error"
				m.runErrors.WithLabelValues(name, categorizeError(err)).Inc()
			} else if tc.Updated {
				m.commitsTotal.WithLabelValues(name, "changed").Inc()
			} else {
				m.commitsTotal.WithLabelValues(name, "unchanged").Inc()
			}
			m.runsTotal.WithLabelValues(name, status).Inc()

			return err
		}
	}
}

// categorizeError maps store error codes to a small label set.
func categorizeError(err error) string {
	switch airerrors.Code(err) {
	case "E001":
		return "destroyed"
	case "E010":
		return "panic"
	case "E011":
		return "task"
	case "E012":
		return "cancelled"
	case "":
		return "internal"
	default:
		return "coded"
	}
}

// Instrument counts the lifecycle events of s and tracks its update count
// and mounted state. The returned function detaches it; destroying the store
// detaches it too.
func Instrument(s *store.Store, opts ...MetricsOption) (off func()) {
	m := getMetrics(opts)
	name := s.Name()

	var mu sync.Mutex
	mounted := s.Mounted()
	if mounted {
		m.activeStores.Inc()
	}
	m.updateCount.WithLabelValues(name).Set(float64(s.UpdateCount()))

	setMounted := func(v bool) {
		mu.Lock()
		defer mu.Unlock()
		if v == mounted {
			return
		}
		mounted = v
		if v {
			m.activeStores.Inc()
		} else {
			m.activeStores.Dec()
		}
	}

	stop := s.Watch(func(ev store.Event) {
		m.eventsTotal.WithLabelValues(name, string(ev.Type)).Inc()
		switch ev.Type {
		case store.EventCreated:
			setMounted(true)
		case store.EventUpdated:
			m.updateCount.WithLabelValues(name).Set(float64(ev.UpdateCount))
		case store.EventDestroyBefore:
			setMounted(false)
			m.updateCount.WithLabelValues(name).Set(0)
		}
	})
	return func() {
		stop()
		setMounted(false)
	}
}

// Collector exposes the metrics for use in custom registrations and tests.
type Collector struct {
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	RunErrors    *prometheus.CounterVec
	CommitsTotal *prometheus.CounterVec
	EventsTotal  *prometheus.CounterVec
	UpdateCount  *prometheus.GaugeVec
	ActiveStores prometheus.Gauge
}

// GetMetrics returns the global metrics collector.
// Returns nil if neither Prometheus nor Instrument has been called.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		RunsTotal:    globalMetrics.runsTotal,
		RunDuration:  globalMetrics.runDuration,
		RunErrors:    globalMetrics.runErrors,
		CommitsTotal: globalMetrics.commitsTotal,
		EventsTotal:  globalMetrics.eventsTotal,
		UpdateCount:  globalMetrics.updateCount,
		ActiveStores: globalMetrics.activeStores,
	}
}
