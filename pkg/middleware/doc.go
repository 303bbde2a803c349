// Package middleware provides store run middleware for metrics and tracing.
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware traces every store run. Spans are named
// "airset.run <store>" and carry the store name, task count, whether the
// run committed and the resulting update count.
//
//	s := store.New(data, store.WithMiddleware(
//	    middleware.OpenTelemetry(),
//	))
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRunFilter(func(tc *store.TaskContext) bool {
//	        return tc.TaskCount > 0
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware collects metrics about store runs:
//   - airset_runs_total: Total runs by store and status
//   - airset_run_duration_seconds: Run duration histogram
//   - airset_run_errors_total: Failed runs by error type
//   - airset_commits_total: Completed runs by merge result
//
// Instrument adds lifecycle metrics for a single store:
//   - airset_events_total: Lifecycle events by store and event
//   - airset_update_count: Commits since creation or last destroy
//   - airset_active_stores: Mounted stores
//
//	s := store.New(data, store.WithMiddleware(middleware.Prometheus()))
//	defer middleware.Instrument(s)()
//
// Then expose metrics:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Context Propagation
//
// The tracing middleware replaces the run context, so tasks pass the trace
// on to the calls they make:
//
//	func load(tc *store.TaskContext) error {
//	    req, _ := http.NewRequestWithContext(middleware.TraceContext(tc), "GET", url, nil)
//	    ...
//	}
package middleware
