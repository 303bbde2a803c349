package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/airset-dev/airset/pkg/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for airset stores.
const defaultTracerName = "github.com/airset-dev/airset"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer.
	TracerName string

	// TracerProvider provides the tracer. Defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Filter determines which runs to trace.
	// Return true to trace the run, false to skip.
	// If nil, all runs are traced.
	Filter func(tc *store.TaskContext) bool

	// AttributeExtractor extracts custom attributes from the run.
	// Called for each traced run before its tasks execute.
	AttributeExtractor func(tc *store.TaskContext) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithRunFilter sets a filter function for runs.
func WithRunFilter(filter func(tc *store.TaskContext) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(tc *store.TaskContext) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that traces every store run.
//
// The middleware:
//   - Creates a span per run named "airset.run <store>"
//   - Replaces the run context so tasks inherit the span
//   - Records errors and sets span status
//   - Records whether the run committed and the resulting update count
//
// Example:
//
//	s := store.New(data, store.WithMiddleware(
//	    middleware.OpenTelemetry(middleware.WithTracerName("my-app")),
//	))
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) store.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return func(next store.RunFunc) store.RunFunc {
		return func(tc *store.TaskContext) error {
			if config.Filter != nil && !config.Filter(tc) {
				return next(tc)
			}

			name := tc.Store.Name()
			attrs := []attribute.KeyValue{
				attribute.String("airset.store", name),
				attribute.Int("airset.task_count", tc.TaskCount),
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(tc)...)
			}

			spanCtx, span := config.tracer.Start(
				tc.Context(),
				fmt.Sprintf("airset.run %s", name),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
				trace.WithTimestamp(time.Now()),
			)
			defer span.End()

			// Tasks see the span through tc.Context() and SpanFromContext.
			tc.SetContext(context.WithValue(spanCtx, spanContextKey{}, span))

			err := next(tc)

			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.SetAttributes(
				attribute.Bool("airset.updated", tc.Updated),
				attribute.Int64("airset.update_count", int64(tc.Store.UpdateCount())),
			)

			return err
		}
	}
}

// spanContextKey is the key for the run span in the run context.
type spanContextKey struct{}

// SpanFromContext returns the span of a traced run, or nil when the run is
// not traced.
//
// Example:
//
//	func loadUser(tc *store.TaskContext) error {
//	    if span := middleware.SpanFromContext(tc); span != nil {
//	        span.AddEvent("cache miss")
//	    }
//	    return nil
//	}
func SpanFromContext(tc *store.TaskContext) trace.Span {
	if span, ok := tc.Context().Value(spanContextKey{}).(trace.Span); ok {
		return span
	}
	return nil
}

// TraceContext returns the context to propagate to external calls made by a
// task. It carries the run span when the run is traced.
//
// Example:
//
//	func fetch(tc *store.TaskContext) error {
//	    req, _ := http.NewRequestWithContext(middleware.TraceContext(tc), "GET", url, nil)
//	    ...
//	}
func TraceContext(tc *store.TaskContext) context.Context {
	return tc.Context()
}
