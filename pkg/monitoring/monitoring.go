// Package monitoring provides metrics and tracing for the apigate client
package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/apigate-dev/apigate/pkg/config"
)

// Monitor collects client-side request metrics and, when enabled, emits
// OpenTelemetry spans for each dispatched request. It is an optional
// gateway collaborator.
type Monitor struct {
	config     *config.MonitoringConfig
	registry   *prometheus.Registry
	metrics    *Metrics
	tracer     oteltrace.Tracer
	provider   *trace.TracerProvider
	propagator propagation.TextMapPropagator
}

// Metrics holds all Prometheus metrics for the client
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestFailures  *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	ResponseSize     prometheus.Histogram
}

// NewMonitor creates a new monitoring instance
func NewMonitor(cfg *config.MonitoringConfig) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("monitoring config is required")
	}

	monitor := &Monitor{
		config:     cfg,
		registry:   prometheus.NewRegistry(),
		tracer:     noop.NewTracerProvider().Tracer("apigate"),
		propagator: propagation.TraceContext{},
	}

	if err := monitor.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if cfg.Tracing.Enabled {
		if err := monitor.initTracing(); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	return monitor, nil
}

// initMetrics initializes Prometheus metrics
func (m *Monitor) initMetrics() error {
	ns := m.config.Metrics.Namespace
	sub := m.config.Metrics.Subsystem

	m.metrics = &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "requests_total",
			Help:      "Total number of dispatched requests",
		}, []string{"method", "status"}),
		RequestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "request_failures_total",
			Help:      "Total number of requests that failed before a response was received",
		}, []string{"method"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "request_duration_seconds",
			Help:      "Request round-trip duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "requests_in_flight",
			Help:      "Number of requests currently in flight",
		}),
		ResponseSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "response_size_bytes",
			Help:      "Response body size in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}

	collectors := []prometheus.Collector{
		m.metrics.RequestsTotal,
		m.metrics.RequestFailures,
		m.metrics.RequestDuration,
		m.metrics.RequestsInFlight,
		m.metrics.ResponseSize,
	}

	for _, collector := range collectors {
		if err := m.registry.Register(collector); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return nil
}

// initTracing initializes OpenTelemetry tracing
func (m *Monitor) initTracing() error {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(m.config.Tracing.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(m.config.Tracing.ServiceName),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	m.provider = trace.NewTracerProvider(
		trace.WithBatcher(exporter, trace.WithBatchTimeout(m.config.Tracing.BatchTimeout)),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(m.config.Tracing.SampleRate)),
	)

	m.tracer = m.provider.Tracer("apigate")

	return nil
}

// StartSpan starts a client span for a request about to be dispatched.
func (m *Monitor) StartSpan(ctx context.Context, method, url string) (context.Context, oteltrace.Span) {
	return m.tracer.Start(ctx, fmt.Sprintf("HTTP %s", method),
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", url),
		),
	)
}

// Inject writes trace propagation headers for the current span into h.
func (m *Monitor) Inject(ctx context.Context, h http.Header) {
	m.propagator.Inject(ctx, propagation.HeaderCarrier(h))
}

// RequestStarted records the beginning of a dispatch.
func (m *Monitor) RequestStarted() {
	m.metrics.RequestsInFlight.Inc()
}

// RequestCompleted records a request that received a response.
func (m *Monitor) RequestCompleted(method string, status int, duration time.Duration, responseSize int) {
	m.metrics.RequestsInFlight.Dec()
	m.metrics.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.metrics.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
	m.metrics.ResponseSize.Observe(float64(responseSize))
}

// RequestFailed records a request that failed before a response was
// received.
func (m *Monitor) RequestFailed(method string, duration time.Duration) {
	m.metrics.RequestsInFlight.Dec()
	m.metrics.RequestFailures.WithLabelValues(method).Inc()
	m.metrics.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// GetMetrics returns the metrics instance
func (m *Monitor) GetMetrics() *Metrics {
	return m.metrics
}

// Registry returns the private Prometheus registry.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves the collected metrics,
// for callers that want to expose them on their own mux.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes any buffered spans. Safe to call when tracing is
// disabled.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown error: %w", err)
	}
	return nil
}
