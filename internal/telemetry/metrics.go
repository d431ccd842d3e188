// Package telemetry provides application-wide OpenTelemetry metrics for the
// gateway: request counters, latency histograms, cache hit/miss counters,
// and parameter-discovery/token counters. A package-level default [Metrics]
// instance is available via [DefaultMetrics] for convenience; tests should
// use [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all gateway metrics.
const meterName = "github.com/emesal/ratatoskr"

// requestDurationBuckets are histogram bucket boundaries in seconds, sized
// for LLM request latencies rather than sub-100ms RPCs.
var requestDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds every OpenTelemetry instrument the dispatcher and gateway
// facade record against. All fields are safe for concurrent use — the
// underlying OTel types handle their own synchronization.
type Metrics struct {
	// RequestsTotal counts dispatch attempts. Use with attributes:
	//   attribute.String("capability", ...), attribute.String("provider", ...), attribute.String("status", ...)
	RequestsTotal metric.Int64Counter

	// RequestDuration tracks end-to-end dispatch latency per capability.
	RequestDuration metric.Float64Histogram

	// RetriesTotal counts individual retry attempts (not the first try).
	RetriesTotal metric.Int64Counter

	// CacheHits and CacheMisses count response-cache lookups.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// ParameterDiscoveriesTotal counts newly learned parameter rejections
	// recorded into the discovery cache.
	ParameterDiscoveriesTotal metric.Int64Counter

	// TokensTotal counts tokens consumed, split by attribute "kind"
	// ("prompt" or "completion").
	TokensTotal metric.Int64Counter
}

// NewMetrics creates a fully initialized [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RequestsTotal, err = m.Int64Counter("ratatoskr.requests_total",
		metric.WithDescription("Total dispatch attempts by capability, provider, and status."),
	); err != nil {
		return nil, err
	}
	if met.RequestDuration, err = m.Float64Histogram("ratatoskr.request.duration",
		metric.WithDescription("Dispatch latency by capability."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RetriesTotal, err = m.Int64Counter("ratatoskr.retries_total",
		metric.WithDescription("Total retry attempts beyond the first try, by provider."),
	); err != nil {
		return nil, err
	}
	if met.CacheHits, err = m.Int64Counter("ratatoskr.cache.hits",
		metric.WithDescription("Response cache hits by capability."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("ratatoskr.cache.misses",
		metric.WithDescription("Response cache misses by capability."),
	); err != nil {
		return nil, err
	}
	if met.ParameterDiscoveriesTotal, err = m.Int64Counter("ratatoskr.parameter_discoveries_total",
		metric.WithDescription("Newly learned parameter rejections by provider and parameter."),
	); err != nil {
		return nil, err
	}
	if met.TokensTotal, err = m.Int64Counter("ratatoskr.tokens_total",
		metric.WithDescription("Tokens consumed by model and kind (prompt/completion)."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails, which should not happen against the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("telemetry: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRequest records one dispatch attempt's outcome.
func (m *Metrics) RecordRequest(ctx context.Context, capability, provider, status string) {
	m.RequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

// RecordRetry records a single retry attempt against provider.
func (m *Metrics) RecordRetry(ctx context.Context, provider string) {
	m.RetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordCacheHit records a response-cache hit for capability.
func (m *Metrics) RecordCacheHit(ctx context.Context, capability string) {
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("capability", capability)))
}

// RecordCacheMiss records a response-cache miss for capability.
func (m *Metrics) RecordCacheMiss(ctx context.Context, capability string) {
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("capability", capability)))
}

// RecordParameterDiscovery records a newly learned parameter rejection.
func (m *Metrics) RecordParameterDiscovery(ctx context.Context, provider, parameter string) {
	m.ParameterDiscoveriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("parameter", parameter),
	))
}

// RecordTokens records token usage for model, split by kind ("prompt" or
// "completion").
func (m *Metrics) RecordTokens(ctx context.Context, model, kind string, count int) {
	m.TokensTotal.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("kind", kind),
	))
}
