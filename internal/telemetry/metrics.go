// Package telemetry provides ambient OpenTelemetry instrumentation for the
// ingest pipeline. No exporter is wired by default: instruments are created
// against whatever global MeterProvider the process has installed (a no-op
// provider when none is configured), matching the teacher's pattern of
// obtaining instruments from a named otel.Meter and tolerating instrument
// construction errors silently.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sports-tracker"

// Metrics bundles the counters observed across the resolver, poller, and
// history store.
type Metrics struct {
	resolverCacheHits   metric.Int64Counter
	resolverCacheMisses metric.Int64Counter

	pollSuccesses metric.Int64Counter
	pollFailures  metric.Int64Counter
	pollBackoffs  metric.Int64Counter

	historyAppends  metric.Int64Counter
	historyRemovals metric.Int64Counter
}

// New constructs a Metrics bundle using the global meter provider.
func New() *Metrics {
	meter := otel.Meter(meterName)
	m := &Metrics{}

	m.resolverCacheHits, _ = meter.Int64Counter("resolver.cache.hits",
		metric.WithDescription("Number of identifier lookups served from cache"),
		metric.WithUnit("{lookup}"))
	m.resolverCacheMisses, _ = meter.Int64Counter("resolver.cache.misses",
		metric.WithDescription("Number of identifier lookups that triggered an upstream fetch"),
		metric.WithUnit("{lookup}"))

	m.pollSuccesses, _ = meter.Int64Counter("poller.cycles.success",
		metric.WithDescription("Number of poll cycles that completed without error"),
		metric.WithUnit("{cycle}"))
	m.pollFailures, _ = meter.Int64Counter("poller.cycles.failure",
		metric.WithDescription("Number of poll cycles that failed"),
		metric.WithUnit("{cycle}"))
	m.pollBackoffs, _ = meter.Int64Counter("poller.backoff.engaged",
		metric.WithDescription("Number of times the poller entered backoff"),
		metric.WithUnit("{event}"))

	m.historyAppends, _ = meter.Int64Counter("history.entries.appended",
		metric.WithDescription("Number of distinct history entries appended"),
		metric.WithUnit("{entry}"))
	m.historyRemovals, _ = meter.Int64Counter("history.removed.synthesized",
		metric.WithDescription("Number of synthetic REMOVED entries generated"),
		metric.WithUnit("{entry}"))

	return m
}

// ResolverCacheHit records a cache hit on the identifier resolver.
func (m *Metrics) ResolverCacheHit() {
	if m == nil || m.resolverCacheHits == nil {
		return
	}
	m.resolverCacheHits.Add(context.Background(), 1)
}

// ResolverCacheMiss records a cache miss on the identifier resolver.
func (m *Metrics) ResolverCacheMiss() {
	if m == nil || m.resolverCacheMisses == nil {
		return
	}
	m.resolverCacheMisses.Add(context.Background(), 1)
}

// PollSuccess records a successful poll cycle.
func (m *Metrics) PollSuccess() {
	if m == nil || m.pollSuccesses == nil {
		return
	}
	m.pollSuccesses.Add(context.Background(), 1)
}

// PollFailure records a failed poll cycle.
func (m *Metrics) PollFailure() {
	if m == nil || m.pollFailures == nil {
		return
	}
	m.pollFailures.Add(context.Background(), 1)
}

// PollBackoffEngaged records that the poller entered the BACKING_OFF state.
func (m *Metrics) PollBackoffEngaged() {
	if m == nil || m.pollBackoffs == nil {
		return
	}
	m.pollBackoffs.Add(context.Background(), 1)
}

// HistoryAppend records a distinct history entry append.
func (m *Metrics) HistoryAppend() {
	if m == nil || m.historyAppends == nil {
		return
	}
	m.historyAppends.Add(context.Background(), 1)
}

// HistoryRemovedSynthesized records a synthetic REMOVED entry.
func (m *Metrics) HistoryRemovedSynthesized() {
	if m == nil || m.historyRemovals == nil {
		return
	}
	m.historyRemovals.Add(context.Background(), 1)
}
