package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/libshelf/gate/ratelimit"
	"github.com/libshelf/gate/respcache"
)

// Traffic records traffic-control metrics: request totals, admission
// decisions, and cache lookup outcomes. It satisfies the optional
// metrics recorder interfaces of the ratelimit and respcache packages.
type Traffic struct {
	requests     metric.Int64Counter
	decisions    metric.Int64Counter
	lookups      metric.Int64Counter
	faults       metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewTraffic creates the traffic instruments on the given meter.
func NewTraffic(meter metric.Meter) (*Traffic, error) {
	requests, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total number of handled requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter(
		"ratelimit.decisions.total",
		metric.WithDescription("Total number of admission decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(
		"cache.lookups.total",
		metric.WithDescription("Total number of response cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	faults, err := meter.Int64Counter(
		"store.faults.total",
		metric.WithDescription("Total number of backing store faults absorbed"),
		metric.WithUnit("{fault}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"http.request.duration_ms",
		metric.WithDescription("Request handling duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Traffic{
		requests:     requests,
		decisions:    decisions,
		lookups:      lookups,
		faults:       faults,
		durationHist: durationHist,
	}, nil
}

// RecordRequest records one handled request.
func (t *Traffic) RecordRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", status),
	)
	t.requests.Add(ctx, 1, attrs)
	t.durationHist.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordDecision records one admission decision for a route.
func (t *Traffic) RecordDecision(ctx context.Context, route string, allowed bool) {
	t.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Bool("allowed", allowed),
	))
}

// RecordLookup records one cache lookup for a key prefix.
func (t *Traffic) RecordLookup(ctx context.Context, prefix string, hit bool) {
	t.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("prefix", prefix),
		attribute.Bool("hit", hit),
	))
}

// RecordStoreFault records one absorbed backing store fault.
func (t *Traffic) RecordStoreFault(ctx context.Context, component string) {
	t.faults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
	))
}

// Ensure Traffic plugs into both middleware packages
var (
	_ ratelimit.MetricsRecorder = (*Traffic)(nil)
	_ respcache.MetricsRecorder = (*Traffic)(nil)
)
