package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ClientMetrics holds the instruments recorded by the route client and the
// selection controller. A nil *ClientMetrics records nothing.
type ClientMetrics struct {
	requestDuration metric.Float64Histogram
	progressUpdates metric.Int64Counter
	staleResults    metric.Int64Counter
	parseNoise      metric.Int64Counter
}

// NewClientMetrics creates the client instruments on meter.
func NewClientMetrics(meter metric.Meter) (*ClientMetrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"scenify.client.request.duration",
		metric.WithDescription("Duration of route requests in seconds, including streaming"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	progressUpdates, err := meter.Int64Counter(
		"scenify.client.progress.updates",
		metric.WithDescription("Progress messages delivered while a route request streamed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	staleResults, err := meter.Int64Counter(
		"scenify.client.results.stale",
		metric.WithDescription("Route results discarded because a newer request superseded them"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, err
	}

	parseNoise, err := meter.Int64Counter(
		"scenify.client.progress.noise",
		metric.WithDescription("Malformed progress frames skipped"),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return nil, err
	}

	return &ClientMetrics{
		requestDuration: requestDuration,
		progressUpdates: progressUpdates,
		staleResults:    staleResults,
		parseNoise:      parseNoise,
	}, nil
}

// RecordRequest records one finished route request.
func (m *ClientMetrics) RecordRequest(ctx context.Context, d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// AddProgress counts delivered progress messages.
func (m *ClientMetrics) AddProgress(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.progressUpdates.Add(ctx, int64(n))
}

// AddNoise counts skipped malformed frames.
func (m *ClientMetrics) AddNoise(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.parseNoise.Add(ctx, int64(n))
}

// AddStale counts a discarded superseded result.
func (m *ClientMetrics) AddStale(ctx context.Context) {
	if m == nil {
		return
	}
	m.staleResults.Add(ctx, 1)
}
