package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const pipelineMeterName = "github.com/breathclean/breathclean/internal/telemetry"

// PipelineMetrics instruments the scoring pipeline: upstream provider
// fetches and score-cache effectiveness. A nil receiver is valid and
// records nothing, so callers can wire metrics optionally.
type PipelineMetrics struct {
	fetchDuration metric.Float64Histogram
	fetchTotal    metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
}

// NewPipelineMetrics initializes the pipeline instruments on the global meter.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter(pipelineMeterName)
	m := &PipelineMetrics{}

	var err error
	if m.fetchDuration, err = meter.Float64Histogram(
		"provider.fetch.duration",
		metric.WithDescription("Duration of environmental data fetches in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.fetchTotal, err = meter.Int64Counter(
		"provider.fetch.total",
		metric.WithDescription("Total number of environmental data fetches"),
		metric.WithUnit("{fetch}"),
	); err != nil {
		return nil, err
	}
	if m.cacheHits, err = meter.Int64Counter(
		"score.cache.hit",
		metric.WithDescription("Number of score computations served from cache"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = meter.Int64Counter(
		"score.cache.miss",
		metric.WithDescription("Number of score computations that went to the providers"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordFetch records one provider fetch. Metrics use a background
// context so a cancelled request cannot drop the data point.
func (m *PipelineMetrics) RecordFetch(provider string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("provider.name", provider)}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}
	ctx := context.Background()
	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.fetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit counts a compute request answered from the score cache.
func (m *PipelineMetrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Add(context.Background(), 1)
}

// RecordCacheMiss counts a compute request that had to fetch fresh data.
func (m *PipelineMetrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Add(context.Background(), 1)
}
