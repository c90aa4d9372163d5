package airquality

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/batch"
	"github.com/breathclean/breathclean/internal/breakpoint"
)

// Provider fetches a single point reading.
type Provider interface {
	Name() string
	FetchPoint(ctx context.Context, lat, lon float64) (*Reading, error)
}

// FetcherConfig holds configuration for the AQI fetcher.
type FetcherConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// BatchSize bounds concurrent provider calls. Default: batch.DefaultSize.
	BatchSize int
}

// Fetcher fans per-breakpoint AQI lookups out to the provider in
// fixed-size concurrent batches.
type Fetcher struct {
	provider  Provider
	logger    zerolog.Logger
	batchSize int
}

// NewFetcher creates an AQI fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = batch.DefaultSize
	}
	return &Fetcher{
		provider:  cfg.Provider,
		logger:    cfg.Logger,
		batchSize: batchSize,
	}
}

type pointTask struct {
	routeIndex int
	slot       int
	location   breakpoint.Coordinate
}

// FetchAll fetches an AQI reading for every breakpoint of every route.
// Failure semantics match the weather fetcher: a failed point is a nil
// reading with an annotation, never a batch failure.
func (f *Fetcher) FetchAll(ctx context.Context, routes []breakpoint.RouteBreakpoints) ([]RouteResult, error) {
	if f.provider == nil {
		return nil, ErrNotConfigured
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	var flat []pointTask
	for _, rb := range routes {
		for slot := 1; slot <= breakpoint.MaxSlots; slot++ {
			if loc, ok := rb.Points[slot]; ok {
				flat = append(flat, pointTask{routeIndex: rb.RouteIndex, slot: slot, location: loc})
			}
		}
	}

	tasks := make([]batch.Task[*Reading], len(flat))
	for i, pt := range flat {
		pt := pt
		tasks[i] = func(ctx context.Context) (*Reading, error) {
			return f.provider.FetchPoint(ctx, pt.location.Lat, pt.location.Lon)
		}
	}

	outcomes := batch.Run(ctx, f.batchSize, 0, tasks)

	results := make([]RouteResult, len(routes))
	for i, rb := range routes {
		results[i] = RouteResult{RouteIndex: rb.RouteIndex}
	}

	for i, outcome := range outcomes {
		pt := flat[i]
		reading := PointReading{Slot: pt.slot, Location: pt.location}

		if outcome.Err != nil {
			reading.FetchError = outcome.Err.Error()
			f.logger.Warn().
				Err(outcome.Err).
				Str("provider", f.provider.Name()).
				Int("route_index", pt.routeIndex).
				Int("slot", pt.slot).
				Msg("aqi fetch failed for breakpoint")
		} else {
			reading.Reading = outcome.Value
		}

		r := &results[pt.routeIndex]
		r.Points = append(r.Points, reading)
		r.TotalPoints++
		if reading.Reading != nil {
			r.SuccessfulFetches++
		}
	}

	return results, nil
}
