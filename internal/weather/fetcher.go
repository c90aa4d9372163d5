package weather

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/batch"
	"github.com/breathclean/breathclean/internal/breakpoint"
)

// Provider fetches a single point observation. Retry and timeout
// behaviour lives below this interface, in the provider client.
type Provider interface {
	Name() string
	FetchPoint(ctx context.Context, lat, lon float64) (*Main, error)
}

// FetcherConfig holds configuration for the weather fetcher.
type FetcherConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// BatchSize bounds concurrent provider calls. Default: batch.DefaultSize.
	BatchSize int
}

// Fetcher fans per-breakpoint weather lookups out to the provider in
// fixed-size concurrent batches.
type Fetcher struct {
	provider  Provider
	logger    zerolog.Logger
	batchSize int
}

// NewFetcher creates a weather fetcher.
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

// pointTask tags one breakpoint with its originating route so results
// can be re-associated regardless of completion order.
type pointTask struct {
	routeIndex int
	slot       int
	location   breakpoint.Coordinate
}

// FetchAll fetches a weather reading for every breakpoint of every
// route. The returned slice is index-aligned with the input. A point
// whose fetch fails is recorded with a nil reading and an error
// annotation; only a missing provider or an empty route list abort the
// whole call.
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

	tasks := make([]batch.Task[*Main], len(flat))
	for i, pt := range flat {
		pt := pt
		tasks[i] = func(ctx context.Context) (*Main, error) {
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
				Msg("weather fetch failed for breakpoint")
		} else {
			reading.Main = outcome.Value
		}

		r := &results[pt.routeIndex]
		r.Points = append(r.Points, reading)
		r.TotalPoints++
		if reading.Main != nil {
			r.SuccessfulFetches++
		}
	}

	return results, nil
}
