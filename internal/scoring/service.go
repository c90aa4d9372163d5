package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/cache"
	"github.com/breathclean/breathclean/internal/telemetry"
	"github.com/breathclean/breathclean/internal/weather"
)

// ComputeInput is a score-compute request. Traffic is optional and
// index-aligned with Routes; absent entries default to zero congestion.
type ComputeInput struct {
	Routes  []breakpoint.RouteInput
	Traffic []float64
}

// WeatherFetcher fetches weather readings for extracted breakpoints.
type WeatherFetcher interface {
	FetchAll(ctx context.Context, breakpoints []breakpoint.RouteBreakpoints) ([]weather.RouteResult, error)
}

// AirQualityFetcher fetches air-quality readings for extracted breakpoints.
type AirQualityFetcher interface {
	FetchAll(ctx context.Context, breakpoints []breakpoint.RouteBreakpoints) ([]airquality.RouteResult, error)
}

// Service runs the full compute pipeline: extract breakpoints, fetch
// environmental data, score, cache.
type Service struct {
	extractor  *breakpoint.Extractor
	weather    WeatherFetcher
	airquality AirQualityFetcher
	calculator *Calculator
	store      cache.Store
	logger     zerolog.Logger
	metrics    *telemetry.PipelineMetrics
	now        func() time.Time
	newID      func() string
}

// NewService wires a Service from its collaborators.
func NewService(
	extractor *breakpoint.Extractor,
	weatherFetcher WeatherFetcher,
	aqiFetcher AirQualityFetcher,
	store cache.Store,
	logger zerolog.Logger,
) *Service {
	return &Service{
		extractor:  extractor,
		weather:    weatherFetcher,
		airquality: aqiFetcher,
		calculator: NewCalculator(),
		store:      store,
		logger:     logger.With().Str("component", "scoring").Logger(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// SetMetrics attaches pipeline instrumentation. Without it the service
// runs unmetered, which the tests rely on.
func (s *Service) SetMetrics(m *telemetry.PipelineMetrics) {
	s.metrics = m
}

// Compute scores a set of route options. Identical requests within the
// score-cache TTL are served from cache without touching the providers;
// breakpoints are still re-extracted on a hit so a fresh search
// identifier can be handed to the save flow.
func (s *Service) Compute(ctx context.Context, input ComputeInput) (*ComputeResponse, error) {
	if len(input.Routes) == 0 {
		return nil, ErrNoRoutes
	}
	if len(input.Routes) > breakpoint.MaxRoutes {
		return nil, ErrTooManyRoutes
	}

	key := s.scoreKey(input)
	if resp := s.cachedResponse(ctx, key); resp != nil {
		points, err := s.extractor.Extract(input.Routes)
		if err != nil {
			return nil, err
		}
		resp.SearchID = s.newID()
		resp.Cached = true
		s.storeBreakpoints(ctx, resp.SearchID, points)
		s.metrics.RecordCacheHit()
		s.logger.Debug().Str("searchId", resp.SearchID).Msg("score cache hit")
		return resp, nil
	}
	s.metrics.RecordCacheMiss()

	points, err := s.extractor.Extract(input.Routes)
	if err != nil {
		return nil, err
	}

	var (
		wg         sync.WaitGroup
		weatherRes []weather.RouteResult
		weatherErr error
		aqiRes     []airquality.RouteResult
		aqiErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		weatherRes, weatherErr = s.weather.FetchAll(ctx, points)
		s.metrics.RecordFetch("weather", time.Since(start), weatherErr)
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		aqiRes, aqiErr = s.airquality.FetchAll(ctx, points)
		s.metrics.RecordFetch("air-quality", time.Since(start), aqiErr)
	}()
	wg.Wait()
	if weatherErr != nil {
		return nil, weatherErr
	}
	if aqiErr != nil {
		return nil, aqiErr
	}

	now := s.now()
	scores := make([]RouteScore, 0, len(input.Routes))
	for i, route := range input.Routes {
		scores = append(scores, s.calculator.Compute(RouteData{
			RouteIndex:    i,
			Distance:      route.Distance,
			Duration:      route.Duration,
			TravelMode:    route.TravelMode,
			Breakpoints:   points[i].Count(),
			WeatherPoints: weatherMains(weatherRes, i),
			AQIPoints:     aqiReadings(aqiRes, i),
			TrafficValue:  s.trafficFor(input, i),
		}, now))
	}

	best, summary := Summarize(scores)
	resp := &ComputeResponse{
		Routes:     scores,
		BestRoute:  best,
		Summary:    summary,
		SearchID:   s.newID(),
		ComputedAt: now,
	}

	s.storeBreakpoints(ctx, resp.SearchID, points)
	s.storeResponse(ctx, key, resp)

	return resp, nil
}

// LookupBreakpoints returns the breakpoints cached under a search
// identifier, or cache.ErrMiss when expired or unknown.
func (s *Service) LookupBreakpoints(ctx context.Context, searchID string) ([]breakpoint.RouteBreakpoints, error) {
	data, err := s.store.Get(ctx, cache.BreakpointKey(searchID))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Msg("breakpoint cache read failed")
		}
		return nil, cache.ErrMiss
	}
	var points []breakpoint.RouteBreakpoints
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, cache.ErrMiss
	}
	return points, nil
}

func (s *Service) scoreKey(input ComputeInput) string {
	parts := make([]cache.ScoreKeyPart, 0, len(input.Routes))
	for i, route := range input.Routes {
		parts = append(parts, cache.ScoreKeyPart{
			Geometry:     route.Geometry,
			TravelMode:   string(route.TravelMode),
			TrafficValue: s.trafficFor(input, i),
		})
	}
	return cache.ScoreKey(parts)
}

func (s *Service) trafficFor(input ComputeInput, i int) float64 {
	if i < len(input.Traffic) {
		return input.Traffic[i]
	}
	return 0
}

// cachedResponse reads the score cache; any read failure is treated as
// a miss so cache trouble never fails the request.
func (s *Service) cachedResponse(ctx context.Context, key string) *ComputeResponse {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Msg("score cache read failed")
		}
		return nil
	}
	var resp ComputeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.Warn().Err(err).Msg("score cache entry corrupt")
		return nil
	}
	return &resp
}

func (s *Service) storeBreakpoints(ctx context.Context, searchID string, points []breakpoint.RouteBreakpoints) {
	data, err := json.Marshal(points)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal breakpoints")
		return
	}
	if err := s.store.Set(ctx, cache.BreakpointKey(searchID), data, cache.BreakpointTTL); err != nil {
		s.logger.Warn().Err(err).Str("searchId", searchID).Msg("breakpoint cache write failed")
	}
}

func (s *Service) storeResponse(ctx context.Context, key string, resp *ComputeResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal score response")
		return
	}
	if err := s.store.Set(ctx, key, data, cache.ScoreTTL); err != nil {
		s.logger.Warn().Err(err).Msg("score cache write failed")
	}
}

func weatherMains(results []weather.RouteResult, routeIndex int) []*weather.Main {
	for _, r := range results {
		if r.RouteIndex != routeIndex {
			continue
		}
		mains := make([]*weather.Main, 0, len(r.Points))
		for _, p := range r.Points {
			mains = append(mains, p.Main)
		}
		return mains
	}
	return nil
}

func aqiReadings(results []airquality.RouteResult, routeIndex int) []*airquality.Reading {
	for _, r := range results {
		if r.RouteIndex != routeIndex {
			continue
		}
		readings := make([]*airquality.Reading, 0, len(r.Points))
		for _, p := range r.Points {
			readings = append(readings, p.Reading)
		}
		return readings
	}
	return nil
}
