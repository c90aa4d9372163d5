package scoring_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/cache"
	"github.com/breathclean/breathclean/internal/scoring"
	"github.com/breathclean/breathclean/internal/weather"
)

type stubWeatherFetcher struct {
	calls atomic.Int32
}

func (s *stubWeatherFetcher) FetchAll(_ context.Context, breakpoints []breakpoint.RouteBreakpoints) ([]weather.RouteResult, error) {
	s.calls.Add(1)
	results := make([]weather.RouteResult, 0, len(breakpoints))
	for _, rb := range breakpoints {
		points := make([]weather.PointReading, 0, rb.Count())
		for slot, loc := range rb.Points {
			points = append(points, weather.PointReading{
				Slot:     slot,
				Location: loc,
				Main:     &weather.Main{Temp: fptr(21), Humidity: fptr(50), Pressure: fptr(1013)},
			})
		}
		results = append(results, weather.RouteResult{
			RouteIndex:        rb.RouteIndex,
			Points:            points,
			TotalPoints:       rb.Count(),
			SuccessfulFetches: rb.Count(),
		})
	}
	return results, nil
}

type stubAQIFetcher struct {
	calls atomic.Int32
}

func (s *stubAQIFetcher) FetchAll(_ context.Context, breakpoints []breakpoint.RouteBreakpoints) ([]airquality.RouteResult, error) {
	s.calls.Add(1)
	results := make([]airquality.RouteResult, 0, len(breakpoints))
	for _, rb := range breakpoints {
		points := make([]airquality.PointReading, 0, rb.Count())
		for slot, loc := range rb.Points {
			points = append(points, airquality.PointReading{
				Slot:     slot,
				Location: loc,
				Reading:  &airquality.Reading{AQI: 15},
			})
		}
		results = append(results, airquality.RouteResult{
			RouteIndex:        rb.RouteIndex,
			Points:            points,
			TotalPoints:       rb.Count(),
			SuccessfulFetches: rb.Count(),
		})
	}
	return results, nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func testRoute() breakpoint.RouteInput {
	geometry := make([][]float64, 0, 12)
	for i := 0; i < 12; i++ {
		geometry = append(geometry, []float64{4.90 + float64(i)*0.01, 52.36 + float64(i)*0.01})
	}
	return breakpoint.RouteInput{
		Distance:   420,
		Duration:   35,
		TravelMode: breakpoint.ModeCycling,
		Geometry:   geometry,
	}
}

func newTestService(store cache.Store) (*scoring.Service, *stubWeatherFetcher, *stubAQIFetcher) {
	wf := &stubWeatherFetcher{}
	af := &stubAQIFetcher{}
	extractor := breakpoint.NewExtractor(zerolog.Nop())
	return scoring.NewService(extractor, wf, af, store, zerolog.Nop()), wf, af
}

func TestCompute_ScoresRoutes(t *testing.T) {
	svc, wf, af := newTestService(cache.NewMemoryStore())

	resp, err := svc.Compute(context.Background(), scoring.ComputeInput{
		Routes:  []breakpoint.RouteInput{testRoute()},
		Traffic: []float64{0},
	})
	require.NoError(t, err)

	require.Len(t, resp.Routes, 1)
	assert.InDelta(t, 100, resp.Routes[0].OverallScore, 0.001)
	assert.Equal(t, 0, resp.BestRoute.Index)
	assert.Equal(t, 1, resp.Summary.TotalRoutes)
	assert.NotEmpty(t, resp.SearchID)
	assert.False(t, resp.Cached)
	assert.Equal(t, int32(1), wf.calls.Load())
	assert.Equal(t, int32(1), af.calls.Load())
}

func TestCompute_CacheHitSkipsFetchers(t *testing.T) {
	svc, wf, af := newTestService(cache.NewMemoryStore())
	input := scoring.ComputeInput{Routes: []breakpoint.RouteInput{testRoute()}}

	first, err := svc.Compute(context.Background(), input)
	require.NoError(t, err)
	second, err := svc.Compute(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.NotEqual(t, first.SearchID, second.SearchID, "hits mint a fresh search id")
	assert.Equal(t, first.Routes[0].OverallScore, second.Routes[0].OverallScore)
	assert.Equal(t, int32(1), wf.calls.Load(), "fetchers must not run on a hit")
	assert.Equal(t, int32(1), af.calls.Load())
}

func TestCompute_DifferentTrafficMissesCache(t *testing.T) {
	svc, wf, _ := newTestService(cache.NewMemoryStore())
	routes := []breakpoint.RouteInput{testRoute()}

	_, err := svc.Compute(context.Background(), scoring.ComputeInput{Routes: routes, Traffic: []float64{0}})
	require.NoError(t, err)
	_, err = svc.Compute(context.Background(), scoring.ComputeInput{Routes: routes, Traffic: []float64{2}})
	require.NoError(t, err)

	assert.Equal(t, int32(2), wf.calls.Load())
}

func TestCompute_ValidatesRouteCount(t *testing.T) {
	svc, _, _ := newTestService(cache.NewMemoryStore())

	_, err := svc.Compute(context.Background(), scoring.ComputeInput{})
	assert.ErrorIs(t, err, scoring.ErrNoRoutes)

	routes := []breakpoint.RouteInput{testRoute(), testRoute(), testRoute(), testRoute()}
	_, err = svc.Compute(context.Background(), scoring.ComputeInput{Routes: routes})
	assert.ErrorIs(t, err, scoring.ErrTooManyRoutes)
}

func TestCompute_CacheFailureDoesNotFailRequest(t *testing.T) {
	svc, wf, _ := newTestService(failingStore{})

	resp, err := svc.Compute(context.Background(), scoring.ComputeInput{
		Routes: []breakpoint.RouteInput{testRoute()},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SearchID)
	assert.Equal(t, int32(1), wf.calls.Load())
}

func TestLookupBreakpoints(t *testing.T) {
	svc, _, _ := newTestService(cache.NewMemoryStore())
	route := testRoute()

	resp, err := svc.Compute(context.Background(), scoring.ComputeInput{
		Routes: []breakpoint.RouteInput{route},
	})
	require.NoError(t, err)

	points, err := svc.LookupBreakpoints(context.Background(), resp.SearchID)
	require.NoError(t, err)

	expected, err := breakpoint.NewExtractor(zerolog.Nop()).Extract([]breakpoint.RouteInput{route})
	require.NoError(t, err)
	assert.Equal(t, expected, points)

	_, err = svc.LookupBreakpoints(context.Background(), "unknown-id")
	assert.ErrorIs(t, err, cache.ErrMiss)
}
