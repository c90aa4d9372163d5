package weather_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/weather"
)

type stubProvider struct {
	calls    atomic.Int32
	failOnly map[int]bool // by call order, 1-based
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) FetchPoint(_ context.Context, lat, _ float64) (*weather.Main, error) {
	call := int(s.calls.Add(1))
	if s.failOnly[call] {
		return nil, errors.New("provider unavailable")
	}
	temp := 15.0 + lat
	return &weather.Main{Temp: &temp}, nil
}

func twoRoutes() []breakpoint.RouteBreakpoints {
	return []breakpoint.RouteBreakpoints{
		{RouteIndex: 0, Points: map[int]breakpoint.Coordinate{
			1: {Lat: 0.1, Lon: 4.0},
			2: {Lat: 0.2, Lon: 4.1},
			3: {Lat: 0.3, Lon: 4.2},
		}},
		{RouteIndex: 1, Points: map[int]breakpoint.Coordinate{
			1: {Lat: 1.1, Lon: 5.0},
			2: {Lat: 1.2, Lon: 5.1},
		}},
	}
}

func TestFetchAll_GroupsResultsByRoute(t *testing.T) {
	provider := &stubProvider{}
	fetcher := weather.NewFetcher(weather.FetcherConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	results, err := fetcher.FetchAll(context.Background(), twoRoutes())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].RouteIndex)
	assert.Equal(t, 3, results[0].TotalPoints)
	assert.Equal(t, 3, results[0].SuccessfulFetches)
	assert.Equal(t, 1, results[1].RouteIndex)
	assert.Equal(t, 2, results[1].TotalPoints)
	assert.EqualValues(t, 5, provider.calls.Load())

	// Slot order is preserved within a route.
	for i, p := range results[0].Points {
		assert.Equal(t, i+1, p.Slot)
	}
}

func TestFetchAll_FailedPointDoesNotFailBatch(t *testing.T) {
	provider := &stubProvider{failOnly: map[int]bool{2: true}}
	fetcher := weather.NewFetcher(weather.FetcherConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	results, err := fetcher.FetchAll(context.Background(), twoRoutes())
	require.NoError(t, err)

	total := results[0].SuccessfulFetches + results[1].SuccessfulFetches
	assert.Equal(t, 4, total)

	var failed int
	for _, r := range results {
		for _, p := range r.Points {
			if p.Main == nil {
				failed++
				assert.NotEmpty(t, p.FetchError)
			}
		}
	}
	assert.Equal(t, 1, failed)
}

func TestFetchAll_EmptyRouteList(t *testing.T) {
	fetcher := weather.NewFetcher(weather.FetcherConfig{
		Provider: &stubProvider{},
		Logger:   zerolog.Nop(),
	})

	_, err := fetcher.FetchAll(context.Background(), nil)
	assert.ErrorIs(t, err, weather.ErrNoRoutes)
}

func TestFetchAll_MissingProvider(t *testing.T) {
	fetcher := weather.NewFetcher(weather.FetcherConfig{Logger: zerolog.Nop()})

	_, err := fetcher.FetchAll(context.Background(), twoRoutes())
	assert.ErrorIs(t, err, weather.ErrNotConfigured)
}
