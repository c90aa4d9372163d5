package waqi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathclean/breathclean/internal/airquality/waqi"
	"github.com/breathclean/breathclean/internal/provider/resilience"
)

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := waqi.NewClient(waqi.ClientConfig{})
	assert.ErrorIs(t, err, waqi.ErrMissingToken)
}

func TestClient_FetchPoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/feed/geo:")
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))

		_, _ = w.Write([]byte(`{
			"status": "ok",
			"data": {
				"aqi": 42,
				"dominentpol": "pm25",
				"iaqi": {
					"pm25": {"v": 42},
					"pm10": {"v": 18},
					"no2": {"v": 9.1}
				}
			}
		}`))
	}))
	defer server.Close()

	client, err := waqi.NewClient(waqi.ClientConfig{
		Token:      "test-token",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.FetchClientConfig("test")),
	})
	require.NoError(t, err)

	reading, err := client.FetchPoint(context.Background(), 52.37, 4.89)
	require.NoError(t, err)

	assert.InDelta(t, 42, reading.AQI, 0.001)
	assert.Equal(t, "pm25", reading.DominantPollutant)
	require.NotNil(t, reading.Pollutants)
	require.NotNil(t, reading.Pollutants.PM25)
	assert.InDelta(t, 42, *reading.Pollutants.PM25, 0.001)
	require.NotNil(t, reading.Pollutants.NO2)
	assert.InDelta(t, 9.1, *reading.Pollutants.NO2, 0.001)
	assert.Nil(t, reading.Pollutants.O3)
}

func TestClient_FetchPoint_InBandError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "error", "data": {}}`))
	}))
	defer server.Close()

	client, err := waqi.NewClient(waqi.ClientConfig{
		Token:      "test-token",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.FetchClientConfig("test")),
	})
	require.NoError(t, err)

	_, err = client.FetchPoint(context.Background(), 52.0, 4.0)
	assert.Error(t, err)
}

func TestClient_FetchPoint_NoPollutantBreakdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok", "data": {"aqi": 15}}`))
	}))
	defer server.Close()

	client, err := waqi.NewClient(waqi.ClientConfig{
		Token:      "test-token",
		BaseURL:    server.URL,
		HTTPClient: resilience.NewClient(resilience.FetchClientConfig("test")),
	})
	require.NoError(t, err)

	reading, err := client.FetchPoint(context.Background(), 52.0, 4.0)
	require.NoError(t, err)

	assert.InDelta(t, 15, reading.AQI, 0.001)
	assert.Nil(t, reading.Pollutants)
}
