// Package waqi provides the World Air Quality Index (aqicn.org) provider.
package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/provider/resilience"
)

const (
	// ProviderName identifies this AQI provider.
	ProviderName = "waqi"

	// DefaultBaseURL is the WAQI API base URL.
	DefaultBaseURL = "https://api.waqi.info"
)

// ErrMissingToken is returned when the client is constructed without an
// API token.
var ErrMissingToken = errors.New("waqi: API token is required")

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// Token is the WAQI API token (required).
	Token string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with the environmental fetch profile.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a WAQI API client.
type Client struct {
	token      string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new WAQI client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.FetchClientConfig(ProviderName))
	}

	return &Client{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchPoint fetches the AQI reading from the station nearest to a
// coordinate.
func (c *Client) FetchPoint(ctx context.Context, lat, lon float64) (*airquality.Reading, error) {
	url := fmt.Sprintf("%s/feed/geo:%.6f;%.6f/?token=%s", c.baseURL, lat, lon, c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	// WAQI signals errors in-band with a 200 status.
	if feed.Status != "ok" {
		return nil, fmt.Errorf("provider status %q", feed.Status)
	}

	return toReading(&feed.Data), nil
}

// toReading converts a WAQI feed payload to the normalized reading.
func toReading(data *feedData) *airquality.Reading {
	reading := &airquality.Reading{
		AQI:               data.AQI,
		DominantPollutant: data.DominantPollutant,
	}

	levels := &airquality.PollutantLevels{
		PM25: iaqiValue(data.IAQI.PM25),
		PM10: iaqiValue(data.IAQI.PM10),
		O3:   iaqiValue(data.IAQI.O3),
		NO2:  iaqiValue(data.IAQI.NO2),
		SO2:  iaqiValue(data.IAQI.SO2),
		CO:   iaqiValue(data.IAQI.CO),
	}
	if *levels != (airquality.PollutantLevels{}) {
		reading.Pollutants = levels
	}

	return reading
}

func iaqiValue(entry *iaqiEntry) *float64 {
	if entry == nil {
		return nil
	}
	v := entry.V
	return &v
}

// WAQI API response structures.

type feedResponse struct {
	Status string   `json:"status"`
	Data   feedData `json:"data"`
}

type feedData struct {
	AQI               float64 `json:"aqi"`
	DominantPollutant string  `json:"dominentpol"`
	IAQI              struct {
		PM25 *iaqiEntry `json:"pm25"`
		PM10 *iaqiEntry `json:"pm10"`
		O3   *iaqiEntry `json:"o3"`
		NO2  *iaqiEntry `json:"no2"`
		SO2  *iaqiEntry `json:"so2"`
		CO   *iaqiEntry `json:"co"`
	} `json:"iaqi"`
}

type iaqiEntry struct {
	V float64 `json:"v"`
}
