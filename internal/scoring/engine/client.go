// Package engine provides the client for the external batch scoring
// service used by the rescore worker.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/provider/resilience"
	"github.com/breathclean/breathclean/internal/scoring"
	"github.com/breathclean/breathclean/internal/weather"
)

const (
	// ProviderName identifies the batch scoring service.
	ProviderName = "scoring-engine"

	// DefaultBaseURL is the local development address of the service.
	DefaultBaseURL = "http://localhost:8001"

	// MaxBatchRoutes is the largest batch the service accepts per call.
	MaxBatchRoutes = 10
)

// Client errors.
var (
	ErrMissingBaseURL = errors.New("engine: base URL is required")
	ErrBatchTooLarge  = errors.New("engine: too many routes in batch")
	ErrEmptyBatch     = errors.New("engine: empty batch")
)

// ClientConfig holds configuration for the scoring-engine client.
type ClientConfig struct {
	// BaseURL is the service base URL (required).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with the engine profile.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the batch scoring service.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a scoring-engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.EngineClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

type weatherPoint struct {
	Main *weather.Main `json:"main"`
}

type aqiPoint struct {
	AQI *airquality.Reading `json:"aqi"`
}

type batchRoute struct {
	RouteID           string                `json:"routeId,omitempty"`
	RouteIndex        int                   `json:"routeIndex"`
	Distance          float64               `json:"distance"`
	Duration          float64               `json:"duration"`
	TravelMode        string                `json:"travelMode"`
	WeatherPoints     []weatherPoint        `json:"weatherPoints"`
	AQIPoints         []aqiPoint            `json:"aqiPoints"`
	TrafficValue      float64               `json:"trafficValue"`
	LastComputedScore *float64              `json:"lastComputedScore,omitempty"`
}

type batchRequest struct {
	Routes []batchRoute `json:"routes"`
}

type batchResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Routes     []scoring.RouteScore `json:"routes"`
	BestRoute  scoring.BestRoute    `json:"bestRoute"`
	Summary    scoring.Summary      `json:"summary"`
	ComputedAt time.Time            `json:"computedAt"`
}

// ComputeBatch submits up to MaxBatchRoutes routes for scoring and
// returns the computed scores in request order.
func (c *Client) ComputeBatch(ctx context.Context, routes []scoring.RouteData) ([]scoring.RouteScore, error) {
	if len(routes) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(routes) > MaxBatchRoutes {
		return nil, ErrBatchTooLarge
	}

	payload := batchRequest{Routes: make([]batchRoute, 0, len(routes))}
	for _, r := range routes {
		payload.Routes = append(payload.Routes, toBatchRoute(r))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling batch request: %w", err)
	}

	url := c.baseURL + "/api/compute-scores/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	var engineResp batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&engineResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !engineResp.Success {
		if engineResp.Message != "" {
			return nil, fmt.Errorf("engine rejected batch: %s", engineResp.Message)
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return engineResp.Routes, nil
}

// Health checks the engine's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health/", http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func toBatchRoute(r scoring.RouteData) batchRoute {
	weatherPoints := make([]weatherPoint, 0, len(r.WeatherPoints))
	for _, p := range r.WeatherPoints {
		weatherPoints = append(weatherPoints, weatherPoint{Main: p})
	}
	aqiPoints := make([]aqiPoint, 0, len(r.AQIPoints))
	for _, p := range r.AQIPoints {
		aqiPoints = append(aqiPoints, aqiPoint{AQI: p})
	}

	return batchRoute{
		RouteID:           r.RouteID,
		RouteIndex:        r.RouteIndex,
		Distance:          r.Distance,
		Duration:          r.Duration,
		TravelMode:        string(r.TravelMode),
		WeatherPoints:     weatherPoints,
		AQIPoints:         aqiPoints,
		TrafficValue:      r.TrafficValue,
		LastComputedScore: r.PreviousScore,
	}
}
