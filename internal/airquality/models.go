// Package airquality fetches per-breakpoint AQI readings from an
// external provider with bounded parallelism. It mirrors the weather
// fetcher structurally; the two share the batch executor and the
// resilient HTTP client.
package airquality

import (
	"errors"

	"github.com/breathclean/breathclean/internal/breakpoint"
)

// Fetcher errors.
var (
	ErrNotConfigured = errors.New("air quality provider not configured")
	ErrNoRoutes      = errors.New("no routes provided")
)

// PollutantLevels carries per-pollutant index values. Every field is
// optional: stations report different pollutant sets, and the calculator
// averages only the fields that are present.
type PollutantLevels struct {
	PM25 *float64 `json:"pm25,omitempty"`
	PM10 *float64 `json:"pm10,omitempty"`
	O3   *float64 `json:"o3,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
	SO2  *float64 `json:"so2,omitempty"`
	CO   *float64 `json:"co,omitempty"`
}

// Reading is the normalized AQI observation for one breakpoint.
type Reading struct {
	AQI               float64          `json:"aqi"`
	DominantPollutant string           `json:"dominentpol,omitempty"`
	Pollutants        *PollutantLevels `json:"pollutants,omitempty"`
}

// PointReading is the fetch outcome for one breakpoint. Reading is nil
// when the point exhausted its retries.
type PointReading struct {
	Slot       int                   `json:"slot"`
	Location   breakpoint.Coordinate `json:"location"`
	Reading    *Reading              `json:"aqi,omitempty"`
	FetchError string                `json:"fetchError,omitempty"`
}

// RouteResult groups the point readings for one route, index-aligned
// with the FetchAll input.
type RouteResult struct {
	RouteIndex        int            `json:"routeIndex"`
	Points            []PointReading `json:"points"`
	TotalPoints       int            `json:"totalPoints"`
	SuccessfulFetches int            `json:"successfulFetches"`
}
