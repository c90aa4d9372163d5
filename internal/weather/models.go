// Package weather fetches per-breakpoint weather readings from an
// external provider with bounded parallelism.
package weather

import (
	"errors"

	"github.com/breathclean/breathclean/internal/breakpoint"
)

// Fetcher errors.
var (
	// ErrNotConfigured is returned when no provider is wired, typically
	// because the provider API key is missing from configuration.
	ErrNotConfigured = errors.New("weather provider not configured")

	// ErrNoRoutes is returned when FetchAll is called with no routes.
	ErrNoRoutes = errors.New("no routes provided")
)

// Main holds the normalized weather observation for one breakpoint.
// The three scored fields are optional: a provider response may omit any
// of them, and the calculator keeps per-field counters.
type Main struct {
	Temp      *float64 `json:"temp,omitempty"`
	Humidity  *float64 `json:"humidity,omitempty"`
	Pressure  *float64 `json:"pressure,omitempty"`
	FeelsLike float64  `json:"feels_like,omitempty"`
	TempMin   float64  `json:"temp_min,omitempty"`
	TempMax   float64  `json:"temp_max,omitempty"`
}

// PointReading is the fetch outcome for one breakpoint. Main is nil when
// the point exhausted its retries; FetchError carries the annotation.
type PointReading struct {
	Slot       int                   `json:"slot"`
	Location   breakpoint.Coordinate `json:"location"`
	Main       *Main                 `json:"main,omitempty"`
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
