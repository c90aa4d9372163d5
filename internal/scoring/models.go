// Package scoring converts environmental readings and traffic congestion
// into comparable route scores, and orchestrates the extract-fetch-score
// pipeline behind the score-compute endpoint.
package scoring

import (
	"errors"
	"time"

	"github.com/breathclean/breathclean/internal/airquality"
	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/weather"
)

// Pipeline errors.
var (
	ErrNoRoutes      = errors.New("no routes provided")
	ErrTooManyRoutes = errors.New("too many routes provided")
)

// Sub-score weights for the overall score.
const (
	weatherWeight = 0.4
	aqiWeight     = 0.3
	trafficWeight = 0.3
)

// CategoryNoData is the AQI category reported when a route has no valid
// AQI reading at all.
const CategoryNoData = "Unknown - No Data"

// WeatherDetails carries the raw field averages behind a weather score.
type WeatherDetails struct {
	AvgTemp     *float64 `json:"avgTemp,omitempty"`
	AvgHumidity *float64 `json:"avgHumidity,omitempty"`
	AvgPressure *float64 `json:"avgPressure,omitempty"`
}

// WeatherScore holds the weather sub-scores for a route.
type WeatherScore struct {
	Temperature float64         `json:"temperature"`
	Humidity    float64         `json:"humidity"`
	Pressure    float64         `json:"pressure"`
	Overall     float64         `json:"overall"`
	Details     *WeatherDetails `json:"details"`
}

// AQIDetails carries the dominant pollutant and per-pollutant averages
// behind an AQI score.
type AQIDetails struct {
	DominantPollutant string                      `json:"dominentpol,omitempty"`
	Pollutants        *airquality.PollutantLevels `json:"pollutants,omitempty"`
}

// AQIScore holds the AQI sub-score for a route.
type AQIScore struct {
	AQI      float64     `json:"aqi"`
	Score    float64     `json:"score"`
	Category string      `json:"category"`
	Details  *AQIDetails `json:"details"`
}

// RouteScore is the scored output for one route.
type RouteScore struct {
	RouteIndex      int                   `json:"routeIndex"`
	RouteID         string                `json:"routeId,omitempty"`
	Distance        float64               `json:"distance"`
	Duration        float64               `json:"duration"`
	TravelMode      breakpoint.TravelMode `json:"travelMode"`
	BreakpointCount int                   `json:"breakpointCount"`
	Weather         WeatherScore          `json:"weatherScore"`
	AQI             AQIScore              `json:"aqiScore"`
	Traffic         float64               `json:"trafficScore"`
	OverallScore    float64               `json:"overallScore"`
	PreviousScore   *float64              `json:"lastComputedScore,omitempty"`
	ScoreDelta      *float64              `json:"scoreChange,omitempty"`
	ComputedAt      time.Time             `json:"computedAt"`
}

// RouteData is the input for scoring a single route.
type RouteData struct {
	RouteIndex    int
	RouteID       string
	Distance      float64
	Duration      float64
	TravelMode    breakpoint.TravelMode
	Breakpoints   int
	WeatherPoints []*weather.Main
	AQIPoints     []*airquality.Reading
	TrafficValue  float64
	PreviousScore *float64
}

// BestRoute identifies the highest-scoring route of a request.
type BestRoute struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// ScoreRange is the min/max spread of overall scores in a request.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Summary aggregates the scores of a request.
type Summary struct {
	TotalRoutes  int        `json:"totalRoutes"`
	AverageScore float64    `json:"averageScore"`
	ScoreRange   ScoreRange `json:"scoreRange"`
}

// ComputeResponse is the score-compute result envelope. SearchID is the
// breakpoint-cache identifier the save flow can present later.
type ComputeResponse struct {
	Routes     []RouteScore `json:"routes"`
	BestRoute  BestRoute    `json:"bestRoute"`
	Summary    Summary      `json:"summary"`
	SearchID   string       `json:"searchId"`
	Cached     bool         `json:"cached"`
	ComputedAt time.Time    `json:"computedAt"`
}
