// Package route provides saved-route management: persistence of route
// options with their extracted breakpoints, and the bookkeeping the
// rescore worker reads and updates.
package route

import (
	"errors"
	"time"

	"github.com/breathclean/breathclean/internal/breakpoint"
)

// Repository errors.
var (
	ErrRouteNotFound  = errors.New("route not found")
	ErrOptionNotFound = errors.New("route option not found")
)

// SavedRoute is a route a user chose to keep, with all its candidate
// options.
type SavedRoute struct {
	ID          string
	UserID      string
	Name        string
	Origin      Endpoint
	Destination Endpoint
	TravelMode  breakpoint.TravelMode
	Favorite    bool
	Options     []RouteOption
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Endpoint is one end of a saved route.
type Endpoint struct {
	Label *string
	Lat   float64
	Lon   float64
}

// RouteOption is one candidate geometry of a saved route. The score
// fields are nil until the rescore worker first visits the option.
// TrafficValue is the congestion reading submitted at save time; the
// rescore worker sends it to the scoring engine with each refresh.
type RouteOption struct {
	ID                string
	RouteID           string
	OptionIndex       int
	Distance          float64
	Duration          float64
	Geometry          [][]float64
	TrafficValue      float64
	LastComputedScore *float64
	LastComputedAt    *time.Time
}

// BreakPoint is one persisted sampling coordinate of a route option,
// read in bulk by the rescore worker.
type BreakPoint struct {
	ID          string
	RouteID     string
	OptionIndex int
	PointIndex  int
	Lat         float64
	Lon         float64
}
