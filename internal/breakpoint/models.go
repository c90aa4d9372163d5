// Package breakpoint extracts sample coordinates from route geometries.
// Breakpoints are the proxy locations used for environmental data lookups,
// so every downstream package (fetchers, scoring, persistence) works in
// terms of the types defined here.
package breakpoint

import "errors"

// Extraction errors.
var (
	ErrNoRoutes         = errors.New("no routes provided")
	ErrTooManyRoutes    = errors.New("too many routes provided")
	ErrGeometryTooShort = errors.New("route geometry needs at least 2 coordinate pairs")
)

// MaxRoutes is the maximum number of routes scored per request.
// Every breakpoint costs two provider calls, so this bounds external
// API spend per request.
const MaxRoutes = 3

// MaxSlots is the highest breakpoint slot index a route can carry.
const MaxSlots = 7

// TravelMode is the mode of travel for a route option.
type TravelMode string

// Supported travel modes.
const (
	ModeWalking TravelMode = "walking"
	ModeCycling TravelMode = "cycling"
	ModeDriving TravelMode = "driving"
)

// Valid reports whether the travel mode is one of the supported values.
func (m TravelMode) Valid() bool {
	switch m {
	case ModeWalking, ModeCycling, ModeDriving:
		return true
	}
	return false
}

// Coordinate is an immutable geographic point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteInput is one candidate route as supplied by the routing collaborator.
// Geometry is stored in the provider's [lon, lat] order.
type RouteInput struct {
	Distance   float64     // kilometres
	Duration   float64     // minutes
	TravelMode TravelMode
	Geometry   [][]float64 // ordered [lon, lat] pairs, at least 2
}

// RouteBreakpoints holds the extracted breakpoints for a single route,
// keyed by slot index (1..MaxSlots). The mapping is sparse: a slot that
// collided with every probe candidate is simply absent. Never mutated
// after extraction.
type RouteBreakpoints struct {
	RouteIndex int                `json:"routeIndex"`
	Points     map[int]Coordinate `json:"points"`
}

// Ordered returns the breakpoints in ascending slot order.
func (rb RouteBreakpoints) Ordered() []Coordinate {
	coords := make([]Coordinate, 0, len(rb.Points))
	for slot := 1; slot <= MaxSlots; slot++ {
		if c, ok := rb.Points[slot]; ok {
			coords = append(coords, c)
		}
	}
	return coords
}

// Count returns the number of breakpoints extracted for the route.
func (rb RouteBreakpoints) Count() int {
	return len(rb.Points)
}
