package breakpoint

import (
	"math"

	"github.com/rs/zerolog"
)

const (
	// coordTolerance is the per-axis tolerance within which two
	// coordinates are treated as the same breakpoint.
	coordTolerance = 0.0001

	// probeRadius is how far (in geometry indices) the extractor walks
	// away from a colliding candidate before dropping the slot.
	probeRadius = 9
)

// Extractor turns route geometries into breakpoint sets.
type Extractor struct {
	logger zerolog.Logger
}

// NewExtractor creates a breakpoint extractor.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// CountForDistance returns the nominal breakpoint count for a route of
// the given length in kilometres. The thresholds are intentionally
// irregular (500-750km routes get fewer points than 300-500km ones);
// they are part of the scoring contract and must not be smoothed out.
func CountForDistance(km float64) int {
	switch {
	case km < 100:
		return 3
	case km < 300:
		return 3
	case km < 500:
		return 4
	case km < 750:
		return 3
	default:
		return 4
	}
}

// Extract samples breakpoints for every route in the request.
//
// Candidate positions sit at fractional offsets (i+1)/(count+1) along the
// geometry, clamped so the exact start and end vertices are never chosen.
// The one exception is the minimum accepted geometry of two points, which
// has no interior vertex: there the end vertex itself is sampled.
// Breakpoints are globally unique across the whole request: a candidate
// within coordTolerance of an already-chosen point is replaced by the
// nearest non-colliding neighbour (probing outward, alternating direction),
// and the slot is dropped when no neighbour qualifies within probeRadius.
func (e *Extractor) Extract(routes []RouteInput) ([]RouteBreakpoints, error) {
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	if len(routes) > MaxRoutes {
		return nil, ErrTooManyRoutes
	}
	for _, r := range routes {
		if len(r.Geometry) < 2 {
			return nil, ErrGeometryTooShort
		}
	}

	var chosen []Coordinate
	results := make([]RouteBreakpoints, 0, len(routes))

	for ri, route := range routes {
		count := CountForDistance(route.Distance)
		points := make(map[int]Coordinate, count)
		slot := 1

		for i := 0; i < count; i++ {
			offset := float64(i+1) / float64(count+1)
			idx := interiorIndex(offset, len(route.Geometry))

			coord, ok := pickDistinct(route.Geometry, idx, chosen)
			if !ok {
				e.logger.Debug().
					Int("route_index", ri).
					Int("geometry_index", idx).
					Msg("breakpoint slot dropped: no distinct candidate within probe radius")
				continue
			}

			chosen = append(chosen, coord)
			points[slot] = coord
			slot++
		}

		results = append(results, RouteBreakpoints{RouteIndex: ri, Points: points})
	}

	return results, nil
}

// interiorIndex maps a fractional offset to a geometry index, clamped so
// the first and last vertices are excluded. Geometries of exactly two
// points have no interior vertex; the second point is the closest we can get.
func interiorIndex(offset float64, n int) int {
	idx := int(offset * float64(n))
	hi := n - 2
	if hi < 1 {
		hi = 1
	}
	if idx < 1 {
		return 1
	}
	if idx > hi {
		return hi
	}
	return idx
}

// pickDistinct returns the coordinate at idx if it does not collide with
// an already-chosen breakpoint, otherwise probes alternate indices
// outward (+1, -1, +2, -2, ...) up to probeRadius steps.
func pickDistinct(geometry [][]float64, idx int, chosen []Coordinate) (Coordinate, bool) {
	candidate := toCoordinate(geometry[idx])
	if !collides(candidate, chosen) {
		return candidate, true
	}

	hi := len(geometry) - 2
	if hi < 1 {
		hi = 1
	}
	for step := 1; step <= probeRadius; step++ {
		for _, alt := range [2]int{idx + step, idx - step} {
			if alt < 1 || alt > hi {
				continue
			}
			c := toCoordinate(geometry[alt])
			if !collides(c, chosen) {
				return c, true
			}
		}
	}

	return Coordinate{}, false
}

// toCoordinate converts a [lon, lat] geometry pair to a Coordinate.
func toCoordinate(pair []float64) Coordinate {
	return Coordinate{Lat: pair[1], Lon: pair[0]}
}

func collides(c Coordinate, chosen []Coordinate) bool {
	for _, other := range chosen {
		if math.Abs(c.Lat-other.Lat) < coordTolerance &&
			math.Abs(c.Lon-other.Lon) < coordTolerance {
			return true
		}
	}
	return false
}
