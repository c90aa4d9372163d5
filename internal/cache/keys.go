package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// ScoreKeyPart is the fingerprint input for one route of a score
// request.
type ScoreKeyPart struct {
	Geometry     [][]float64
	TravelMode   string
	TrafficValue float64
}

// ScoreKey derives a deterministic cache key from the request inputs
// that affect a score: each route's geometry, travel mode and traffic
// value. Coordinates are formatted to six decimal places so float
// formatting noise cannot split equivalent requests across keys.
func ScoreKey(parts []ScoreKeyPart) string {
	var b strings.Builder
	for _, part := range parts {
		for _, coord := range part.Geometry {
			for _, v := range coord {
				fmt.Fprintf(&b, "%.6f,", v)
			}
		}
		fmt.Fprintf(&b, "%s|%.2f;", part.TravelMode, part.TrafficValue)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "score:" + hex.EncodeToString(sum[:])
}

// BreakpointKey is the cache key for the breakpoints of one search.
func BreakpointKey(searchID string) string {
	return "bp:" + searchID
}
