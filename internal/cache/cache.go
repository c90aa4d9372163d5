// Package cache provides the TTL stores backing score caching and
// breakpoint persistence between the compute and save flows.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Default lifetimes for the two cached artifact kinds.
const (
	ScoreTTL      = 30 * time.Minute
	BreakpointTTL = time.Hour
)

// Store is a byte-oriented TTL cache.
type Store interface {
	// Get returns the value stored under key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
