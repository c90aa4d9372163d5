package route

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	routes map[string]*SavedRoute
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		routes: make(map[string]*SavedRoute),
	}
}

// Get retrieves a route by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*SavedRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[id]
	if !ok {
		return nil, ErrRouteNotFound
	}
	return copyRoute(route), nil
}

// GetByUserAndID retrieves a route by user ID and route ID.
func (r *InMemoryRepository) GetByUserAndID(_ context.Context, userID, routeID string) (*SavedRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[routeID]
	if !ok || route.UserID != userID {
		return nil, ErrRouteNotFound
	}
	return copyRoute(route), nil
}

// List retrieves all routes for a user with pagination.
func (r *InMemoryRepository) List(_ context.Context, userID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var routes []*SavedRoute
	for _, route := range r.routes {
		if route.UserID == userID {
			routes = append(routes, copyRoute(route))
		}
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].CreatedAt.After(routes[j].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: routes}
	if len(routes) > limit {
		result.Items = routes[:limit]
		result.NextCursor = routes[limit-1].ID
	}

	return result, nil
}

// ListAll retrieves every saved route.
func (r *InMemoryRepository) ListAll(_ context.Context) ([]*SavedRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]*SavedRoute, 0, len(r.routes))
	for _, route := range r.routes {
		routes = append(routes, copyRoute(route))
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].CreatedAt.Before(routes[j].CreatedAt)
	})

	return routes, nil
}

// Create creates a new route.
func (r *InMemoryRepository) Create(_ context.Context, route *SavedRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[route.ID] = copyRoute(route)
	return nil
}

// Delete deletes a route by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.routes, id)
	return nil
}

// SetFavorite sets the favorite flag on a route.
func (r *InMemoryRepository) SetFavorite(_ context.Context, id string, favorite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, ok := r.routes[id]
	if !ok {
		return ErrRouteNotFound
	}
	route.Favorite = favorite
	route.UpdatedAt = time.Now()
	return nil
}

// UpdateOptionScore records a freshly computed score for one option.
func (r *InMemoryRepository) UpdateOptionScore(_ context.Context, routeID string, optionIndex int, score float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, ok := r.routes[routeID]
	if !ok {
		return ErrOptionNotFound
	}
	for i := range route.Options {
		if route.Options[i].OptionIndex == optionIndex {
			s, t := score, at
			route.Options[i].LastComputedScore = &s
			route.Options[i].LastComputedAt = &t
			return nil
		}
	}
	return ErrOptionNotFound
}

func copyRoute(route *SavedRoute) *SavedRoute {
	cpy := *route
	cpy.Options = make([]RouteOption, len(route.Options))
	copy(cpy.Options, route.Options)
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)

// InMemoryBreakpointRepository is an in-memory implementation of
// BreakpointRepository for testing.
type InMemoryBreakpointRepository struct {
	mu     sync.RWMutex
	points []BreakPoint
}

// NewInMemoryBreakpointRepository creates a new in-memory breakpoint
// repository.
func NewInMemoryBreakpointRepository() *InMemoryBreakpointRepository {
	return &InMemoryBreakpointRepository{}
}

// CreateBatch persists a set of breakpoints.
func (r *InMemoryBreakpointRepository) CreateBatch(_ context.Context, points []BreakPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.points = append(r.points, points...)
	return nil
}

// ListByOption retrieves the breakpoints of one route option in point
// order.
func (r *InMemoryBreakpointRepository) ListByOption(_ context.Context, routeID string, optionIndex int) ([]BreakPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var points []BreakPoint
	for _, p := range r.points {
		if p.RouteID == routeID && p.OptionIndex == optionIndex {
			points = append(points, p)
		}
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].PointIndex < points[j].PointIndex
	})

	return points, nil
}

// DeleteByRoute removes all breakpoints of a route.
func (r *InMemoryBreakpointRepository) DeleteByRoute(_ context.Context, routeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.points[:0]
	for _, p := range r.points {
		if p.RouteID != routeID {
			kept = append(kept, p)
		}
	}
	r.points = kept
	return nil
}

// Ensure InMemoryBreakpointRepository implements BreakpointRepository.
var _ BreakpointRepository = (*InMemoryBreakpointRepository)(nil)
