package route

import (
	"context"
	"time"
)

// ListOptions contains options for listing saved routes.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing saved routes.
type ListResult struct {
	Items      []*SavedRoute
	NextCursor string
}

// Repository defines the interface for saved-route persistence.
type Repository interface {
	// Get retrieves a route by ID, with its options.
	Get(ctx context.Context, id string) (*SavedRoute, error)

	// GetByUserAndID retrieves a route by user ID and route ID.
	// Returns ErrRouteNotFound if the route doesn't exist or doesn't
	// belong to the user.
	GetByUserAndID(ctx context.Context, userID, routeID string) (*SavedRoute, error)

	// List retrieves all routes for a user with pagination.
	List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// ListAll retrieves every saved route with its options, used by the
	// rescore worker.
	ListAll(ctx context.Context) ([]*SavedRoute, error)

	// Create creates a new route and its options.
	Create(ctx context.Context, route *SavedRoute) error

	// Delete deletes a route and its options by ID.
	Delete(ctx context.Context, id string) error

	// SetFavorite sets the favorite flag on a route.
	SetFavorite(ctx context.Context, id string, favorite bool) error

	// UpdateOptionScore records a freshly computed score for one option.
	UpdateOptionScore(ctx context.Context, routeID string, optionIndex int, score float64, at time.Time) error
}

// BreakpointRepository defines the interface for persisted breakpoints.
type BreakpointRepository interface {
	// CreateBatch persists a set of breakpoints in one call.
	CreateBatch(ctx context.Context, points []BreakPoint) error

	// ListByOption retrieves the breakpoints of one route option in
	// point order.
	ListByOption(ctx context.Context, routeID string, optionIndex int) ([]BreakPoint, error)

	// DeleteByRoute removes all breakpoints of a route.
	DeleteByRoute(ctx context.Context, routeID string) error
}
