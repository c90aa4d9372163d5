package route

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const routeColumns = `
	id, user_id, name,
	origin_label, origin_lat, origin_lon,
	destination_label, destination_lat, destination_lon,
	travel_mode, favorite, created_at, updated_at
`

// Get retrieves a route by ID, with its options.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*SavedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`
	return r.scanRoute(ctx, query, id)
}

// GetByUserAndID retrieves a route by user ID and route ID.
func (r *PostgresRepository) GetByUserAndID(ctx context.Context, userID, routeID string) (*SavedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1 AND user_id = $2`
	return r.scanRoute(ctx, query, routeID, userID)
}

// scanRoute scans a single route and loads its options.
func (r *PostgresRepository) scanRoute(ctx context.Context, query string, args ...interface{}) (*SavedRoute, error) {
	var route SavedRoute

	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&route.ID,
		&route.UserID,
		&route.Name,
		&route.Origin.Label,
		&route.Origin.Lat,
		&route.Origin.Lon,
		&route.Destination.Label,
		&route.Destination.Lat,
		&route.Destination.Lon,
		&route.TravelMode,
		&route.Favorite,
		&route.CreatedAt,
		&route.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}

	options, err := r.loadOptions(ctx, route.ID)
	if err != nil {
		return nil, err
	}
	route.Options = options

	return &route, nil
}

// loadOptions loads the options of a route in index order.
func (r *PostgresRepository) loadOptions(ctx context.Context, routeID string) ([]RouteOption, error) {
	query := `
		SELECT id, route_id, option_index, distance, duration, geometry,
			traffic_value, last_computed_score, last_computed_at
		FROM route_options
		WHERE route_id = $1
		ORDER BY option_index
	`

	rows, err := r.pool.Query(ctx, query, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []RouteOption
	for rows.Next() {
		var option RouteOption
		err := rows.Scan(
			&option.ID,
			&option.RouteID,
			&option.OptionIndex,
			&option.Distance,
			&option.Duration,
			&option.Geometry,
			&option.TrafficValue,
			&option.LastComputedScore,
			&option.LastComputedAt,
		)
		if err != nil {
			return nil, err
		}
		options = append(options, option)
	}

	return options, rows.Err()
}

// List retrieves all routes for a user with pagination.
func (r *PostgresRepository) List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `
		SELECT ` + routeColumns + `
		FROM routes
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, fetchLimit)
	if err != nil {
		return nil, err
	}

	routes, err := scanRouteRows(rows)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: routes}
	if len(routes) > limit {
		result.Items = routes[:limit]
		result.NextCursor = routes[limit-1].ID
	}

	for _, route := range result.Items {
		options, err := r.loadOptions(ctx, route.ID)
		if err != nil {
			return nil, err
		}
		route.Options = options
	}

	return result, nil
}

// ListAll retrieves every saved route with its options.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*SavedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM routes ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	routes, err := scanRouteRows(rows)
	if err != nil {
		return nil, err
	}

	for _, route := range routes {
		options, err := r.loadOptions(ctx, route.ID)
		if err != nil {
			return nil, err
		}
		route.Options = options
	}

	return routes, nil
}

func scanRouteRows(rows pgx.Rows) ([]*SavedRoute, error) {
	defer rows.Close()

	var routes []*SavedRoute
	for rows.Next() {
		var route SavedRoute
		err := rows.Scan(
			&route.ID,
			&route.UserID,
			&route.Name,
			&route.Origin.Label,
			&route.Origin.Lat,
			&route.Origin.Lon,
			&route.Destination.Label,
			&route.Destination.Lat,
			&route.Destination.Lon,
			&route.TravelMode,
			&route.Favorite,
			&route.CreatedAt,
			&route.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		routes = append(routes, &route)
	}

	return routes, rows.Err()
}

// Create creates a new route and its options in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, route *SavedRoute) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	routeQuery := `
		INSERT INTO routes (
			id, user_id, name,
			origin_label, origin_lat, origin_lon,
			destination_label, destination_lat, destination_lon,
			travel_mode, favorite, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = tx.Exec(ctx, routeQuery,
		route.ID,
		route.UserID,
		route.Name,
		route.Origin.Label,
		route.Origin.Lat,
		route.Origin.Lon,
		route.Destination.Label,
		route.Destination.Lat,
		route.Destination.Lon,
		route.TravelMode,
		route.Favorite,
		route.CreatedAt,
		route.UpdatedAt,
	)
	if err != nil {
		return err
	}

	optionQuery := `
		INSERT INTO route_options (
			id, route_id, option_index, distance, duration, geometry,
			traffic_value, last_computed_score, last_computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, option := range route.Options {
		_, err = tx.Exec(ctx, optionQuery,
			option.ID,
			option.RouteID,
			option.OptionIndex,
			option.Distance,
			option.Duration,
			option.Geometry,
			option.TrafficValue,
			option.LastComputedScore,
			option.LastComputedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete deletes a route and its options by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	// route_options and break_points cascade on delete
	query := `DELETE FROM routes WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// SetFavorite sets the favorite flag on a route.
func (r *PostgresRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	query := `UPDATE routes SET favorite = $2, updated_at = $3 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, favorite, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// UpdateOptionScore records a freshly computed score for one option.
func (r *PostgresRepository) UpdateOptionScore(ctx context.Context, routeID string, optionIndex int, score float64, at time.Time) error {
	query := `
		UPDATE route_options
		SET last_computed_score = $3, last_computed_at = $4
		WHERE route_id = $1 AND option_index = $2
	`

	result, err := r.pool.Exec(ctx, query, routeID, optionIndex, score, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrOptionNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

// PostgresBreakpointRepository is a PostgreSQL implementation of
// BreakpointRepository.
type PostgresBreakpointRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBreakpointRepository creates a new PostgreSQL breakpoint
// repository.
func NewPostgresBreakpointRepository(pool *pgxpool.Pool) *PostgresBreakpointRepository {
	return &PostgresBreakpointRepository{pool: pool}
}

// CreateBatch persists a set of breakpoints in one transaction.
func (r *PostgresBreakpointRepository) CreateBatch(ctx context.Context, points []BreakPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO break_points (id, route_id, option_index, point_index, lat, lon)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, p := range points {
		if _, err := tx.Exec(ctx, query, p.ID, p.RouteID, p.OptionIndex, p.PointIndex, p.Lat, p.Lon); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListByOption retrieves the breakpoints of one route option in point
// order.
func (r *PostgresBreakpointRepository) ListByOption(ctx context.Context, routeID string, optionIndex int) ([]BreakPoint, error) {
	query := `
		SELECT id, route_id, option_index, point_index, lat, lon
		FROM break_points
		WHERE route_id = $1 AND option_index = $2
		ORDER BY point_index
	`

	rows, err := r.pool.Query(ctx, query, routeID, optionIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []BreakPoint
	for rows.Next() {
		var p BreakPoint
		if err := rows.Scan(&p.ID, &p.RouteID, &p.OptionIndex, &p.PointIndex, &p.Lat, &p.Lon); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

// DeleteByRoute removes all breakpoints of a route.
func (r *PostgresBreakpointRepository) DeleteByRoute(ctx context.Context, routeID string) error {
	query := `DELETE FROM break_points WHERE route_id = $1`
	_, err := r.pool.Exec(ctx, query, routeID)
	return err
}

// Ensure PostgresBreakpointRepository implements BreakpointRepository.
var _ BreakpointRepository = (*PostgresBreakpointRepository)(nil)
