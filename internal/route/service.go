package route

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/api/models"
	"github.com/breathclean/breathclean/internal/breakpoint"
)

// Service errors.
var (
	ErrNotAuthorized = errors.New("not authorized to access this route")
)

// Validation constants.
const (
	MaxNameLength = 80
	MaxOptions    = breakpoint.MaxRoutes
)

// BreakpointSource resolves a search identifier from a score-compute
// response to its cached breakpoints.
type BreakpointSource interface {
	LookupBreakpoints(ctx context.Context, searchID string) ([]breakpoint.RouteBreakpoints, error)
}

// Service provides saved-route operations.
type Service struct {
	repo      Repository
	bpRepo    BreakpointRepository
	bpSource  BreakpointSource
	extractor *breakpoint.Extractor
	logger    zerolog.Logger
}

// NewService creates a new route service.
func NewService(repo Repository, bpRepo BreakpointRepository, bpSource BreakpointSource, extractor *breakpoint.Extractor, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		bpRepo:    bpRepo,
		bpSource:  bpSource,
		extractor: extractor,
		logger:    logger.With().Str("component", "route").Logger(),
	}
}

// Save persists a route with its options and breakpoints. Breakpoints
// come from the score-compute cache when the request carries a still
// valid search identifier; otherwise they are recomputed from the
// submitted geometries, which yields the identical result.
func (s *Service) Save(ctx context.Context, userID string, input *models.SaveRouteRequest) (*models.SavedRoute, error) {
	if fieldErrors := s.validateSaveInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	points, err := s.resolveBreakpoints(ctx, input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	routeID := "rte_" + uuid.New().String()[:22]

	saved := &SavedRoute{
		ID:     routeID,
		UserID: userID,
		Name:   input.Name,
		Origin: Endpoint{
			Label: input.Origin.Label,
			Lat:   input.Origin.Lat,
			Lon:   input.Origin.Lon,
		},
		Destination: Endpoint{
			Label: input.Destination.Label,
			Lat:   input.Destination.Lat,
			Lon:   input.Destination.Lon,
		},
		TravelMode: breakpoint.TravelMode(input.TravelMode),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for i, option := range input.Options {
		saved.Options = append(saved.Options, RouteOption{
			ID:           "opt_" + uuid.New().String()[:22],
			RouteID:      routeID,
			OptionIndex:  i,
			Distance:     option.Distance,
			Duration:     option.Duration,
			Geometry:     option.RouteGeometry,
			TrafficValue: option.TrafficValue,
		})
	}

	if err := s.repo.Create(ctx, saved); err != nil {
		return nil, err
	}

	var records []BreakPoint
	for _, rb := range points {
		for pointIndex, coord := range rb.Ordered() {
			records = append(records, BreakPoint{
				ID:          "bpt_" + uuid.New().String()[:22],
				RouteID:     routeID,
				OptionIndex: rb.RouteIndex,
				PointIndex:  pointIndex,
				Lat:         coord.Lat,
				Lon:         coord.Lon,
			})
		}
	}
	if err := s.bpRepo.CreateBatch(ctx, records); err != nil {
		return nil, err
	}

	result := s.toAPIRoute(saved, points)
	return &result, nil
}

// resolveBreakpoints looks up cached breakpoints by search identifier,
// falling back to a deterministic recompute from the submitted
// geometries when the identifier is absent, expired or inconsistent
// with the request.
func (s *Service) resolveBreakpoints(ctx context.Context, input *models.SaveRouteRequest) ([]breakpoint.RouteBreakpoints, error) {
	if input.SearchID != nil && *input.SearchID != "" {
		points, err := s.bpSource.LookupBreakpoints(ctx, *input.SearchID)
		if err == nil && len(points) == len(input.Options) {
			return points, nil
		}
		s.logger.Debug().Str("searchId", *input.SearchID).Msg("breakpoint cache miss, recomputing")
	}

	routes := make([]breakpoint.RouteInput, 0, len(input.Options))
	for _, option := range input.Options {
		routes = append(routes, breakpoint.RouteInput{
			Distance:   option.Distance,
			Duration:   option.Duration,
			TravelMode: breakpoint.TravelMode(input.TravelMode),
			Geometry:   option.RouteGeometry,
		})
	}
	return s.extractor.Extract(routes)
}

// List retrieves all routes for a user.
func (s *Service) List(ctx context.Context, userID string, limit int) (*models.PagedRoutes, error) {
	result, err := s.repo.List(ctx, userID, ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}

	items := make([]models.SavedRoute, 0, len(result.Items))
	for _, route := range result.Items {
		items = append(items, s.toAPIRoute(route, nil))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedRoutes{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Get retrieves a route by ID for a user.
func (s *Service) Get(ctx context.Context, userID, routeID string) (*models.SavedRoute, error) {
	route, err := s.repo.GetByUserAndID(ctx, userID, routeID)
	if err != nil {
		return nil, err
	}

	result := s.toAPIRoute(route, nil)
	return &result, nil
}

// Delete deletes a route and its breakpoints for a user.
func (s *Service) Delete(ctx context.Context, userID, routeID string) error {
	// Verify ownership
	if _, err := s.repo.GetByUserAndID(ctx, userID, routeID); err != nil {
		return err
	}

	if err := s.bpRepo.DeleteByRoute(ctx, routeID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, routeID)
}

// SetFavorite toggles the favorite flag on a route for a user.
func (s *Service) SetFavorite(ctx context.Context, userID, routeID string, favorite bool) (*models.SavedRoute, error) {
	if _, err := s.repo.GetByUserAndID(ctx, userID, routeID); err != nil {
		return nil, err
	}

	if err := s.repo.SetFavorite(ctx, routeID, favorite); err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, routeID)
}

// validateSaveInput validates the save route input.
func (s *Service) validateSaveInput(input *models.SaveRouteRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	} else if len(input.Name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 80 characters"})
	}

	if !breakpoint.TravelMode(input.TravelMode).Valid() {
		errs = append(errs, models.FieldError{Field: "travelMode", Message: "must be one of walking, cycling, driving"})
	}

	errs = append(errs, s.validateEndpoint(&input.Origin, "origin")...)
	errs = append(errs, s.validateEndpoint(&input.Destination, "destination")...)

	if len(input.Options) == 0 {
		errs = append(errs, models.FieldError{Field: "options", Message: "is required"})
	} else if len(input.Options) > MaxOptions {
		errs = append(errs, models.FieldError{Field: "options", Message: "must contain at most 3 options"})
	} else {
		for i, option := range input.Options {
			if len(option.RouteGeometry) < 2 {
				errs = append(errs, models.FieldError{
					Field:   fmt.Sprintf("options[%d].routeGeometry", i),
					Message: "must contain at least 2 coordinates",
				})
			}
		}
	}

	return errs
}

// validateEndpoint validates a route endpoint.
func (s *Service) validateEndpoint(endpoint *models.RouteEndpoint, prefix string) []models.FieldError {
	var errs []models.FieldError

	if endpoint.Lat < -90 || endpoint.Lat > 90 {
		errs = append(errs, models.FieldError{
			Field:   prefix + ".lat",
			Message: "must be between -90 and 90",
		})
	}
	if endpoint.Lon < -180 || endpoint.Lon > 180 {
		errs = append(errs, models.FieldError{
			Field:   prefix + ".lon",
			Message: "must be between -180 and 180",
		})
	}

	return errs
}

// toAPIRoute converts a domain SavedRoute to an API SavedRoute. When
// freshly extracted breakpoints are available their counts are
// reported; otherwise counts come from what the repository holds.
func (s *Service) toAPIRoute(route *SavedRoute, points []breakpoint.RouteBreakpoints) models.SavedRoute {
	api := models.SavedRoute{
		ID:   route.ID,
		Name: route.Name,
		Origin: models.RouteEndpoint{
			Label: route.Origin.Label,
			Lat:   route.Origin.Lat,
			Lon:   route.Origin.Lon,
		},
		Destination: models.RouteEndpoint{
			Label: route.Destination.Label,
			Lat:   route.Destination.Lat,
			Lon:   route.Destination.Lon,
		},
		TravelMode: string(route.TravelMode),
		Favorite:   route.Favorite,
		CreatedAt:  models.Timestamp(route.CreatedAt),
		UpdatedAt:  models.Timestamp(route.UpdatedAt),
	}

	counts := make(map[int]int)
	for _, rb := range points {
		counts[rb.RouteIndex] = rb.Count()
	}

	for _, option := range route.Options {
		apiOption := models.SavedRouteOption{
			OptionIndex:       option.OptionIndex,
			Distance:          option.Distance,
			Duration:          option.Duration,
			TrafficValue:      option.TrafficValue,
			BreakpointCount:   counts[option.OptionIndex],
			LastComputedScore: option.LastComputedScore,
		}
		if option.LastComputedAt != nil {
			at := models.Timestamp(*option.LastComputedAt)
			apiOption.LastComputedAt = &at
		}
		api.Options = append(api.Options, apiOption)
	}

	return api
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
