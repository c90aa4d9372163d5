package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/api/models"
	"github.com/breathclean/breathclean/internal/api/response"
	"github.com/breathclean/breathclean/internal/breakpoint"
	"github.com/breathclean/breathclean/internal/scoring"
	"github.com/breathclean/breathclean/pkg/polyline"
)

// ScoreComputer runs the score-compute pipeline.
type ScoreComputer interface {
	Compute(ctx context.Context, input scoring.ComputeInput) (*scoring.ComputeResponse, error)
}

// ScoreHandler handles score-compute endpoints.
type ScoreHandler struct {
	scores ScoreComputer
	logger zerolog.Logger
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scores ScoreComputer, logger zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{scores: scores, logger: logger}
}

// ComputeScores handles POST /v1/scores:compute - score a set of routes.
func (h *ScoreHandler) ComputeScores(w http.ResponseWriter, r *http.Request) {
	var input models.ComputeScoresRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	routes, fieldErrors := buildComputeRoutes(&input)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid score-compute request", fieldErrors)
		return
	}

	result, err := h.scores.Compute(r.Context(), scoring.ComputeInput{
		Routes:  routes,
		Traffic: input.Traffic,
	})
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrNoRoutes),
			errors.Is(err, scoring.ErrTooManyRoutes),
			errors.Is(err, breakpoint.ErrGeometryTooShort):
			response.BadRequest(w, r, err.Error(), nil)
		default:
			h.logger.Error().Err(err).Msg("score computation failed")
			response.InternalError(w, r, "failed to compute route scores")
		}
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// buildComputeRoutes validates the request and converts it to pipeline
// inputs, decoding encoded polylines where no raw geometry was sent.
func buildComputeRoutes(input *models.ComputeScoresRequest) ([]breakpoint.RouteInput, []models.FieldError) {
	var errs []models.FieldError

	if len(input.Routes) == 0 {
		return nil, []models.FieldError{{Field: "routes", Message: "is required"}}
	}
	if len(input.Routes) > breakpoint.MaxRoutes {
		return nil, []models.FieldError{{Field: "routes", Message: "must contain at most 3 routes"}}
	}

	routes := make([]breakpoint.RouteInput, 0, len(input.Routes))
	for i, route := range input.Routes {
		if route.Distance == nil {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("routes[%d].distance", i),
				Message: "is required",
			})
		}
		if route.Duration == nil {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("routes[%d].duration", i),
				Message: "is required",
			})
		}

		mode := breakpoint.TravelMode(route.TravelMode)
		if route.TravelMode == "" {
			mode = breakpoint.ModeDriving
		} else if !mode.Valid() {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("routes[%d].travelMode", i),
				Message: "must be one of walking, cycling, driving",
			})
		}

		geometry := route.RouteGeometry
		if len(geometry) == 0 && route.EncodedPolyline != nil {
			geometry = polyline.LonLatPairs(polyline.Decode(*route.EncodedPolyline))
		}
		if len(geometry) < 2 {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("routes[%d].routeGeometry", i),
				Message: "must contain at least 2 coordinates",
			})
		}

		if len(errs) > 0 {
			continue
		}
		routes = append(routes, breakpoint.RouteInput{
			Distance:   *route.Distance,
			Duration:   *route.Duration,
			TravelMode: mode,
			Geometry:   geometry,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	for i := range input.Traffic {
		if input.Traffic[i] < 0 || input.Traffic[i] > 3 {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("traffic[%d]", i),
				Message: "must be between 0 and 3",
			})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return routes, nil
}
