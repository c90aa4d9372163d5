package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/breathclean/breathclean/internal/api/middleware"
	"github.com/breathclean/breathclean/internal/api/models"
	"github.com/breathclean/breathclean/internal/api/response"
	"github.com/breathclean/breathclean/internal/route"
)

const defaultListLimit = 50

// RouteHandler handles saved-route endpoints.
type RouteHandler struct {
	routes *route.Service
	logger zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes *route.Service, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{routes: routes, logger: logger}
}

// SaveRoute handles POST /v1/me/routes - persist a scored route.
func (h *RouteHandler) SaveRoute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input models.SaveRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	saved, err := h.routes.Save(r.Context(), userID, &input)
	if err != nil {
		var validationErr *route.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "invalid save-route request", validationErr.Errors)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to save route")
		response.InternalError(w, r, "failed to save route")
		return
	}

	location := fmt.Sprintf("/v1/me/routes/%s", saved.ID)
	response.Created(w, r, location, saved)
}

// ListRoutes handles GET /v1/me/routes - list saved routes.
func (h *RouteHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			response.BadRequest(w, r, "limit must be an integer between 1 and 200", nil)
			return
		}
		limit = parsed
	}

	result, err := h.routes.List(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list routes")
		response.InternalError(w, r, "failed to list routes")
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// GetRoute handles GET /v1/me/routes/{routeId} - get a saved route.
func (h *RouteHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	routeID := chi.URLParam(r, "routeId")

	saved, err := h.routes.Get(r.Context(), userID, routeID)
	if err != nil {
		h.writeRouteError(w, r, err, userID, routeID, "failed to get route")
		return
	}

	response.JSON(w, r, http.StatusOK, saved)
}

// DeleteRoute handles DELETE /v1/me/routes/{routeId} - delete a saved route.
func (h *RouteHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	routeID := chi.URLParam(r, "routeId")

	if err := h.routes.Delete(r.Context(), userID, routeID); err != nil {
		h.writeRouteError(w, r, err, userID, routeID, "failed to delete route")
		return
	}

	response.NoContent(w, r)
}

// SetFavorite handles PUT /v1/me/routes/{routeId}/favorite - toggle the favorite flag.
func (h *RouteHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	routeID := chi.URLParam(r, "routeId")

	var input models.FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	saved, err := h.routes.SetFavorite(r.Context(), userID, routeID, input.Favorite)
	if err != nil {
		h.writeRouteError(w, r, err, userID, routeID, "failed to update route")
		return
	}

	response.JSON(w, r, http.StatusOK, saved)
}

func (h *RouteHandler) writeRouteError(w http.ResponseWriter, r *http.Request, err error, userID, routeID, detail string) {
	if errors.Is(err, route.ErrRouteNotFound) {
		response.NotFound(w, r, "route not found")
		return
	}
	h.logger.Error().Err(err).Str("user_id", userID).Str("route_id", routeID).Msg(detail)
	response.InternalError(w, r, detail)
}
