package models

// ComputeRouteInput is one candidate route in a score-compute request.
// Geometry may arrive as raw [lon, lat] pairs or as an encoded polyline;
// when both are present the raw geometry wins.
type ComputeRouteInput struct {
	Distance        *float64    `json:"distance"`
	Duration        *float64    `json:"duration"`
	TravelMode      string      `json:"travelMode,omitempty"`
	RouteGeometry   [][]float64 `json:"routeGeometry,omitempty"`
	EncodedPolyline *string     `json:"encodedPolyline,omitempty"`
}

// ComputeScoresRequest is the request body for score computation.
type ComputeScoresRequest struct {
	Routes  []ComputeRouteInput `json:"routes"`
	Traffic []float64           `json:"traffic,omitempty"`
}

// RouteEndpoint is one end of a saved route.
type RouteEndpoint struct {
	Label *string `json:"label,omitempty"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// SaveRouteOptionInput is one candidate geometry in a save-route request.
type SaveRouteOptionInput struct {
	Distance      float64     `json:"distance"`
	Duration      float64     `json:"duration"`
	RouteGeometry [][]float64 `json:"routeGeometry"`
	TrafficValue  float64     `json:"trafficValue,omitempty"`
}

// SaveRouteRequest is the request body for saving a route.
type SaveRouteRequest struct {
	Name        string                 `json:"name"`
	Origin      RouteEndpoint          `json:"origin"`
	Destination RouteEndpoint          `json:"destination"`
	TravelMode  string                 `json:"travelMode"`
	SearchID    *string                `json:"searchId,omitempty"`
	Options     []SaveRouteOptionInput `json:"options"`
}

// SavedRouteOption is one candidate geometry of a saved route.
type SavedRouteOption struct {
	OptionIndex       int        `json:"optionIndex"`
	Distance          float64    `json:"distance"`
	Duration          float64    `json:"duration"`
	TrafficValue      float64    `json:"trafficValue"`
	BreakpointCount   int        `json:"breakpointCount"`
	LastComputedScore *float64   `json:"lastComputedScore,omitempty"`
	LastComputedAt    *Timestamp `json:"lastComputedAt,omitempty"`
}

// SavedRoute is the API representation of a saved route.
type SavedRoute struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Origin      RouteEndpoint      `json:"origin"`
	Destination RouteEndpoint      `json:"destination"`
	TravelMode  string             `json:"travelMode"`
	Favorite    bool               `json:"favorite"`
	Options     []SavedRouteOption `json:"options"`
	CreatedAt   Timestamp          `json:"createdAt"`
	UpdatedAt   Timestamp          `json:"updatedAt"`
}

// PagedRoutes is a paginated list of saved routes.
type PagedRoutes struct {
	Items []SavedRoute      `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// FavoriteRequest is the request body for toggling the favorite flag.
type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}
