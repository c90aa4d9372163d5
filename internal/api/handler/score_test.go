package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathclean/breathclean/internal/api/handler"
	"github.com/breathclean/breathclean/internal/api/models"
	"github.com/breathclean/breathclean/internal/scoring"
	"github.com/breathclean/breathclean/pkg/polyline"
)

type stubScoreComputer struct {
	input scoring.ComputeInput
	resp  *scoring.ComputeResponse
	err   error
}

func (s *stubScoreComputer) Compute(_ context.Context, input scoring.ComputeInput) (*scoring.ComputeResponse, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func newScoreHandler(computer *stubScoreComputer) *handler.ScoreHandler {
	return handler.NewScoreHandler(computer, zerolog.New(io.Discard))
}

func postScores(t *testing.T, h *handler.ScoreHandler, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/scores:compute", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ComputeScores(rec, req)
	return rec
}

func fptr(v float64) *float64 { return &v }

func rawGeometry() [][]float64 {
	return [][]float64{
		{4.890000, 52.370000},
		{4.892000, 52.371000},
		{4.894000, 52.372000},
	}
}

func TestComputeScores_PassesRoutesThrough(t *testing.T) {
	computer := &stubScoreComputer{resp: &scoring.ComputeResponse{SearchID: "srch-1"}}
	h := newScoreHandler(computer)

	rec := postScores(t, h, models.ComputeScoresRequest{
		Routes: []models.ComputeRouteInput{
			{
				Distance:      fptr(4200),
				Duration:      fptr(1260),
				TravelMode:    "cycling",
				RouteGeometry: rawGeometry(),
			},
		},
		Traffic: []float64{1.5},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, computer.input.Routes, 1)
	assert.Equal(t, rawGeometry(), computer.input.Routes[0].Geometry)
	assert.Equal(t, []float64{1.5}, computer.input.Traffic)
}

func TestComputeScores_DefaultsTravelMode(t *testing.T) {
	computer := &stubScoreComputer{resp: &scoring.ComputeResponse{}}
	h := newScoreHandler(computer)

	rec := postScores(t, h, models.ComputeScoresRequest{
		Routes: []models.ComputeRouteInput{
			{Distance: fptr(4200), Duration: fptr(1260), RouteGeometry: rawGeometry()},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, computer.input.Routes, 1)
	assert.Equal(t, "driving", string(computer.input.Routes[0].TravelMode))
}

func TestComputeScores_DecodesPolylineFallback(t *testing.T) {
	coords := []polyline.Coordinate{
		{Lat: 52.370000, Lon: 4.890000},
		{Lat: 52.371000, Lon: 4.892000},
		{Lat: 52.372000, Lon: 4.894000},
	}
	encoded := polyline.Encode(coords)

	computer := &stubScoreComputer{resp: &scoring.ComputeResponse{}}
	h := newScoreHandler(computer)

	rec := postScores(t, h, models.ComputeScoresRequest{
		Routes: []models.ComputeRouteInput{
			{
				Distance:        fptr(4200),
				Duration:        fptr(1260),
				TravelMode:      "walking",
				EncodedPolyline: &encoded,
			},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, computer.input.Routes, 1)

	geometry := computer.input.Routes[0].Geometry
	require.Len(t, geometry, 3)
	// Geometry pairs are [lon, lat]
	assert.InDelta(t, 4.890000, geometry[0][0], 1e-5)
	assert.InDelta(t, 52.370000, geometry[0][1], 1e-5)
}

func TestComputeScores_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  models.ComputeScoresRequest
		field string
	}{
		{
			name:  "no routes",
			body:  models.ComputeScoresRequest{},
			field: "routes",
		},
		{
			name: "missing distance",
			body: models.ComputeScoresRequest{
				Routes: []models.ComputeRouteInput{
					{Duration: fptr(1260), RouteGeometry: rawGeometry()},
				},
			},
			field: "routes[0].distance",
		},
		{
			name: "unknown travel mode",
			body: models.ComputeScoresRequest{
				Routes: []models.ComputeRouteInput{
					{Distance: fptr(4200), Duration: fptr(1260), TravelMode: "teleport", RouteGeometry: rawGeometry()},
				},
			},
			field: "routes[0].travelMode",
		},
		{
			name: "geometry too short",
			body: models.ComputeScoresRequest{
				Routes: []models.ComputeRouteInput{
					{Distance: fptr(4200), Duration: fptr(1260), RouteGeometry: [][]float64{{4.89, 52.37}}},
				},
			},
			field: "routes[0].routeGeometry",
		},
		{
			name: "traffic out of range",
			body: models.ComputeScoresRequest{
				Routes: []models.ComputeRouteInput{
					{Distance: fptr(4200), Duration: fptr(1260), RouteGeometry: rawGeometry()},
				},
				Traffic: []float64{5},
			},
			field: "traffic[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			computer := &stubScoreComputer{resp: &scoring.ComputeResponse{}}
			h := newScoreHandler(computer)

			rec := postScores(t, h, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var problem models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}

func TestComputeScores_TooManyRoutes(t *testing.T) {
	computer := &stubScoreComputer{resp: &scoring.ComputeResponse{}}
	h := newScoreHandler(computer)

	route := models.ComputeRouteInput{Distance: fptr(4200), Duration: fptr(1260), RouteGeometry: rawGeometry()}
	rec := postScores(t, h, models.ComputeScoresRequest{
		Routes: []models.ComputeRouteInput{route, route, route, route},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComputeScores_ComputeFailure(t *testing.T) {
	computer := &stubScoreComputer{err: context.DeadlineExceeded}
	h := newScoreHandler(computer)

	rec := postScores(t, h, models.ComputeScoresRequest{
		Routes: []models.ComputeRouteInput{
			{Distance: fptr(4200), Duration: fptr(1260), RouteGeometry: rawGeometry()},
		},
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
