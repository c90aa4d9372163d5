// Package handler provides HTTP handlers for the BreathClean API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/breathclean/breathclean/internal/api/models"
	"github.com/breathclean/breathclean/internal/api/response"
)

// Pinger checks the liveness of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	subsystems map[string]Pinger
	providers  map[string]Pinger
}

// NewOpsHandler creates a new OpsHandler. Subsystem and provider checks
// are optional; a nil map disables the corresponding status section.
func NewOpsHandler(version, buildTime string, subsystems, providers map[string]Pinger) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		subsystems: subsystems,
		providers:  providers,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Reports degraded when any subsystem fails its ping.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}

	status := http.StatusOK
	for name, pinger := range h.subsystems {
		if err := pinger.Ping(ctx); err != nil {
			health.Status = models.HealthStatusDegraded
			if health.Details == nil {
				health.Details = map[string]interface{}{}
			}
			health.Details[name] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   now,
	}

	for name, pinger := range h.subsystems {
		entry := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := pinger.Ping(ctx); err != nil {
			detail := err.Error()
			entry.Status = models.HealthStatusDegraded
			entry.Detail = &detail
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, entry)
	}

	for name, pinger := range h.providers {
		entry := models.ProviderStatus{Provider: name, Status: models.HealthStatusOK}
		if err := pinger.Ping(ctx); err != nil {
			message := err.Error()
			entry.Status = models.HealthStatusDegraded
			entry.Message = &message
			entry.LastFailureAt = &now
			status.Status = models.HealthStatusDegraded
		} else {
			entry.LastSuccessAt = &now
		}
		status.Providers = append(status.Providers, entry)
	}

	response.JSON(w, r, http.StatusOK, status)
}
