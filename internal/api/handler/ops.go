// Package handler provides HTTP handlers for the Scenify API.
package handler

import (
	"net/http"
	"time"

	"github.com/scenify/scenify/internal/api/response"
)

// Health is the body of the health endpoint.
type Health struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
	Uptime  string    `json:"uptime"`
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version string
	started time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version string) *OpsHandler {
	return &OpsHandler{version: version, started: time.Now()}
}

// HealthCheck handles GET /api/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	response.JSON(w, r, http.StatusOK, Health{
		Status:  "ok",
		Version: h.version,
		Time:    now.UTC(),
		Uptime:  now.Sub(h.started).Round(time.Second).String(),
	})
}
