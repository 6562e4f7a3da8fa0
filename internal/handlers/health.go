package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/carpenike/repcoach/internal/models"
	"github.com/carpenike/repcoach/internal/scheduler"
)

type healthResponse struct {
	Status          string            `json:"status"`
	Version         string            `json:"version,omitempty"`
	ModelConfigured bool              `json:"modelConfigured"`
	Maintenance     *scheduler.Status `json:"maintenance,omitempty"`
}

// Health handles GET /health. It answers 503 when the database is unreachable.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.DB.PingContext(ctx); err != nil {
		a.Log.Error("health check: database ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Version: a.Version})
		return
	}

	resp := healthResponse{
		Status:          "ok",
		Version:         a.Version,
		ModelConfigured: models.IsModelConfigured(a.DB),
	}
	if a.Maintenance != nil {
		st := a.Maintenance.Status()
		resp.Maintenance = &st
	}
	writeJSON(w, http.StatusOK, resp)
}
