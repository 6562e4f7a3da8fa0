package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carpenike/repcoach/internal/models"
)

// ListRuns handles GET /runs?uid=...&limit=... and returns the user's
// generation runs, newest first.
func (a *API) ListRuns(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	if uid == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "uid query parameter is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := models.ListGenerationRuns(a.DB, uid, limit)
	if err != nil {
		a.Log.Error("list generation runs", "uid", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not list runs")
		return
	}
	if runs == nil {
		runs = []*models.GenerationRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// GetRun handles GET /runs/{id}.
func (a *API) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := models.GetGenerationRun(a.DB, chi.URLParam(r, "id"))
	if errors.Is(err, models.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "run not found")
		return
	}
	if err != nil {
		a.Log.Error("get generation run", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
