package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carpenike/repcoach/internal/llm"
	"github.com/carpenike/repcoach/internal/models"
	"github.com/carpenike/repcoach/internal/notify"
)

// ListSettings handles GET /admin/settings.
func (a *API) ListSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": models.ListSettingsByCategoryOrdered(a.DB),
	})
}

// UpdateSetting handles PUT /admin/settings/{key} with body {"value": "..."}.
// An empty value clears the stored row so the default applies again.
func (a *API) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	def, ok := a.editableSetting(w, r)
	if !ok {
		return
	}

	var body struct {
		Value *string `json:"value"`
	}
	if err := decodeJSON(w, r, &body); err != nil || body.Value == nil {
		writeError(w, http.StatusBadRequest, "bad_json", `body must be {"value": "..."}`)
		return
	}
	value := strings.TrimSpace(*body.Value)

	// The masked placeholder comes back when a client echoes what it read.
	if def.Sensitive && isMaskedPlaceholder(value) {
		writeJSON(w, http.StatusOK, models.GetSettingValue(a.DB, def.Key))
		return
	}

	if value == "" {
		if err := models.DeleteSetting(a.DB, def.Key); err != nil {
			a.Log.Error("delete setting", "key", def.Key, "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "failed to clear "+def.Label)
			return
		}
		writeJSON(w, http.StatusOK, models.GetSettingValue(a.DB, def.Key))
		return
	}

	if err := models.ValidateSetting(def.Key, value); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_value", err.Error())
		return
	}
	if err := models.SetSetting(a.DB, def.Key, value); err != nil {
		a.Log.Error("set setting", "key", def.Key, "error", err)
		msg := "failed to save " + def.Label
		if def.Sensitive {
			msg += ": is REPCOACH_SECRET_KEY set?"
		}
		writeError(w, http.StatusInternalServerError, "internal", msg)
		return
	}
	a.Log.Info("setting updated", "key", def.Key)
	writeJSON(w, http.StatusOK, models.GetSettingValue(a.DB, def.Key))
}

// DeleteSetting handles DELETE /admin/settings/{key}.
func (a *API) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	def, ok := a.editableSetting(w, r)
	if !ok {
		return
	}
	if err := models.DeleteSetting(a.DB, def.Key); err != nil {
		a.Log.Error("delete setting", "key", def.Key, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to clear "+def.Label)
		return
	}
	writeJSON(w, http.StatusOK, models.GetSettingValue(a.DB, def.Key))
}

// editableSetting resolves the {key} URL parameter and rejects unknown keys
// and keys pinned by an environment variable.
func (a *API) editableSetting(w http.ResponseWriter, r *http.Request) (*models.SettingDefinition, bool) {
	key := chi.URLParam(r, "key")
	def := models.GetSettingDefinition(key)
	if def == nil {
		writeError(w, http.StatusNotFound, "unknown_setting", "unknown setting "+key)
		return nil, false
	}
	if models.GetSettingValue(a.DB, key).ReadOnly {
		writeError(w, http.StatusConflict, "read_only", key+" is set by "+def.EnvVar)
		return nil, false
	}
	return def, true
}

// isMaskedPlaceholder reports whether v is a masked display value.
func isMaskedPlaceholder(v string) bool {
	return strings.ContainsRune(v, '•')
}

// PingModel handles POST /admin/llm/ping by checking the configured
// provider's connectivity and credentials.
func (a *API) PingModel(w http.ResponseWriter, r *http.Request) {
	provider, err := a.provider(r.Context())
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"ok":    false,
			"error": "not configured: set a model provider, model and API key first",
		})
		return
	}
	defer a.releaseProvider(provider)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		a.Log.Warn("model ping failed", "provider", provider.Name(), "error", err)
		msg := err.Error()
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			msg = apiErr.UserMessage()
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"ok":       false,
			"provider": provider.Name(),
			"error":    msg,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "provider": provider.Name()})
}

// TestNotify handles POST /admin/notify/test.
func (a *API) TestNotify(w http.ResponseWriter, r *http.Request) {
	if a.Notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "notifications are disabled")
		return
	}
	err := a.Notifier.TestConnection()
	switch {
	case errors.Is(err, notify.ErrNoChannels):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "error": "no notification URLs configured"})
	case err != nil:
		a.Log.Warn("notification test failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
