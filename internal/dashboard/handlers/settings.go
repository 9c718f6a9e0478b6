package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mrmushfiq/llm0-observability/internal/shared/models"
)

// SettingsStore is the persistence surface the settings endpoints need.
type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
	UpdateSettings(ctx context.Context, patch models.SettingsPatch, updatedBy int64) (*models.SystemSettings, error)
}

type SettingsHandler struct {
	store SettingsStore
}

func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// HandleGet handles GET /settings. Readable by any authenticated role; the
// defaults are created lazily on first read.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.GetSettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// HandleUpdate handles PUT /settings (admin only, enforced by the router).
// Only the fields present in the body are changed; the update is a single
// atomic statement.
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	u := UserFromContext(r.Context())
	if u == nil {
		respondError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	var patch models.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.MaxTokensPerRequest != nil && *patch.MaxTokensPerRequest <= 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf(
			"max_tokens_per_request: must be positive, got %d", *patch.MaxTokensPerRequest))
		return
	}

	s, err := h.store.UpdateSettings(r.Context(), patch, u.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	respondJSON(w, http.StatusOK, s)
}
