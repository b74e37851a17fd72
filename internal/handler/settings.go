package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/tripkeep/internal/auth"
	"github.com/dukerupert/tripkeep/internal/model"
	"github.com/dukerupert/tripkeep/internal/store"
)

type SettingsHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewSettingsHandler(users *store.UserStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{users: users, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.users.GetSettings(auth.Username(r.Context()))
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	if settings == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.SettingsPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if patch.Currency != nil && *patch.Currency == "" {
		writeError(w, http.StatusBadRequest, "currency must not be empty")
		return
	}

	settings, err := h.users.ApplySettings(auth.Username(r.Context()), patch)
	if err != nil {
		h.logger.Error("update settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
