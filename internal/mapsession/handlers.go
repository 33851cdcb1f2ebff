package mapsession

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/forestlens/mspo-maps/internal/utils"
)

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(s Store) *Handler {
	return &Handler{store: s, now: time.Now}
}

// saveRequest takes any JSON object or array as the state.
type saveRequest struct {
	MapState json.RawMessage `json:"map_state" validate:"required,collection"`
}

func (h *Handler) SaveState(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	fields, err := utils.DecodeFields(r.Body)
	if err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	var req saveRequest
	if errs := utils.Bind(fields, &req); len(errs) > 0 {
		utils.RespondValidation(w, r, "Validation failed", errs)
		return
	}

	if err := h.store.Save(r.Context(), userID, req.MapState, h.now()); err != nil {
		log.Printf("[mapsession] save for %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to save map state")
		return
	}
	utils.RespondData(w, r, http.StatusOK, nil)
}

// GetState returns the saved map state, or null data when there is none.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	state, err := h.store.Load(r.Context(), userID)
	if err != nil {
		log.Printf("[mapsession] load for %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to load map state")
		return
	}
	if state == nil {
		utils.RespondNullData(w, r)
		return
	}
	utils.RespondData(w, r, http.StatusOK, state)
}
