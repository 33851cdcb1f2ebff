package forestlayers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/forestlens/mspo-maps/internal/metrics"
	"github.com/forestlens/mspo-maps/internal/utils"
	"github.com/go-chi/chi/v5"
	"gorm.io/datatypes"
)

type createRequest struct {
	Name       string         `json:"name" validate:"required,max=255"`
	Type       string         `json:"type" validate:"required,oneof=deforestation regrowth primary_forest disturbed_forest"`
	Color      *string        `json:"color" validate:"omitempty,hexcolor,len=7"`
	Geometry   datatypes.JSON `json:"geometry" validate:"required,object"`
	Properties datatypes.JSON `json:"properties" validate:"omitnil,object"`
	AreaKm2    *float64       `json:"area_km2" validate:"omitnil,gte=0"`
	Visible    *bool          `json:"visible"`
	Opacity    *float64       `json:"opacity" validate:"omitempty,between=0:1"`
}

// updateRequest holds the presentation fields; type and geometry are fixed
// once a layer exists.
type updateRequest struct {
	Name    *string  `json:"name" validate:"omitempty,max=255"`
	Color   *string  `json:"color" validate:"omitempty,hexcolor,len=7"`
	Visible *bool    `json:"visible"`
	Opacity *float64 `json:"opacity" validate:"omitempty,between=0:1"`
}

type Handler struct {
	store Store
}

func NewHandler(s Store) *Handler {
	return &Handler{store: s}
}

// truthy follows the usual form/query boolean spellings.
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	q := r.URL.Query()

	f := Filter{Type: q.Get("type"), VisibleOnly: truthy(q.Get("visible_only"))}
	layers, err := h.store.List(r.Context(), userID, f)
	if err != nil {
		log.Printf("[forestlayers] list for %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to load forest layers")
		return
	}
	if layers == nil {
		layers = []ForestLayer{}
	}
	utils.RespondData(w, r, http.StatusOK, layers)
}

// ListTypes returns the known layer types and their labels.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	utils.RespondData(w, r, http.StatusOK, Types)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	fields, err := utils.DecodeFields(r.Body)
	if err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	var req createRequest
	if errs := utils.Bind(fields, &req); len(errs) > 0 {
		utils.RespondValidation(w, r, "Validation failed", errs)
		return
	}

	l := &ForestLayer{
		Name:       req.Name,
		Type:       req.Type,
		Color:      DefaultColor,
		Geometry:   req.Geometry,
		Properties: req.Properties,
		AreaKm2:    req.AreaKm2,
		Visible:    true,
		Opacity:    DefaultOpacity,
	}
	if req.Color != nil {
		l.Color = *req.Color
	}
	if req.Visible != nil {
		l.Visible = *req.Visible
	}
	if req.Opacity != nil {
		l.Opacity = *req.Opacity
	}

	l.ID = utils.GenerateUUID()
	l.UserID = userID
	if err := h.store.Create(r.Context(), l); err != nil {
		log.Printf("[forestlayers] create for %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to create forest layer")
		return
	}

	metrics.ForestLayerMutationsTotal.WithLabelValues("create").Inc()
	utils.RespondMessage(w, r, http.StatusCreated, "Forest layer created successfully", l)
}

func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (ForestLayer, bool) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	l, err := h.store.Find(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondNotFound(w, r, "Forest layer")
		return ForestLayer{}, false
	case err != nil:
		log.Printf("[forestlayers] find %s: %v", chi.URLParam(r, "id"), err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to load forest layer")
		return ForestLayer{}, false
	case l.UserID != userID:
		utils.RespondNotFound(w, r, "Forest layer")
		return ForestLayer{}, false
	}
	return l, true
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	l, ok := h.owned(w, r)
	if !ok {
		return
	}
	utils.RespondData(w, r, http.StatusOK, l)
}

// Update changes presentation only: name, color, visibility and opacity.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	l, ok := h.owned(w, r)
	if !ok {
		return
	}

	fields, err := utils.DecodeFields(r.Body)
	if err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	var req updateRequest
	if errs := utils.Bind(fields, &req); len(errs) > 0 {
		utils.RespondValidation(w, r, "Validation failed", errs)
		return
	}
	changes := utils.Changes(fields, &req)

	if err := h.store.Update(r.Context(), &l, changes); err != nil {
		log.Printf("[forestlayers] update %s: %v", l.ID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to update forest layer")
		return
	}

	metrics.ForestLayerMutationsTotal.WithLabelValues("update").Inc()
	utils.RespondMessage(w, r, http.StatusOK, "Forest layer updated successfully", l)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	l, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), &l); err != nil {
		log.Printf("[forestlayers] delete %s: %v", l.ID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to delete forest layer")
		return
	}

	metrics.ForestLayerMutationsTotal.WithLabelValues("delete").Inc()
	utils.RespondMessage(w, r, http.StatusOK, "Forest layer deleted successfully", nil)
}
