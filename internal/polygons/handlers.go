package polygons

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/metrics"
	"github.com/forestlens/mspo-maps/internal/polygonstore"
	"github.com/forestlens/mspo-maps/internal/utils"
	"github.com/go-chi/chi/v5"
)

const objectIDTaken = "The object id has already been taken."

type Handler struct {
	store Store
}

func NewHandler(s Store) *Handler {
	return &Handler{store: s}
}

// List returns the caller's polygons, newest first. The bounds filter
// applies only when all four edges are given.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	q := r.URL.Query()

	var f ListFilter
	if q.Has("north") && q.Has("south") && q.Has("east") && q.Has("west") {
		b, errs := parseBounds(q.Get("north"), q.Get("south"), q.Get("east"), q.Get("west"))
		if len(errs) > 0 {
			utils.RespondValidation(w, r, "Validation failed", errs)
			return
		}
		f.Bounds = &b
	}
	for _, s := range q["state"] {
		if s != "" {
			f.States = append(f.States, s)
		}
	}

	polys, err := h.store.List(r.Context(), userID, f)
	if err != nil {
		log.Printf("[polygons] list for %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to load polygons")
		return
	}
	if polys == nil {
		polys = []Polygon{}
	}
	utils.RespondData(w, r, http.StatusOK, polys)
}

func parseBounds(north, south, east, west string) (polygonstore.Bounds, map[string][]string) {
	errs := make(map[string][]string)
	parse := func(name, v string) float64 {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs[name] = append(errs[name], "The "+name+" field must be a number.")
		}
		return f
	}
	b := polygonstore.Bounds{
		North: parse("north", north),
		South: parse("south", south),
		East:  parse("east", east),
		West:  parse("west", west),
	}
	return b, errs
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	fields, err := utils.DecodeFields(r.Body)
	if err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, errs := readCreate(fields)
	if _, bad := errs["object_id"]; !bad {
		taken, err := h.store.ObjectIDExists(r.Context(), p.ObjectID)
		if err != nil {
			log.Printf("[polygons] object id lookup: %v", err)
			utils.RespondError(w, r, http.StatusInternalServerError, "Failed to create polygon")
			return
		}
		if taken {
			errs["object_id"] = []string{objectIDTaken}
		}
	}
	if len(errs) > 0 {
		metrics.PolygonMutationsTotal.WithLabelValues("create", "invalid").Inc()
		utils.RespondValidation(w, r, "Validation failed", errs)
		return
	}

	p.ID = utils.GenerateUUID()
	p.UserID = userID
	if err := h.store.Create(r.Context(), p); err != nil {
		if db.IsUniqueViolation(err) {
			metrics.PolygonMutationsTotal.WithLabelValues("create", "invalid").Inc()
			utils.RespondValidation(w, r, "Validation failed", map[string][]string{"object_id": {objectIDTaken}})
			return
		}
		log.Printf("[polygons] create for %s: %v", userID, err)
		metrics.PolygonMutationsTotal.WithLabelValues("create", "error").Inc()
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to create polygon")
		return
	}

	metrics.PolygonMutationsTotal.WithLabelValues("create", "ok").Inc()
	utils.RespondMessage(w, r, http.StatusCreated, "Polygon created successfully", p)
}

// owned loads the polygon named in the URL. Polygons of other users are
// reported as missing.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (Polygon, bool) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	p, err := h.store.Find(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		utils.RespondNotFound(w, r, "Polygon")
		return Polygon{}, false
	case err != nil:
		log.Printf("[polygons] find %s: %v", chi.URLParam(r, "id"), err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to load polygon")
		return Polygon{}, false
	case p.UserID != userID:
		utils.RespondNotFound(w, r, "Polygon")
		return Polygon{}, false
	}
	return p, true
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r)
	if !ok {
		return
	}
	utils.RespondData(w, r, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r)
	if !ok {
		return
	}

	fields, err := utils.DecodeFields(r.Body)
	if err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	changes, errs := readUpdate(fields)
	if len(errs) > 0 {
		metrics.PolygonMutationsTotal.WithLabelValues("update", "invalid").Inc()
		utils.RespondValidation(w, r, "Validation failed", errs)
		return
	}

	if err := h.store.Update(r.Context(), &p, changes); err != nil {
		log.Printf("[polygons] update %s: %v", p.ID, err)
		metrics.PolygonMutationsTotal.WithLabelValues("update", "error").Inc()
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to update polygon")
		return
	}

	metrics.PolygonMutationsTotal.WithLabelValues("update", "ok").Inc()
	utils.RespondMessage(w, r, http.StatusOK, "Polygon updated successfully", p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), &p); err != nil {
		log.Printf("[polygons] delete %s: %v", p.ID, err)
		metrics.PolygonMutationsTotal.WithLabelValues("delete", "error").Inc()
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to delete polygon")
		return
	}

	metrics.PolygonMutationsTotal.WithLabelValues("delete", "ok").Inc()
	utils.RespondMessage(w, r, http.StatusOK, "Polygon deleted successfully", nil)
}
