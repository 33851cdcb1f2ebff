package search

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/forestlens/mspo-maps/internal/utils"
)

// Searcher is what the handler needs from Client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

type Handler struct {
	searcher Searcher
}

func NewHandler(s Searcher) *Handler {
	return &Handler{searcher: s}
}

func (h *Handler) Location(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := utils.Fields{}
	if q.Has("query") {
		raw, _ := json.Marshal(q.Get("query"))
		fields["query"] = raw
	}

	var req struct {
		Query string `json:"query" validate:"required,max=255"`
	}
	if errs := utils.Bind(fields, &req); len(errs) > 0 {
		utils.RespondValidation(w, r, "Validation failed", errs)
		return
	}

	results, err := h.searcher.Search(r.Context(), req.Query)
	if err != nil {
		utils.RespondError(w, r, http.StatusServiceUnavailable, "Search service unavailable")
		return
	}
	utils.RespondData(w, r, http.StatusOK, results)
}
