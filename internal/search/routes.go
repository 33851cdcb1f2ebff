package search

import (
	"net/http"

	"github.com/forestlens/mspo-maps/internal/auth"
	"github.com/forestlens/mspo-maps/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(c *Client) http.Handler {
	r := chi.NewRouter()
	sessionFetcher := auth.SessionInfo{}

	r.Use(middleware.SessionMiddleware(sessionFetcher))
	r.Mount("/", NewHandler(c).Routes())

	return r
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/location", h.Location)
	return r
}
