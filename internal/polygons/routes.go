package polygons

import (
	"net/http"

	"github.com/forestlens/mspo-maps/internal/auth"
	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := auth.SessionInfo{}

	r.Use(middleware.SessionMiddleware(sessionFetcher))
	r.Mount("/", NewHandler(NewGormStore(db.DB)).Routes())

	return r
}

// Routes registers the polygon endpoints. The caller must put the user id
// on the request context.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export/geojson", h.Export)
	r.Post("/import/geojson", h.Import)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}
