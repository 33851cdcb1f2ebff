package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forestlens/mspo-maps/internal/auth"
	"github.com/forestlens/mspo-maps/internal/config"
	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/forestlayers"
	"github.com/forestlens/mspo-maps/internal/mapsession"
	"github.com/forestlens/mspo-maps/internal/metrics"
	"github.com/forestlens/mspo-maps/internal/middleware"
	"github.com/forestlens/mspo-maps/internal/polygons"
	"github.com/forestlens/mspo-maps/internal/search"
	"github.com/forestlens/mspo-maps/internal/utils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	db.Connect(cfg.DatabaseURL)
	auth.SessionTTL = cfg.SessionTTL

	auth.Init()
	polygons.Init()
	forestlayers.Init()
	mapsession.Init()

	rc := utils.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rc != nil {
		defer rc.Close()
	}
	searchClient := search.NewClient(cfg.NominatimURL,
		search.WithRate(cfg.SearchRate),
		search.WithCache(rc, cfg.SearchCacheTTL),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Get("/", RootHandler)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Mount("/auth", auth.SetupRoutes())
	r.Route("/api", func(r chi.Router) {
		r.With(middleware.SessionMiddleware(auth.SessionInfo{})).Get("/user", auth.MeHandler)
		r.Mount("/polygons", polygons.SetupRoutes())
		r.Mount("/forest-layers", forestlayers.SetupRoutes())
		r.Mount("/search", search.SetupRoutes(searchClient))
		r.Mount("/session", mapsession.SetupRoutes())
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("Server listening on port :%s...", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("shutting down on %s", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(fmt.Errorf("server error: %w", err))
		}
	}
}
