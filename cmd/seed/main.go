package main

import (
	"context"
	"flag"
	"log"

	"github.com/forestlens/mspo-maps/internal/auth"
	"github.com/forestlens/mspo-maps/internal/config"
	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/forestlayers"
	"github.com/forestlens/mspo-maps/internal/polygons"
	"github.com/forestlens/mspo-maps/internal/seeds"
	"github.com/joho/godotenv"
)

func main() {
	username := flag.String("username", "demo", "demo account username")
	password := flag.String("password", "demo-password", "demo account password")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		log.Println("No .env.local file found, relying on environment variables")
	}

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid config: %v", err)
	}

	db.Connect(cfg.DatabaseURL)
	auth.Init()
	polygons.Init()
	forestlayers.Init()

	if err := seeds.SeedAll(context.Background(), *username, *password); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
}
