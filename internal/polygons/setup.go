package polygons

import (
	"log"

	"github.com/forestlens/mspo-maps/internal/db"
)

func Init() {
	if err := db.EnsureSchema(db.DB, "mspo"); err != nil {
		log.Fatal("Failed to ensure schema mspo: ", err)
	}

	if err := db.DB.AutoMigrate(&Polygon{}); err != nil {
		log.Fatal("Failed to auto-migrate polygons", err)
	}
}
