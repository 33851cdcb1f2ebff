package auth

import (
	"log"
	"time"

	"github.com/forestlens/mspo-maps/internal/db"
)

// SessionTTL is how long a login stays valid.
var SessionTTL = 6 * time.Hour

func Init() {
	if err := db.EnsureSchema(db.DB, "app_auth"); err != nil {
		log.Fatal("Failed to ensure schema app_auth: ", err)
	}

	if err := db.DB.AutoMigrate(&User{}, &Session{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
