package seeds

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"

	"github.com/forestlens/mspo-maps/internal/auth"
	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/forestlayers"
	"github.com/forestlens/mspo-maps/internal/polygons"
	"github.com/forestlens/mspo-maps/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

//go:embed data/demo_polygons.geojson
var demoPolygons []byte

// SeedAll creates the demo account and fills it with sample data. Each step
// is skipped when its rows already exist.
func SeedAll(ctx context.Context, username, password string) error {
	userID, err := SeedUser(username, password)
	if err != nil {
		return err
	}
	if err := SeedPolygons(ctx, userID); err != nil {
		return err
	}
	return SeedForestLayers(ctx, userID)
}

func SeedUser(username, password string) (string, error) {
	var existing auth.User
	err := db.DB.First(&existing, "username = ?", username).Error
	if err == nil {
		log.Printf("⚠️ User exists, skipping: %s", username)
		return existing.UserID, nil
	} else if err != gorm.ErrRecordNotFound {
		return "", fmt.Errorf("DB error on user %s: %w", username, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user := auth.User{
		UserID:         utils.GenerateUUID(),
		Username:       username,
		HashedPassword: string(hashed),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return "", fmt.Errorf("failed to create user %s: %w", username, err)
	}
	log.Printf("✅ Seeded user: %s", username)
	return user.UserID, nil
}

func SeedPolygons(ctx context.Context, userID string) error {
	features, err := demoFeatures()
	if err != nil {
		return err
	}

	store := polygons.NewGormStore(db.DB)
	res, err := polygons.ImportFeatures(ctx, store, userID, features)
	if err != nil {
		return fmt.Errorf("failed to seed polygons: %w", err)
	}
	for _, msg := range res.Errors {
		log.Printf("⚠️ Polygon skipped: %s", msg)
	}
	log.Printf("✅ Seeded %d polygon(s)", res.Imported)
	return nil
}

func demoFeatures() ([]json.RawMessage, error) {
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(demoPolygons, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse demo polygons: %w", err)
	}
	return fc.Features, nil
}

// SeedForestLayers adds one layer per type, outlining the extent of the
// demo polygons.
func SeedForestLayers(ctx context.Context, userID string) error {
	store := forestlayers.NewGormStore(db.DB)
	existing, err := store.List(ctx, userID, forestlayers.Filter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Printf("⚠️ Forest layers exist for %s, skipping", userID)
		return nil
	}

	for _, l := range demoLayers(userID) {
		if err := store.Create(ctx, &l); err != nil {
			return fmt.Errorf("failed to seed layer %s: %w", l.Name, err)
		}
	}
	log.Printf("✅ Seeded forest layers for %s", userID)
	return nil
}

var demoLayerColors = map[string]string{
	"deforestation":    "#ef4444",
	"regrowth":         "#22c55e",
	"primary_forest":   "#166534",
	"disturbed_forest": "#f59e0b",
}

func demoLayers(userID string) []forestlayers.ForestLayer {
	geom := json.RawMessage(`{"type":"Polygon","coordinates":[[[102.41,3.44],[102.43,3.44],[102.43,3.46],[102.41,3.46],[102.41,3.44]]]}`)
	types := []string{"deforestation", "regrowth", "primary_forest", "disturbed_forest"}

	out := make([]forestlayers.ForestLayer, 0, len(types))
	for _, t := range types {
		out = append(out, forestlayers.ForestLayer{
			ID:       utils.GenerateUUID(),
			UserID:   userID,
			Name:     "Temerloh " + forestlayers.Types[t],
			Type:     t,
			Color:    demoLayerColors[t],
			Geometry: []byte(geom),
			Visible:  t != "primary_forest",
			Opacity:  forestlayers.DefaultOpacity,
		})
	}
	return out
}
