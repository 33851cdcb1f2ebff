package mapsession

import (
	"context"
	"encoding/json"
	"time"

	"github.com/forestlens/mspo-maps/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store interface {
	// Save replaces the user's map state.
	Save(ctx context.Context, userID string, state json.RawMessage, at time.Time) error
	// Load returns nil when nothing was saved yet.
	Load(ctx context.Context, userID string) (json.RawMessage, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) *GormStore {
	return &GormStore{db: d}
}

func (s *GormStore) Save(ctx context.Context, userID string, state json.RawMessage, at time.Time) error {
	row := UserSession{UserID: userID, MapState: datatypes.JSON(state), LastActivity: at}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"map_state", "last_activity", "updated_at"}),
	}).Create(&row).Error
}

func (s *GormStore) Load(ctx context.Context, userID string) (json.RawMessage, error) {
	var row UserSession
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(row.MapState), nil
}
