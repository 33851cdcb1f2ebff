package mapsession

import (
	"time"

	"github.com/forestlens/mspo-maps/internal/auth"
	"gorm.io/datatypes"
)

// UserSession holds the last saved map view of a user: center, zoom,
// active layers and whatever else the client keeps.
type UserSession struct {
	ID           uint           `gorm:"primaryKey" json:"-"`
	UserID       string         `gorm:"not null;uniqueIndex" json:"user_id"`
	MapState     datatypes.JSON `gorm:"type:jsonb;not null" json:"map_state"`
	LastActivity time.Time      `gorm:"not null" json:"last_activity"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	User *auth.User `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserSession) TableName() string { return "mspo.user_sessions" }
