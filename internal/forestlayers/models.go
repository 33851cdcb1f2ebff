package forestlayers

import (
	"time"

	"github.com/forestlens/mspo-maps/internal/auth"
	"gorm.io/datatypes"
)

const (
	DefaultColor   = "#3b82f6"
	DefaultOpacity = 0.70
)

// Types maps each layer type to its display label.
var Types = map[string]string{
	"deforestation":    "Deforestation Areas",
	"regrowth":         "Regrowth Areas",
	"primary_forest":   "Primary Forest",
	"disturbed_forest": "Disturbed Forest",
}

type ForestLayer struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	UserID     string         `gorm:"not null;index" json:"user_id"`
	Name       string         `gorm:"size:255;not null" json:"name"`
	Type       string         `gorm:"size:32;not null;index" json:"type"`
	Color      string         `gorm:"size:7;not null;default:'#3b82f6'" json:"color"`
	Geometry   datatypes.JSON `gorm:"type:jsonb;not null" json:"geometry"`
	Properties datatypes.JSON `gorm:"type:jsonb" json:"properties"`
	AreaKm2    *float64       `gorm:"column:area_km2;type:numeric(12,3)" json:"area_km2"`
	Visible    bool           `gorm:"not null;default:true" json:"visible"`
	Opacity    float64        `gorm:"type:numeric(3,2);not null;default:0.70" json:"opacity"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	User *auth.User `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ForestLayer) TableName() string { return "mspo.forest_layers" }
