package polygons

import (
	"time"

	"github.com/forestlens/mspo-maps/internal/auth"
	"gorm.io/datatypes"
)

// Polygon is one smallholder parcel as persisted for its owner.
type Polygon struct {
	ID                string         `gorm:"primaryKey" json:"id"`
	UserID            string         `gorm:"not null;index" json:"user_id"`
	ObjectID          int64          `gorm:"not null;uniqueIndex" json:"object_id"`
	LicenseNo         string         `gorm:"size:255;not null" json:"license_no"`
	SmallholderName   string         `gorm:"size:255;not null" json:"smallholder_name"`
	State             string         `gorm:"size:255;not null;index" json:"state"`
	District          string         `gorm:"size:255;not null" json:"district"`
	Subdistrict       *string        `gorm:"size:255" json:"subdistrict"`
	SpocName          *string        `gorm:"size:255" json:"spoc_name"`
	SpocCode          *string        `gorm:"size:255" json:"spoc_code"`
	LotNo             *string        `gorm:"size:255" json:"lot_no"`
	CertifiedAreaHa   float64        `gorm:"type:numeric(12,3);not null" json:"certified_area_ha"`
	PlantedAreaHa     float64        `gorm:"type:numeric(12,3);not null" json:"planted_area_ha"`
	Longitude         float64        `gorm:"type:numeric(10,6);not null;index:idx_polygons_lat_lng,priority:2" json:"longitude"`
	Latitude          float64        `gorm:"type:numeric(10,6);not null;index:idx_polygons_lat_lng,priority:1" json:"latitude"`
	MSPOCertification *string        `gorm:"column:mspo_certification;size:255" json:"mspo_certification"`
	LandTitle         *string        `gorm:"size:255" json:"land_title"`
	Geometry          datatypes.JSON `gorm:"type:jsonb;not null" json:"geometry"`
	Centroid          datatypes.JSON `gorm:"type:jsonb;not null" json:"centroid"`
	AreaKm2           float64        `gorm:"column:area_km2;type:numeric(12,3);not null" json:"area_km2"`
	Properties        datatypes.JSON `gorm:"type:jsonb" json:"properties,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	User *auth.User `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Polygon) TableName() string { return "mspo.polygons" }

// Feature and FeatureCollection are the GeoJSON shapes exchanged by export
// and import. Geometry is kept verbatim.
type Feature struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   datatypes.JSON         `json:"geometry"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// ImportResult is the body of a successful import.
type ImportResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}
