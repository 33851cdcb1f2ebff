package polygons

import (
	"github.com/forestlens/mspo-maps/internal/utils"
	"gorm.io/datatypes"
)

type createRequest struct {
	ObjectID          *int64         `json:"object_id" validate:"required"`
	LicenseNo         string         `json:"license_no" validate:"required,max=255"`
	SmallholderName   string         `json:"smallholder_name" validate:"required,max=255"`
	State             string         `json:"state" validate:"required,max=255"`
	District          string         `json:"district" validate:"required,max=255"`
	Subdistrict       *string        `json:"subdistrict" validate:"omitnil,max=255"`
	SpocName          *string        `json:"spoc_name" validate:"omitnil,max=255"`
	SpocCode          *string        `json:"spoc_code" validate:"omitnil,max=255"`
	LotNo             *string        `json:"lot_no" validate:"omitnil,max=255"`
	CertifiedAreaHa   *float64       `json:"certified_area_ha" validate:"required,gte=0"`
	PlantedAreaHa     *float64       `json:"planted_area_ha" validate:"required,gte=0"`
	Longitude         *float64       `json:"longitude" validate:"required,between=-180:180"`
	Latitude          *float64       `json:"latitude" validate:"required,between=-90:90"`
	MSPOCertification *string        `json:"mspo_certification" validate:"omitnil,max=255"`
	LandTitle         *string        `json:"land_title" validate:"omitnil,max=255"`
	Geometry          datatypes.JSON `json:"geometry" validate:"required,object"`
	Centroid          datatypes.JSON `json:"centroid" validate:"required,array"`
	AreaKm2           *float64       `json:"area_km2" validate:"required,gte=0"`
	Properties        datatypes.JSON `json:"properties" validate:"omitnil,object"`
}

// readCreate checks a create body and builds the polygon it describes.
// The caller still owns object_id uniqueness, which needs the database.
func readCreate(f utils.Fields) (*Polygon, map[string][]string) {
	var req createRequest
	errs := utils.Bind(f, &req)

	p := &Polygon{
		LicenseNo:         req.LicenseNo,
		SmallholderName:   req.SmallholderName,
		State:             req.State,
		District:          req.District,
		Subdistrict:       req.Subdistrict,
		SpocName:          req.SpocName,
		SpocCode:          req.SpocCode,
		LotNo:             req.LotNo,
		CertifiedAreaHa:   num(req.CertifiedAreaHa),
		PlantedAreaHa:     num(req.PlantedAreaHa),
		Longitude:         num(req.Longitude),
		Latitude:          num(req.Latitude),
		MSPOCertification: req.MSPOCertification,
		LandTitle:         req.LandTitle,
		Geometry:          req.Geometry,
		Centroid:          req.Centroid,
		AreaKm2:           num(req.AreaKm2),
		Properties:        req.Properties,
	}
	if req.ObjectID != nil {
		p.ObjectID = *req.ObjectID
	}
	return p, errs
}

// updateRequest lists the updatable columns by their column names.
// object_id, longitude and latitude are fixed after creation.
type updateRequest struct {
	LicenseNo         *string        `json:"license_no" validate:"omitempty,max=255"`
	SmallholderName   *string        `json:"smallholder_name" validate:"omitempty,max=255"`
	State             *string        `json:"state" validate:"omitempty,max=255"`
	District          *string        `json:"district" validate:"omitempty,max=255"`
	Subdistrict       *string        `json:"subdistrict" validate:"omitnil,max=255"`
	SpocName          *string        `json:"spoc_name" validate:"omitnil,max=255"`
	SpocCode          *string        `json:"spoc_code" validate:"omitnil,max=255"`
	LotNo             *string        `json:"lot_no" validate:"omitnil,max=255"`
	MSPOCertification *string        `json:"mspo_certification" validate:"omitnil,max=255"`
	LandTitle         *string        `json:"land_title" validate:"omitnil,max=255"`
	CertifiedAreaHa   *float64       `json:"certified_area_ha" validate:"omitempty,gte=0"`
	PlantedAreaHa     *float64       `json:"planted_area_ha" validate:"omitempty,gte=0"`
	AreaKm2           *float64       `json:"area_km2" validate:"omitempty,gte=0"`
	Geometry          datatypes.JSON `json:"geometry" validate:"omitempty,object"`
	Centroid          datatypes.JSON `json:"centroid" validate:"omitempty,array"`
	Properties        datatypes.JSON `json:"properties" validate:"omitnil,object"`
}

// readUpdate returns the column changes of a partial update. Absent members
// are left alone; explicit nulls clear nullable columns.
func readUpdate(f utils.Fields) (map[string]interface{}, map[string][]string) {
	var req updateRequest
	if errs := utils.Bind(f, &req); len(errs) > 0 {
		return nil, errs
	}
	return utils.Changes(f, &req), nil
}

func num(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
