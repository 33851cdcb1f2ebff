package polygons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/geometry"
	"github.com/forestlens/mspo-maps/internal/metrics"
	"github.com/forestlens/mspo-maps/internal/utils"
	"github.com/go-chi/render"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Export returns every polygon of the caller as a FeatureCollection.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	polys, err := h.store.List(r.Context(), userID, ListFilter{})
	if err != nil {
		log.Printf("[polygons] export for %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to export polygons")
		return
	}

	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(polys))}
	for _, p := range polys {
		fc.Features = append(fc.Features, toFeature(p))
	}
	utils.RespondData(w, r, http.StatusOK, fc)
}

func toFeature(p Polygon) Feature {
	props := map[string]interface{}{
		"object_id":         p.ObjectID,
		"license_no":        p.LicenseNo,
		"smallholder_name":  p.SmallholderName,
		"state":             p.State,
		"district":          p.District,
		"certified_area_ha": p.CertifiedAreaHa,
		"planted_area_ha":   p.PlantedAreaHa,
		"area_km2":          p.AreaKm2,
		"created_at":        p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	return Feature{Type: "Feature", ID: p.ID, Properties: props, Geometry: p.Geometry}
}

// Property defaults for imported features, as JSON literals.
var importDefaults = map[string]string{
	"license_no":        `"IMPORTED"`,
	"smallholder_name":  `"Imported Feature"`,
	"state":             `"UNKNOWN"`,
	"district":          `"UNKNOWN"`,
	"certified_area_ha": `0`,
	"planted_area_ha":   `0`,
	"longitude":         `0`,
	"latitude":          `0`,
	"area_km2":          `0`,
}

// Properties that map onto columns; anything else is kept in the
// properties column.
var columnProperties = map[string]bool{
	"object_id": true, "license_no": true, "smallholder_name": true,
	"state": true, "district": true, "subdistrict": true,
	"spoc_name": true, "spoc_code": true, "lot_no": true,
	"certified_area_ha": true, "planted_area_ha": true,
	"longitude": true, "latitude": true, "area_km2": true,
	"mspo_certification": true, "land_title": true,
}

// Import creates one polygon per feature. Features fail independently and
// are reported by their zero-based index.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	features, errs, err := decodeCollection(r)
	if err != nil {
		utils.RespondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(errs) > 0 {
		utils.RespondValidation(w, r, "Invalid GeoJSON format", errs)
		return
	}

	res, err := ImportFeatures(r.Context(), h.store, userID, features)
	if err != nil {
		log.Printf("[polygons] import for %s: %v", userID, err)
		utils.RespondError(w, r, http.StatusInternalServerError, "Failed to import polygons")
		return
	}

	log.Printf("[polygons] import for %s: %d imported, %d failed", userID, res.Imported, len(res.Errors))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, res)
}

// ImportFeatures creates one polygon per raw feature for userID. Features
// without an object_id continue from the owner's highest one.
func ImportFeatures(ctx context.Context, s Store, userID string, features []json.RawMessage) (ImportResult, error) {
	next, err := s.MaxObjectID(ctx, userID)
	if err != nil {
		return ImportResult{}, err
	}
	next++

	res := ImportResult{Success: true, Errors: []string{}}
	for i, raw := range features {
		p, err := importFeature(ctx, s, userID, raw, next)
		if err != nil {
			metrics.ImportFeaturesTotal.WithLabelValues("error").Inc()
			res.Errors = append(res.Errors, fmt.Sprintf("Feature %d: %s", i, err))
			continue
		}
		metrics.ImportFeaturesTotal.WithLabelValues("ok").Inc()
		res.Imported++
		if p.ObjectID >= next {
			next = p.ObjectID + 1
		}
	}
	res.Message = fmt.Sprintf("Successfully imported %d polygon(s)", res.Imported)
	return res, nil
}

type importWrapper struct {
	GeoJSON json.RawMessage `json:"geojson" validate:"required,object"`
}

type featureCollection struct {
	Type     string          `json:"type" validate:"required,oneof=FeatureCollection"`
	Features json.RawMessage `json:"features" validate:"required,array"`
}

// decodeCollection accepts {"geojson": FeatureCollection} or a bare
// FeatureCollection.
func decodeCollection(r *http.Request) ([]json.RawMessage, map[string][]string, error) {
	body, err := utils.DecodeFields(r.Body)
	if err != nil {
		return nil, nil, err
	}

	prefix := ""
	fields := body
	if body.Present("geojson") {
		prefix = "geojson."
		var wrapper importWrapper
		if errs := utils.Bind(body, &wrapper); len(errs) > 0 {
			return nil, errs, nil
		}
		fields = utils.Fields{}
		if err := json.Unmarshal(wrapper.GeoJSON, &fields); err != nil {
			return nil, nil, err
		}
	}

	var fc featureCollection
	if errs := utils.Bind(fields, &fc); len(errs) > 0 {
		prefixed := make(map[string][]string, len(errs))
		for k, msgs := range errs {
			prefixed[prefix+k] = msgs
		}
		return nil, prefixed, nil
	}

	var features []json.RawMessage
	if err := json.Unmarshal(fc.Features, &features); err != nil {
		return nil, nil, err
	}
	return features, nil, nil
}

func importFeature(ctx context.Context, s Store, userID string, raw json.RawMessage, nextObjectID int64) (*Polygon, error) {
	var feature struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Geometry   json.RawMessage            `json:"geometry"`
	}
	if err := json.Unmarshal(raw, &feature); err != nil {
		return nil, errors.New("feature must be an object")
	}

	fields := utils.Fields{}
	extra := make(map[string]json.RawMessage)
	for k, v := range feature.Properties {
		if columnProperties[k] {
			fields[k] = v
		} else {
			extra[k] = v
		}
	}
	if fields.IsNull("object_id") {
		fields["object_id"] = json.RawMessage(fmt.Sprint(nextObjectID))
	}
	for k, lit := range importDefaults {
		if fields.IsNull(k) {
			fields[k] = json.RawMessage(lit)
		}
	}
	if len(feature.Geometry) > 0 {
		fields["geometry"] = feature.Geometry
	}
	centroid, _ := json.Marshal(featureCentroid(feature.Geometry))
	fields["centroid"] = centroid
	if len(extra) > 0 {
		props, _ := json.Marshal(extra)
		fields["properties"] = props
	}

	p, errs := readCreate(fields)
	if _, bad := errs["object_id"]; !bad {
		taken, err := s.ObjectIDExists(ctx, p.ObjectID)
		if err != nil {
			return nil, err
		}
		if taken {
			errs["object_id"] = []string{objectIDTaken}
		}
	}
	if len(errs) > 0 {
		return nil, errors.New(strings.Join(utils.FlattenErrors(errs), " "))
	}

	p.ID = utils.GenerateUUID()
	p.UserID = userID
	if err := s.Create(ctx, p); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errors.New(objectIDTaken)
		}
		return nil, err
	}
	return p, nil
}

// featureCentroid is the vertex average of the outer ring as [lat, lng],
// or [0, 0] for anything but a Polygon.
func featureCentroid(raw json.RawMessage) []float64 {
	if len(raw) == 0 {
		return []float64{0, 0}
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return []float64{0, 0}
	}
	poly, ok := g.Coordinates.(orb.Polygon)
	if !ok || len(poly) == 0 || len(poly[0]) == 0 {
		return []float64{0, 0}
	}
	c := geometry.Centroid(poly[0])
	return []float64{c.Lat, c.Lng}
}
