package polygonclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/forestlens/mspo-maps/internal/polygonstore"
	"github.com/paulmach/orb/geojson"
)

// record is a polygon as the server lists it.
type record struct {
	ID              string          `json:"id"`
	ObjectID        int64           `json:"object_id"`
	LicenseNo       string          `json:"license_no"`
	SmallholderName string          `json:"smallholder_name"`
	State           string          `json:"state"`
	District        string          `json:"district"`
	AreaKm2         float64         `json:"area_km2"`
	Geometry        json.RawMessage `json:"geometry"`
	Centroid        []float64       `json:"centroid"`
	Properties      json.RawMessage `json:"properties"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

var _ polygonstore.Gateway = (*Client)(nil)

// ListPolygons fetches the caller's polygons, limited to b when set.
func (c *Client) ListPolygons(ctx context.Context, b *polygonstore.Bounds) ([]polygonstore.Polygon, error) {
	var q url.Values
	if b != nil {
		q = url.Values{}
		q.Set("north", formatFloat(b.North))
		q.Set("south", formatFloat(b.South))
		q.Set("east", formatFloat(b.East))
		q.Set("west", formatFloat(b.West))
	}

	var recs []record
	if err := c.do(ctx, http.MethodGet, "/api/polygons", q, nil, &recs); err != nil {
		return nil, err
	}

	out := make([]polygonstore.Polygon, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toPolygon())
	}
	return out, nil
}

// toPolygon maps a server record onto the client model. Parcel identity
// fields travel in Properties.Extra; area_km2 fills in a missing area.
func (r record) toPolygon() polygonstore.Polygon {
	p := polygonstore.Polygon{
		ID:        r.ID,
		Centroid:  r.Centroid,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	if len(r.Geometry) > 0 {
		g, err := geojson.UnmarshalGeometry(r.Geometry)
		if err != nil {
			log.Printf("[polygonclient] polygon %s: bad geometry: %v", r.ID, err)
		} else {
			p.Geometry = g
		}
	}

	if len(r.Properties) > 0 && string(r.Properties) != "null" {
		if err := json.Unmarshal(r.Properties, &p.Properties); err != nil {
			log.Printf("[polygonclient] polygon %s: bad properties: %v", r.ID, err)
		}
	}
	if p.Properties.Area == nil && r.AreaKm2 > 0 {
		ha := r.AreaKm2 * 100
		p.Properties.Area = &ha
	}

	if p.Properties.Extra == nil {
		p.Properties.Extra = make(map[string]any)
	}
	identity := map[string]any{
		"object_id":        r.ObjectID,
		"license_no":       r.LicenseNo,
		"smallholder_name": r.SmallholderName,
		"state":            r.State,
		"district":         r.District,
	}
	for k, v := range identity {
		if _, ok := p.Properties.Extra[k]; !ok {
			p.Properties.Extra[k] = v
		}
	}
	return p
}

// ExportGeoJSON returns the caller's FeatureCollection as raw JSON.
func (c *Client) ExportGeoJSON(ctx context.Context) ([]byte, error) {
	var fc json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/polygons/export/geojson", nil, nil, &fc); err != nil {
		return nil, err
	}
	return fc, nil
}

// ImportGeoJSON uploads a FeatureCollection. Per-feature failures come back
// in the report, not as an error.
func (c *Client) ImportGeoJSON(ctx context.Context, data []byte) (polygonstore.ImportReport, error) {
	if !json.Valid(data) {
		return polygonstore.ImportReport{}, fmt.Errorf("import: body is not valid JSON")
	}
	body := map[string]json.RawMessage{"geojson": data}

	raw, err := c.send(ctx, http.MethodPost, "/api/polygons/import/geojson", nil, body)
	if err != nil {
		return polygonstore.ImportReport{}, err
	}

	var report polygonstore.ImportReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return polygonstore.ImportReport{}, fmt.Errorf("decoding import report: %w", err)
	}
	return report, nil
}
