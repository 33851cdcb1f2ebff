package polygonstore

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/forestlens/mspo-maps/internal/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

type Cause string

const (
	CauseAgriculture    Cause = "agriculture"
	CauseLogging        Cause = "logging"
	CauseInfrastructure Cause = "infrastructure"
	CauseMining         Cause = "mining"
	CauseUrban          Cause = "urban"
	CauseNatural        Cause = "natural"
	CauseUnknown        Cause = "unknown"
)

var Causes = []Cause{CauseAgriculture, CauseLogging, CauseInfrastructure, CauseMining, CauseUrban, CauseNatural, CauseUnknown}

func (c Cause) Valid() bool {
	for _, v := range Causes {
		if c == v {
			return true
		}
	}
	return false
}

// Properties holds the well-known polygon attributes. Keys outside that set
// survive a JSON round trip through Extra.
type Properties struct {
	Severity      Severity
	Cause         Cause
	Area          *float64 // hectares; NaN when the source value was not numeric
	DetectedDate  string
	EstimatedDate string
	Extra         map[string]any
}

var knownPropertyKeys = map[string]struct{}{
	"severity":      {},
	"cause":         {},
	"area":          {},
	"detectedDate":  {},
	"estimatedDate": {},
}

func (p Properties) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		if _, known := knownPropertyKeys[k]; !known {
			out[k] = v
		}
	}
	if p.Severity != "" {
		out["severity"] = p.Severity
	}
	if p.Cause != "" {
		out["cause"] = p.Cause
	}
	if p.Area != nil && !math.IsNaN(*p.Area) && !math.IsInf(*p.Area, 0) {
		out["area"] = *p.Area
	}
	if p.DetectedDate != "" {
		out["detectedDate"] = p.DetectedDate
	}
	if p.EstimatedDate != "" {
		out["estimatedDate"] = p.EstimatedDate
	}
	return json.Marshal(out)
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Properties{}

	for k, v := range raw {
		switch k {
		case "severity":
			p.Severity = Severity(decodeText(v))
		case "cause":
			p.Cause = Cause(decodeText(v))
		case "detectedDate":
			p.DetectedDate = decodeText(v)
		case "estimatedDate":
			p.EstimatedDate = decodeText(v)
		case "area":
			p.Area = decodeArea(v)
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = val
		}
	}
	return nil
}

// decodeText reads a string member. Other non-null values keep their JSON
// text, which is never a valid level, cause or date.
func decodeText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// decodeArea accepts numbers and numeric strings. Anything else becomes NaN
// so validation can report it.
func decodeArea(v json.RawMessage) *float64 {
	if string(v) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	nan := math.NaN()
	return &nan
}

// AreaValue returns the area in hectares, treating missing or non-numeric
// values as zero.
func (p Properties) AreaValue() float64 {
	if p.Area == nil || math.IsNaN(*p.Area) || math.IsInf(*p.Area, 0) {
		return 0
	}
	return *p.Area
}

func (p Properties) clone() Properties {
	out := p
	if p.Area != nil {
		a := *p.Area
		out.Area = &a
	}
	if p.Extra != nil {
		out.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Polygon is a single parcel or detected-change record held by the Store.
type Polygon struct {
	ID         string            `json:"id"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties Properties        `json:"properties"`
	Centroid   []float64         `json:"centroid,omitempty"` // [lat, lng]
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Ring returns the first ring of a Polygon geometry.
func (p Polygon) Ring() (orb.Ring, bool) {
	if p.Geometry == nil {
		return nil, false
	}
	poly, ok := p.Geometry.Coordinates.(orb.Polygon)
	if !ok || len(poly) == 0 {
		return nil, false
	}
	return poly[0], true
}

// LatLng returns the stored centroid, falling back to the vertex average of
// the ring when none was stored.
func (p Polygon) LatLng() (lat, lng float64, ok bool) {
	if len(p.Centroid) == 2 {
		return p.Centroid[0], p.Centroid[1], true
	}
	ring, ok := p.Ring()
	if !ok || len(ring) == 0 {
		return 0, 0, false
	}
	c := geometry.Centroid(ring)
	return c.Lat, c.Lng, true
}

func (p Polygon) Clone() Polygon {
	out := p
	out.Geometry = cloneGeometry(p.Geometry)
	out.Properties = p.Properties.clone()
	if p.Centroid != nil {
		out.Centroid = append([]float64(nil), p.Centroid...)
	}
	return out
}

func cloneGeometry(g *geojson.Geometry) *geojson.Geometry {
	if g == nil {
		return nil
	}
	out := &geojson.Geometry{Type: g.Type}
	if g.Coordinates != nil {
		out.Coordinates = orb.Clone(g.Coordinates)
	}
	return out
}

// NewPolygonGeometry wraps a single ring as a GeoJSON Polygon.
func NewPolygonGeometry(ring orb.Ring) *geojson.Geometry {
	return geojson.NewGeometry(orb.Polygon{ring})
}

// Patch is a shallow update. Nil fields are left untouched. Properties, when
// set, replaces the whole property set.
type Patch struct {
	Geometry   *geojson.Geometry
	Properties *Properties
	Centroid   []float64
}

func (pt Patch) apply(p *Polygon) {
	if pt.Geometry != nil {
		p.Geometry = cloneGeometry(pt.Geometry)
		if pt.Centroid == nil {
			p.Centroid = nil
		}
	}
	if pt.Properties != nil {
		p.Properties = pt.Properties.clone()
	}
	if pt.Centroid != nil {
		p.Centroid = append([]float64(nil), pt.Centroid...)
	}
}

// Bounds is a lat/lng rectangle, inclusive on every edge.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

func (b Bounds) Contains(lat, lng float64) bool {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}.Contains(orb.Point{lng, lat})
}
