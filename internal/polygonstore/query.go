package polygonstore

import (
	"time"

	"github.com/forestlens/mspo-maps/internal/geometry"
)

// InBounds returns the polygons whose centroid lies inside b, edges included.
func (s *Store) InBounds(b Bounds) []Polygon {
	var out []Polygon
	for _, p := range s.polygons {
		lat, lng, ok := p.LatLng()
		if ok && b.Contains(lat, lng) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// InDateRange returns the polygons detected between start and end inclusive.
// Polygons without a parseable detectedDate never match.
func (s *Store) InDateRange(start, end time.Time) []Polygon {
	var out []Polygon
	for _, p := range s.polygons {
		t, ok := ParseDate(p.Properties.DetectedDate)
		if ok && !t.Before(start) && !t.After(end) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Store) BySeverity(sev Severity) []Polygon {
	var out []Polygon
	for _, p := range s.polygons {
		if p.Properties.Severity == sev {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Store) StatsByTimeRange(days int) Stats {
	return StatsByTimeRange(s.polygons, days, s.now())
}

// Analyze computes the geometric metrics of id and caches them. The cache
// is not refreshed by later edits.
func (s *Store) Analyze(id string) (geometry.Result, error) {
	i := s.indexOf(id)
	if i < 0 {
		return geometry.Result{}, notFound(id)
	}
	ring, ok := s.polygons[i].Ring()
	if !ok {
		return geometry.Result{}, ErrNoGeometry
	}
	res, err := geometry.Analyze(ring, s.now())
	if err != nil {
		return geometry.Result{}, err
	}
	s.analysis[id] = res
	return res, nil
}

// Analysis returns the cached result of the last Analyze call for id.
func (s *Store) Analysis(id string) (geometry.Result, bool) {
	res, ok := s.analysis[id]
	return res, ok
}

// UpdateVisiblePolygons recomputes and caches the polygons inside b, capped
// at the max render count.
func (s *Store) UpdateVisiblePolygons(b Bounds) []Polygon {
	visible := s.InBounds(b)
	if s.maxRender > 0 && len(visible) > s.maxRender {
		visible = visible[:s.maxRender]
	}
	s.visible = visible
	s.loadedBounds = &b
	return s.VisiblePolygons()
}

func (s *Store) VisiblePolygons() []Polygon {
	return append([]Polygon(nil), s.visible...)
}

func (s *Store) LoadedBounds() (Bounds, bool) {
	if s.loadedBounds == nil {
		return Bounds{}, false
	}
	return *s.loadedBounds, true
}

// Filter narrows the collection for map display. Zero fields do not filter.
type Filter struct {
	Severities   []Severity `json:"severity,omitempty"`
	Causes       []Cause    `json:"cause,omitempty"`
	DetectedFrom *time.Time `json:"detectedFrom,omitempty"`
	DetectedTo   *time.Time `json:"detectedTo,omitempty"`
	MinArea      *float64   `json:"minArea,omitempty"`
	MaxArea      *float64   `json:"maxArea,omitempty"`
}

func (f Filter) Match(p Polygon) bool {
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, p.Properties.Severity) {
		return false
	}
	if len(f.Causes) > 0 && !containsCause(f.Causes, p.Properties.Cause) {
		return false
	}
	if f.DetectedFrom != nil || f.DetectedTo != nil {
		t, ok := ParseDate(p.Properties.DetectedDate)
		if !ok {
			return false
		}
		if f.DetectedFrom != nil && t.Before(*f.DetectedFrom) {
			return false
		}
		if f.DetectedTo != nil && t.After(*f.DetectedTo) {
			return false
		}
	}
	area := p.Properties.AreaValue()
	if f.MinArea != nil && area < *f.MinArea {
		return false
	}
	if f.MaxArea != nil && area > *f.MaxArea {
		return false
	}
	return true
}

func containsSeverity(list []Severity, v Severity) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsCause(list []Cause, v Cause) bool {
	for _, c := range list {
		if c == v {
			return true
		}
	}
	return false
}

func (s *Store) Filtered(f Filter) []Polygon {
	var out []Polygon
	for _, p := range s.polygons {
		if f.Match(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *Store) FilteredStats(f Filter) Stats {
	return Recompute(s.Filtered(f))
}
