// Package geometry holds the planar polygon measurements used by the map
// store and the import endpoint. Rings are [lng, lat] sequences in degrees.
// Every formula here is an equatorial approximation, not a geodesic one.
package geometry

import (
	"errors"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// MetersPerDegree is the length of one degree at the equator.
const MetersPerDegree = 111319.5

var ErrDegenerate = errors.New("degenerate polygon")

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BBox is the component-wise extent of a ring.
type BBox struct {
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
}

// Bound converts the box into an orb.Bound (Min is south-west).
func (b BBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLng, b.MinLat},
		Max: orb.Point{b.MaxLng, b.MaxLat},
	}
}

// Result is the analysis of a single ring.
type Result struct {
	Area        float64   `json:"area"`
	Perimeter   float64   `json:"perimeter"`
	Centroid    LatLng    `json:"centroid"`
	BoundingBox BBox      `json:"boundingBox"`
	Compactness float64   `json:"compactness"`
	ComputedAt  time.Time `json:"computedAt"`
}

// Close returns the ring with its first point repeated at the end. Rings that
// are already closed, and empty rings, are returned as-is.
func Close(ring orb.Ring) orb.Ring {
	if len(ring) == 0 || ring.Closed() {
		return ring
	}
	closed := make(orb.Ring, len(ring), len(ring)+1)
	copy(closed, ring)
	return append(closed, ring[0])
}

// Area returns the planar area of the ring in hectares.
func Area(ring orb.Ring) float64 {
	ring = Close(ring)
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return math.Abs(sum) * 0.5 * MetersPerDegree * MetersPerDegree / 10000
}

// Perimeter returns the ring length in meters.
func Perimeter(ring orb.Ring) float64 {
	ring = Close(ring)
	var total float64
	for i := 0; i < len(ring)-1; i++ {
		dx := ring[i+1][0] - ring[i][0]
		dy := ring[i+1][1] - ring[i][1]
		total += math.Sqrt(dx*dx+dy*dy) * MetersPerDegree
	}
	return total
}

// Centroid is the unweighted average of the distinct vertices.
func Centroid(ring orb.Ring) LatLng {
	ring = Close(ring)
	n := len(ring) - 1
	if n <= 0 {
		return LatLng{}
	}
	var lat, lng float64
	for i := 0; i < n; i++ {
		lng += ring[i][0]
		lat += ring[i][1]
	}
	return LatLng{Lat: lat / float64(n), Lng: lng / float64(n)}
}

func BoundingBox(ring orb.Ring) BBox {
	if len(ring) == 0 {
		return BBox{}
	}
	b := ring.Bound()
	return BBox{
		MinLng: b.Min[0],
		MaxLng: b.Max[0],
		MinLat: b.Min[1],
		MaxLat: b.Max[1],
	}
}

// Compactness is the isoperimetric ratio 4π·area/perimeter². A zero
// perimeter has no defined ratio and yields ErrDegenerate.
func Compactness(area, perimeter float64) (float64, error) {
	if perimeter == 0 || math.IsNaN(perimeter) || math.IsInf(perimeter, 0) {
		return 0, ErrDegenerate
	}
	return 4 * math.Pi * area / (perimeter * perimeter), nil
}

// Analyze computes every metric for the ring. The area passed to Compactness
// is in square meters so the ratio is unit-free.
func Analyze(ring orb.Ring, now time.Time) (Result, error) {
	if distinct(ring) < 3 {
		return Result{}, ErrDegenerate
	}
	area := Area(ring)
	perimeter := Perimeter(ring)
	compactness, err := Compactness(area*10000, perimeter)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Area:        area,
		Perimeter:   perimeter,
		Centroid:    Centroid(ring),
		BoundingBox: BoundingBox(ring),
		Compactness: compactness,
		ComputedAt:  now,
	}, nil
}

func distinct(ring orb.Ring) int {
	seen := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}
