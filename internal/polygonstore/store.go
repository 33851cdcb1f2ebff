// Package polygonstore keeps the in-memory polygon collection of one map
// session: validation, statistics, the drawing/editing state machine, bulk
// operations, the operation history and spatial/temporal queries.
//
// A Store is not safe for concurrent mutation. Callers serialise access the
// way a UI event loop does. The network-bound operations (Sync, Export,
// Import) carry their own in-flight guards.
package polygonstore

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/forestlens/mspo-maps/internal/geometry"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

const defaultMaxRender = 1000

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithGateway(g Gateway) Option {
	return func(s *Store) { s.gateway = g }
}

func WithStyles(set StyleSet) Option {
	return func(s *Store) { s.styles = set }
}

// WithMaxRender caps the number of polygons kept by UpdateVisiblePolygons.
func WithMaxRender(n int) Option {
	return func(s *Store) { s.maxRender = n }
}

type drawingState struct {
	active bool
	mode   DrawMode
	temp   *geojson.Geometry
}

type editingState struct {
	active   bool
	targetID string
	temp     *geojson.Geometry
}

type Store struct {
	polygons []Polygon

	selectedID string
	hoveredID  string
	drawing    drawingState
	editing    editingState

	validationErrors map[string][]string
	analysis         map[string]geometry.Result
	history          []HistoryEntry
	stats            Stats

	visible      []Polygon
	loadedBounds *Bounds
	maxRender    int
	lastSync     time.Time

	bulkInProgress atomic.Bool
	syncing        atomic.Bool
	exporting      atomic.Bool
	importing      atomic.Bool

	listeners    []listener
	nextListener int

	now     func() time.Time
	newID   func() string
	gateway Gateway
	styles  StyleSet
}

func New(opts ...Option) *Store {
	s := &Store{
		validationErrors: make(map[string][]string),
		analysis:         make(map[string]geometry.Result),
		maxRender:        defaultMaxRender,
		now:              time.Now,
		newID:            uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.styles.Severity == nil && s.styles.Default == (Style{}) {
		s.styles = mustDefaultStyles()
	}
	s.stats = Recompute(nil)
	return s
}

func (s *Store) indexOf(id string) int {
	for i := range s.polygons {
		if s.polygons[i].ID == id {
			return i
		}
	}
	return -1
}

// Polygons returns a copy of the collection in insertion order.
func (s *Store) Polygons() []Polygon {
	out := make([]Polygon, len(s.polygons))
	for i, p := range s.polygons {
		out[i] = p.Clone()
	}
	return out
}

func (s *Store) Get(id string) (Polygon, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Polygon{}, false
	}
	return s.polygons[i].Clone(), true
}

func (s *Store) Len() int { return len(s.polygons) }

func (s *Store) Stats() Stats { return s.stats.Clone() }

// ValidationErrors returns the messages of the last rejected add or update for id.
func (s *Store) ValidationErrors(id string) []string {
	return append([]string(nil), s.validationErrors[id]...)
}

func (s *Store) IsValid(p Polygon) bool {
	return Validate(p).IsValid
}

func (s *Store) refresh() {
	s.stats = Recompute(s.polygons)
	s.emitChanged()
}

// deriveCentroid fills a missing centroid from the ring.
func deriveCentroid(p *Polygon) {
	if len(p.Centroid) == 2 {
		return
	}
	if ring, ok := p.Ring(); ok && len(ring) > 0 {
		c := geometry.Centroid(ring)
		p.Centroid = []float64{c.Lat, c.Lng}
	}
}

// Add validates p and appends it. A missing id and missing timestamps are
// assigned. Nothing is stored when validation fails.
func (s *Store) Add(p Polygon) (Polygon, error) {
	p = p.Clone()
	if p.ID == "" {
		p.ID = s.newID()
	} else if s.indexOf(p.ID) >= 0 {
		return Polygon{}, ErrDuplicateID
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	if res := Validate(p); !res.IsValid {
		s.validationErrors[p.ID] = res.Errors
		return Polygon{}, &ValidationError{PolygonID: p.ID, Errors: res.Errors}
	}
	deriveCentroid(&p)

	s.polygons = append(s.polygons, p)
	delete(s.validationErrors, p.ID)
	s.record(OpAdd, []string{p.ID})
	s.refresh()
	return p.Clone(), nil
}

// Update merges patch onto the stored record and re-validates the result.
// The stored record is untouched when validation fails.
func (s *Store) Update(id string, patch Patch) (Polygon, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Polygon{}, notFound(id)
	}
	prior := s.polygons[i].Clone()
	merged := prior.Clone()
	patch.apply(&merged)
	merged.UpdatedAt = s.now()

	if res := Validate(merged); !res.IsValid {
		s.validationErrors[id] = res.Errors
		return Polygon{}, &ValidationError{PolygonID: id, Errors: res.Errors}
	}
	deriveCentroid(&merged)

	s.polygons[i] = merged
	delete(s.validationErrors, id)
	s.record(OpUpdate, []string{id}, prior)
	s.refresh()
	return merged.Clone(), nil
}

// Remove deletes the polygon and every piece of state keyed by its id.
func (s *Store) Remove(id string) (Polygon, error) {
	removed, err := s.detach(id)
	if err != nil {
		return Polygon{}, err
	}
	s.record(OpRemove, []string{id}, removed)
	s.refresh()
	return removed, nil
}

func (s *Store) detach(id string) (Polygon, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Polygon{}, notFound(id)
	}
	removed := s.polygons[i]
	s.polygons = append(s.polygons[:i], s.polygons[i+1:]...)

	delete(s.validationErrors, id)
	delete(s.analysis, id)
	if s.hoveredID == id {
		s.hoveredID = ""
	}
	if s.editing.targetID == id {
		s.editing = editingState{}
	}
	if s.selectedID == id {
		s.selectedID = ""
		s.emitSelection()
	}
	return removed, nil
}

// BulkUpdate applies patch to every id independently. The successes are
// returned even when some ids fail; those failures come back as a *BulkError.
func (s *Store) BulkUpdate(ids []string, patch Patch) ([]Polygon, error) {
	if !s.bulkInProgress.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}
	defer s.bulkInProgress.Store(false)

	var (
		updated []Polygon
		failed  []ItemFailure
	)
	for _, id := range ids {
		p, err := s.Update(id, patch)
		if err != nil {
			log.Printf("[polygonstore] bulk update %s: %v", id, err)
			failed = append(failed, ItemFailure{PolygonID: id, Err: err})
			continue
		}
		updated = append(updated, p)
	}

	s.record(OpBulkUpdate, append([]string(nil), ids...))
	if len(failed) > 0 {
		return updated, &BulkError{Operation: OpBulkUpdate, Failures: failed}
	}
	return updated, nil
}

func (s *Store) BulkDelete(ids []string) ([]Polygon, error) {
	if !s.bulkInProgress.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}
	defer s.bulkInProgress.Store(false)

	var (
		removed []Polygon
		failed  []ItemFailure
	)
	for _, id := range ids {
		p, err := s.detach(id)
		if err != nil {
			log.Printf("[polygonstore] bulk delete %s: %v", id, err)
			failed = append(failed, ItemFailure{PolygonID: id, Err: err})
			continue
		}
		removed = append(removed, p)
	}

	s.record(OpBulkDelete, append([]string(nil), ids...), removed...)
	s.refresh()
	if len(failed) > 0 {
		return removed, &BulkError{Operation: OpBulkDelete, Failures: failed}
	}
	return removed, nil
}

// LoadPolygons replaces the collection without validation. Missing ids are
// generated. Per-polygon state of ids that are gone is dropped.
func (s *Store) LoadPolygons(list []Polygon) {
	s.polygons = make([]Polygon, 0, len(list))
	for _, p := range list {
		p = p.Clone()
		if p.ID == "" {
			p.ID = s.newID()
		}
		s.polygons = append(s.polygons, p)
	}
	for id := range s.analysis {
		if s.indexOf(id) < 0 {
			delete(s.analysis, id)
		}
	}
	for id := range s.validationErrors {
		if s.indexOf(id) < 0 {
			delete(s.validationErrors, id)
		}
	}
	if s.hoveredID != "" && s.indexOf(s.hoveredID) < 0 {
		s.hoveredID = ""
	}
	if s.editing.active && s.indexOf(s.editing.targetID) < 0 {
		s.editing = editingState{}
	}
	if s.selectedID != "" && s.indexOf(s.selectedID) < 0 {
		s.selectedID = ""
		s.emitSelection()
	}
	s.refresh()
}

// ClearAll drops every polygon and all per-polygon state. History is kept.
func (s *Store) ClearAll() {
	s.polygons = nil
	s.validationErrors = make(map[string][]string)
	s.analysis = make(map[string]geometry.Result)
	s.visible = nil
	s.loadedBounds = nil
	s.hoveredID = ""
	s.editing = editingState{}
	s.drawing = drawingState{}
	if s.selectedID != "" {
		s.selectedID = ""
		s.emitSelection()
	}
	s.refresh()
}

// IsAnyOperationActive reports whether drawing, editing, a bulk operation or
// a network operation is under way.
func (s *Store) IsAnyOperationActive() bool {
	return s.drawing.active || s.editing.active ||
		s.bulkInProgress.Load() || s.syncing.Load() ||
		s.exporting.Load() || s.importing.Load()
}
