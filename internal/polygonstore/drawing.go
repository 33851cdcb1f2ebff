package polygonstore

import (
	"github.com/paulmach/orb/geojson"
)

type DrawMode string

const (
	DrawPolygon   DrawMode = "polygon"
	DrawRectangle DrawMode = "rectangle"
	DrawCircle    DrawMode = "circle"
)

func (m DrawMode) Valid() bool {
	switch m {
	case DrawPolygon, DrawRectangle, DrawCircle:
		return true
	}
	return false
}

// StartDrawing enters drawing mode and discards any staged geometry. It is
// refused while an edit is in progress.
func (s *Store) StartDrawing(mode DrawMode) error {
	if !mode.Valid() {
		return ErrInvalidDrawMode
	}
	if s.editing.active {
		return ErrModeConflict
	}
	s.drawing = drawingState{active: true, mode: mode}
	return nil
}

// SetTempGeometry stages a geometry for the active drawing or edit.
func (s *Store) SetTempGeometry(g *geojson.Geometry) {
	switch {
	case s.drawing.active:
		s.drawing.temp = cloneGeometry(g)
	case s.editing.active:
		s.editing.temp = cloneGeometry(g)
	}
}

// FinishDrawing adds a polygon built from g, or from the staged geometry when
// g is nil. On success drawing ends and the new polygon is selected. On a
// validation failure drawing stays active with g staged so it can be fixed.
func (s *Store) FinishDrawing(g *geojson.Geometry, props Properties) (Polygon, error) {
	if !s.drawing.active {
		return Polygon{}, ErrNotDrawing
	}
	if g == nil {
		g = s.drawing.temp
	}
	if g == nil {
		return Polygon{}, ErrEmptyDrawing
	}

	p, err := s.Add(Polygon{Geometry: g, Properties: props})
	if err != nil {
		s.drawing.temp = cloneGeometry(g)
		return Polygon{}, err
	}

	s.drawing = drawingState{}
	s.selectedID = p.ID
	s.emitSelection()
	return p, nil
}

func (s *Store) StopDrawing() {
	s.drawing = drawingState{}
}

func (s *Store) IsDrawing() bool { return s.drawing.active }
func (s *Store) DrawingMode() DrawMode { return s.drawing.mode }

// StartEditing enters edit mode for id and selects it.
func (s *Store) StartEditing(id string) error {
	if s.drawing.active {
		return ErrModeConflict
	}
	if s.indexOf(id) < 0 {
		return notFound(id)
	}
	s.editing = editingState{active: true, targetID: id}
	return s.Select(id)
}

// StopEditing leaves edit mode. With save set and a staged geometry it first
// updates the geometry of the target. Edit mode is cleared even when that
// update fails; the failure is returned.
func (s *Store) StopEditing(save bool) error {
	state := s.editing
	s.editing = editingState{}

	if !save || !state.active || state.temp == nil {
		return nil
	}
	_, err := s.Update(state.targetID, Patch{Geometry: state.temp})
	return err
}

func (s *Store) IsEditing() bool { return s.editing.active }
func (s *Store) EditingTarget() string { return s.editing.targetID }

func (s *Store) Select(id string) error {
	if s.indexOf(id) < 0 {
		return notFound(id)
	}
	s.selectedID = id
	s.emitSelection()
	return nil
}

func (s *Store) ClearSelection() {
	if s.selectedID == "" {
		return
	}
	s.selectedID = ""
	s.emitSelection()
}

func (s *Store) Selected() (Polygon, bool) {
	if s.selectedID == "" {
		return Polygon{}, false
	}
	return s.Get(s.selectedID)
}

func (s *Store) SetHovered(id string) { s.hoveredID = id }
func (s *Store) ClearHover() { s.hoveredID = "" }
func (s *Store) Hovered() string { return s.hoveredID }
