// Package mapview keeps the map viewport in step with a polygon repository
// and persists it per user.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/forestlens/mspo-maps/internal/polygonstore"
)

const (
	DefaultZoom  = 6
	FocusZoom    = 12
	DefaultStyle = "satellite"
)

// DefaultCenter is peninsular Malaysia, as [lat, lng].
var DefaultCenter = [2]float64{4.2105, 101.9758}

var Styles = []string{"satellite", "terrain", "roadmap", "hybrid"}

var ErrUnknownStyle = errors.New("unknown map style")

// State is the saved viewport. Its JSON form is the map_state blob.
type State struct {
	Center     [2]float64      `json:"center"`
	Zoom       int             `json:"zoom"`
	Style      string          `json:"style"`
	Layers     map[string]bool `json:"layers"`
	SelectedID string          `json:"selectedPolygonId,omitempty"`
}

func DefaultState() State {
	return State{
		Center: DefaultCenter,
		Zoom:   DefaultZoom,
		Style:  DefaultStyle,
		Layers: map[string]bool{
			"deforestation":  true,
			"forestCover":    true,
			"protectedAreas": false,
			"roads":          false,
			"settlements":    false,
			"waterBodies":    true,
		},
	}
}

func (s State) clone() State {
	out := s
	out.Layers = make(map[string]bool, len(s.Layers))
	for k, v := range s.Layers {
		out.Layers[k] = v
	}
	return out
}

// Persister saves and restores the viewport; polygonclient.Client
// implements it.
type Persister interface {
	SaveMapState(ctx context.Context, state interface{}) error
	LoadMapState(ctx context.Context, into interface{}) (bool, error)
}

// View follows the repository's selection: selecting a polygon centres the
// map on it, clearing the selection keeps the viewport where it is.
type View struct {
	mu          sync.Mutex
	state       State
	persister   Persister
	unsubscribe func()
}

func New(store *polygonstore.Store, p Persister) *View {
	v := &View{state: DefaultState(), persister: p}
	v.unsubscribe = store.Subscribe(v.onEvent)
	return v
}

func (v *View) onEvent(e polygonstore.Event) {
	if e.Kind != polygonstore.SelectionChanged {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.SelectedID = e.PolygonID
	if e.Polygon == nil {
		return
	}
	if lat, lng, ok := e.Polygon.LatLng(); ok {
		v.state.Center = [2]float64{lat, lng}
	}
}

// Close stops following the repository.
func (v *View) Close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

func (v *View) SetCenter(lat, lng float64) {
	v.mu.Lock()
	v.state.Center = [2]float64{lat, lng}
	v.mu.Unlock()
}

func (v *View) SetZoom(zoom int) {
	v.mu.Lock()
	v.state.Zoom = zoom
	v.mu.Unlock()
}

func (v *View) SetStyle(style string) error {
	for _, s := range Styles {
		if s == style {
			v.mu.Lock()
			v.state.Style = style
			v.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownStyle, style)
}

// ToggleLayer flips a known layer and returns its new visibility. Unknown
// names are ignored.
func (v *View) ToggleLayer(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	visible, ok := v.state.Layers[name]
	if !ok {
		return false
	}
	v.state.Layers[name] = !visible
	return !visible
}

func (v *View) SetLayerVisibility(name string, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.state.Layers[name]; ok {
		v.state.Layers[name] = visible
	}
}

// FocusLocation centres on a search result at street-level zoom.
func (v *View) FocusLocation(lat, lng float64) {
	v.mu.Lock()
	v.state.Center = [2]float64{lat, lng}
	v.state.Zoom = FocusZoom
	v.mu.Unlock()
}

func (v *View) Save(ctx context.Context) error {
	if v.persister == nil {
		return nil
	}
	if err := v.persister.SaveMapState(ctx, v.State()); err != nil {
		return fmt.Errorf("saving map state: %w", err)
	}
	return nil
}

// Restore loads the saved viewport. It reports false and keeps the current
// state when nothing was saved.
func (v *View) Restore(ctx context.Context) (bool, error) {
	if v.persister == nil {
		return false, nil
	}
	loaded := DefaultState()
	ok, err := v.persister.LoadMapState(ctx, &loaded)
	if err != nil {
		return false, fmt.Errorf("loading map state: %w", err)
	}
	if !ok {
		return false, nil
	}

	v.mu.Lock()
	v.state = loaded
	v.mu.Unlock()
	return true, nil
}
