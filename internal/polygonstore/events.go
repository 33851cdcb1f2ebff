package polygonstore

type EventKind int

const (
	// SelectionChanged fires on select, clear and on removal of the selected polygon.
	SelectionChanged EventKind = iota
	// PolygonsChanged fires after any mutation of the collection.
	PolygonsChanged
)

type Event struct {
	Kind      EventKind
	PolygonID string   // selected id, empty when the selection was cleared
	Polygon   *Polygon // selected polygon, nil when cleared
	Stats     Stats    // set on PolygonsChanged
}

// Subscribe registers fn for every event. Listeners run synchronously in
// registration order. The returned func removes the listener.
func (s *Store) Subscribe(fn func(Event)) func() {
	id := s.nextListener
	s.nextListener++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

type listener struct {
	id int
	fn func(Event)
}

func (s *Store) emit(e Event) {
	for _, l := range append([]listener(nil), s.listeners...) {
		ev := e
		if ev.Kind == PolygonsChanged {
			ev.Stats = e.Stats.Clone()
		}
		l.fn(ev)
	}
}

func (s *Store) emitSelection() {
	e := Event{Kind: SelectionChanged, PolygonID: s.selectedID}
	if s.selectedID != "" {
		if i := s.indexOf(s.selectedID); i >= 0 {
			p := s.polygons[i].Clone()
			e.Polygon = &p
		}
	}
	s.emit(e)
}

func (s *Store) emitChanged() {
	s.emit(Event{Kind: PolygonsChanged, Stats: s.stats})
}
