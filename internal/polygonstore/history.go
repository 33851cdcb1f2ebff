package polygonstore

import "time"

const maxHistory = 50

type Operation string

const (
	OpAdd        Operation = "add"
	OpUpdate     Operation = "update"
	OpRemove     Operation = "remove"
	OpBulkUpdate Operation = "bulkUpdate"
	OpBulkDelete Operation = "bulkDelete"
)

// HistoryEntry records one mutation. Snapshot holds the prior state for
// updates and the removed records for deletes.
type HistoryEntry struct {
	Operation  Operation `json:"operation"`
	PolygonIDs []string  `json:"polygonIds"`
	Snapshot   []Polygon `json:"snapshot,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s *Store) record(op Operation, ids []string, snapshot ...Polygon) {
	entry := HistoryEntry{
		Operation:  op,
		PolygonIDs: ids,
		Snapshot:   snapshot,
		Timestamp:  s.now(),
	}
	s.history = append([]HistoryEntry{entry}, s.history...)
	if len(s.history) > maxHistory {
		s.history = s.history[:maxHistory]
	}
}

// History returns the log, most recent first.
func (s *Store) History() []HistoryEntry {
	return append([]HistoryEntry(nil), s.history...)
}

func (s *Store) LastOperation() (HistoryEntry, bool) {
	if len(s.history) == 0 {
		return HistoryEntry{}, false
	}
	return s.history[0], true
}
