package polygonstore

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Gateway is the remote store the collection is synchronised with.
type Gateway interface {
	ListPolygons(ctx context.Context, b *Bounds) ([]Polygon, error)
	ExportGeoJSON(ctx context.Context) ([]byte, error)
	ImportGeoJSON(ctx context.Context, data []byte) (ImportReport, error)
}

type ImportReport struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// Sync replaces the collection with the remote polygons, optionally limited
// to b. A second Sync while one is running fails with ErrOperationInProgress.
func (s *Store) Sync(ctx context.Context, b *Bounds) (int, error) {
	if s.gateway == nil {
		return 0, ErrNoGateway
	}
	if !s.syncing.CompareAndSwap(false, true) {
		return 0, ErrOperationInProgress
	}
	defer s.syncing.Store(false)

	start := time.Now()
	list, err := s.gateway.ListPolygons(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("syncing polygons: %w", err)
	}
	s.LoadPolygons(list)
	s.lastSync = s.now()
	log.Printf("[polygonstore] synced %d polygons in %dms", len(list), time.Since(start).Milliseconds())
	return len(list), nil
}

func (s *Store) IsSyncing() bool { return s.syncing.Load() }
func (s *Store) LastSync() time.Time { return s.lastSync }

// Export returns the remote collection as a GeoJSON FeatureCollection.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	if s.gateway == nil {
		return nil, ErrNoGateway
	}
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, ErrOperationInProgress
	}
	defer s.exporting.Store(false)

	data, err := s.gateway.ExportGeoJSON(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting polygons: %w", err)
	}
	return data, nil
}

func (s *Store) IsExporting() bool { return s.exporting.Load() }

// Import sends a FeatureCollection to the remote store and then resyncs. A
// partial import is reported, not treated as an error.
func (s *Store) Import(ctx context.Context, data []byte) (ImportReport, error) {
	if s.gateway == nil {
		return ImportReport{}, ErrNoGateway
	}
	if !s.importing.CompareAndSwap(false, true) {
		return ImportReport{}, ErrOperationInProgress
	}
	defer s.importing.Store(false)

	report, err := s.gateway.ImportGeoJSON(ctx, data)
	if err != nil {
		return ImportReport{}, fmt.Errorf("importing polygons: %w", err)
	}
	if len(report.Errors) > 0 {
		log.Printf("[polygonstore] import: %d imported, %d failed", report.Imported, len(report.Errors))
	}
	if report.Imported > 0 {
		if _, err := s.Sync(ctx, s.loadedBoundsPtr()); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Store) loadedBoundsPtr() *Bounds {
	if s.loadedBounds == nil {
		return nil
	}
	b := *s.loadedBounds
	return &b
}
