package polygons

import (
	"context"
	"errors"
	"fmt"

	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/polygonstore"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ListFilter narrows an owner's polygons. A nil Bounds means no spatial
// filter; States match any of the given values.
type ListFilter struct {
	Bounds *polygonstore.Bounds
	States []string
}

// Store is the persistence the handlers need.
type Store interface {
	List(ctx context.Context, userID string, f ListFilter) ([]Polygon, error)
	Find(ctx context.Context, id string) (Polygon, error)
	Create(ctx context.Context, p *Polygon) error
	Update(ctx context.Context, p *Polygon, changes map[string]interface{}) error
	Delete(ctx context.Context, p *Polygon) error
	ObjectIDExists(ctx context.Context, objectID int64) (bool, error)
	MaxObjectID(ctx context.Context, userID string) (int64, error)
}

// ErrNotFound is returned by Find when no row matches.
var ErrNotFound = errors.New("polygon not found")

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) *GormStore {
	return &GormStore{db: d}
}

func (s *GormStore) List(ctx context.Context, userID string, f ListFilter) ([]Polygon, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)

	if b := f.Bounds; b != nil {
		q = q.Where("latitude BETWEEN ? AND ?", b.South, b.North).
			Where("longitude BETWEEN ? AND ?", b.West, b.East)
	}

	switch len(f.States) {
	case 0:
	case 1:
		q = q.Where("state = ?", f.States[0])
	default:
		q = q.Where("state = ANY(?)", pq.Array(f.States))
	}

	var out []Polygon
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list polygons: %w", err)
	}
	return out, nil
}

func (s *GormStore) Find(ctx context.Context, id string) (Polygon, error) {
	var p Polygon
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if db.IsNotFound(err) {
		return Polygon{}, ErrNotFound
	}
	return p, err
}

func (s *GormStore) Create(ctx context.Context, p *Polygon) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) Update(ctx context.Context, p *Polygon, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	tx := s.db.WithContext(ctx)
	if err := tx.Model(p).Updates(changes).Error; err != nil {
		return err
	}
	return tx.First(p, "id = ?", p.ID).Error
}

func (s *GormStore) Delete(ctx context.Context, p *Polygon) error {
	return s.db.WithContext(ctx).Delete(p).Error
}

func (s *GormStore) ObjectIDExists(ctx context.Context, objectID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Polygon{}).Where("object_id = ?", objectID).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) MaxObjectID(ctx context.Context, userID string) (int64, error) {
	var max int64
	err := s.db.WithContext(ctx).Model(&Polygon{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(object_id), 0)").
		Scan(&max).Error
	return max, err
}
