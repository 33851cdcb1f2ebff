package forestlayers

import (
	"context"
	"errors"
	"fmt"

	"github.com/forestlens/mspo-maps/internal/db"
	"gorm.io/gorm"
)

type Filter struct {
	Type        string
	VisibleOnly bool
}

type Store interface {
	List(ctx context.Context, userID string, f Filter) ([]ForestLayer, error)
	Find(ctx context.Context, id string) (ForestLayer, error)
	Create(ctx context.Context, l *ForestLayer) error
	Update(ctx context.Context, l *ForestLayer, changes map[string]interface{}) error
	Delete(ctx context.Context, l *ForestLayer) error
}

var ErrNotFound = errors.New("forest layer not found")

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(d *gorm.DB) *GormStore {
	return &GormStore{db: d}
}

func (s *GormStore) List(ctx context.Context, userID string, f Filter) ([]ForestLayer, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.VisibleOnly {
		q = q.Where("visible = ?", true)
	}

	var out []ForestLayer
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list forest layers: %w", err)
	}
	return out, nil
}

func (s *GormStore) Find(ctx context.Context, id string) (ForestLayer, error) {
	var l ForestLayer
	err := s.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if db.IsNotFound(err) {
		return ForestLayer{}, ErrNotFound
	}
	return l, err
}

// Create writes every column, so a false Visible is stored rather than
// replaced by the column default.
func (s *GormStore) Create(ctx context.Context, l *ForestLayer) error {
	return s.db.WithContext(ctx).Select("*").Create(l).Error
}

func (s *GormStore) Update(ctx context.Context, l *ForestLayer, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}
	tx := s.db.WithContext(ctx)
	if err := tx.Model(l).Updates(changes).Error; err != nil {
		return err
	}
	return tx.First(l, "id = ?", l.ID).Error
}

func (s *GormStore) Delete(ctx context.Context, l *ForestLayer) error {
	return s.db.WithContext(ctx).Delete(l).Error
}
