package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type GroupRepository interface {
	// Группа вместе с направлением.
	GetByID(ctx context.Context, id int64) (*model.Group, error)
	// Группы по списку ID вместе с направлениями; порядок не гарантирован.
	ListByIDs(ctx context.Context, ids []int64) ([]model.Group, error)
}

type GormGroupRepository struct {
	db *gorm.DB
}

func NewGormGroupRepository(db *gorm.DB) *GormGroupRepository {
	return &GormGroupRepository{db: db}
}

func (r *GormGroupRepository) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	var g model.Group
	if err := r.db.WithContext(ctx).Preload("Direction").First(&g, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GormGroupRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Group, error) {
	if len(ids) == 0 {
		return []model.Group{}, nil
	}
	var groups []model.Group
	err := r.db.WithContext(ctx).
		Preload("Direction").
		Where("id IN ?", ids).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}
