package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type StaffRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Staff, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.Staff, error)
}

type GormStaffRepository struct {
	db *gorm.DB
}

func NewGormStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

func (r *GormStaffRepository) GetByID(ctx context.Context, id int64) (*model.Staff, error) {
	var s model.Staff
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormStaffRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.Staff, error) {
	var s model.Staff
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
