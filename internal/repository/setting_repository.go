package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type SettingRepository interface {
	// Получить настройку по ключу.
	Get(ctx context.Context, key string) (*model.Setting, error)
	// Все сохранённые настройки.
	List(ctx context.Context) ([]model.Setting, error)
	Create(ctx context.Context, s *model.Setting) error
	Save(ctx context.Context, s *model.Setting) error
	// Добавить запись аудита изменения.
	AppendChange(ctx context.Context, c *model.SettingChange) error
	// История изменений по ключу, от новых к старым.
	ListChanges(ctx context.Context, key string) ([]model.SettingChange, error)
}

type GormSettingRepository struct {
	db *gorm.DB
}

func NewGormSettingRepository(db *gorm.DB) *GormSettingRepository {
	return &GormSettingRepository{db: db}
}

func (r *GormSettingRepository) Get(ctx context.Context, key string) (*model.Setting, error) {
	var s model.Setting
	// колонка называется setting_key (см. gorm-тег в model.Setting)
	if err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormSettingRepository) List(ctx context.Context) ([]model.Setting, error) {
	var out []model.Setting
	if err := r.db.WithContext(ctx).Order("setting_key ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormSettingRepository) Create(ctx context.Context, s *model.Setting) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *GormSettingRepository) Save(ctx context.Context, s *model.Setting) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *GormSettingRepository) AppendChange(ctx context.Context, c *model.SettingChange) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormSettingRepository) ListChanges(ctx context.Context, key string) ([]model.SettingChange, error) {
	var out []model.SettingChange
	err := r.db.WithContext(ctx).
		Where("setting_key = ?", key).
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
