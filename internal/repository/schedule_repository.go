package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type ScheduleRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Schedule, error)
	// NextForGroup: ближайшее неотменённое занятие группы, начинающееся не раньше from.
	NextForGroup(ctx context.Context, groupID int64, from time.Time) (*model.Schedule, error)
	// Неотменённые групповые занятия указанных групп в интервале [from, to).
	ListGroupSessionsInRange(ctx context.Context, groupIDs []int64, from, to time.Time) ([]model.Schedule, error)
}

type GormScheduleRepository struct {
	db *gorm.DB
}

func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

func (r *GormScheduleRepository) GetByID(ctx context.Context, id int64) (*model.Schedule, error) {
	var s model.Schedule
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormScheduleRepository) NextForGroup(ctx context.Context, groupID int64, from time.Time) (*model.Schedule, error) {
	var s model.Schedule
	err := r.db.WithContext(ctx).
		Where("object_type = ? AND group_id = ?", model.ScheduleObjectGroup, groupID).
		Where("status <> ?", model.ScheduleStatusCancelled).
		Where("starts_at >= ?", from.UTC()).
		Order("starts_at ASC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormScheduleRepository) ListGroupSessionsInRange(
	ctx context.Context,
	groupIDs []int64,
	from, to time.Time,
) ([]model.Schedule, error) {
	if len(groupIDs) == 0 {
		return []model.Schedule{}, nil
	}
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("object_type = ? AND group_id IN ?", model.ScheduleObjectGroup, groupIDs).
		Where("status <> ?", model.ScheduleStatusCancelled).
		Where("starts_at >= ? AND starts_at < ?", from.UTC(), to.UTC()).
		Order("starts_at ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}
