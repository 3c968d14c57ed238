package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type ActionLogRepository interface {
	// Добавить запись журнала. Записи не изменяются и не удаляются.
	Append(ctx context.Context, entry *model.GroupAbonementActionLog) error
	// Есть ли запись данного типа по отметке посещения.
	ExistsForAttendance(ctx context.Context, attendanceID int64, action model.ActionType) (bool, error)
	// Есть ли запись данного типа по абонементу с указанным reason.
	ExistsForAbonementReason(ctx context.Context, abonementID int64, action model.ActionType, reason string) (bool, error)
	// Журнал абонемента, от старых к новым.
	ListByAbonement(ctx context.Context, abonementID int64) ([]model.GroupAbonementActionLog, error)
	// Журнал по отметке посещения.
	ListByAttendance(ctx context.Context, attendanceID int64) ([]model.GroupAbonementActionLog, error)
}

type GormActionLogRepository struct {
	db *gorm.DB
}

func NewGormActionLogRepository(db *gorm.DB) *GormActionLogRepository {
	return &GormActionLogRepository{db: db}
}

func (r *GormActionLogRepository) Append(ctx context.Context, entry *model.GroupAbonementActionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormActionLogRepository) ExistsForAttendance(
	ctx context.Context,
	attendanceID int64,
	action model.ActionType,
) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.GroupAbonementActionLog{}).
		Where("attendance_id = ? AND action_type = ?", attendanceID, action).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormActionLogRepository) ExistsForAbonementReason(
	ctx context.Context,
	abonementID int64,
	action model.ActionType,
	reason string,
) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.GroupAbonementActionLog{}).
		Where("abonement_id = ? AND action_type = ? AND reason = ?", abonementID, action, reason).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormActionLogRepository) ListByAbonement(ctx context.Context, abonementID int64) ([]model.GroupAbonementActionLog, error) {
	var out []model.GroupAbonementActionLog
	err := r.db.WithContext(ctx).
		Where("abonement_id = ?", abonementID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormActionLogRepository) ListByAttendance(ctx context.Context, attendanceID int64) ([]model.GroupAbonementActionLog, error) {
	var out []model.GroupAbonementActionLog
	err := r.db.WithContext(ctx).
		Where("attendance_id = ?", attendanceID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
