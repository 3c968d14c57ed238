package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type AttendanceRepository interface {
	// Найти отметку по ID.
	GetByID(ctx context.Context, id int64) (*model.Attendance, error)
	// Найти отметку по паре (занятие, пользователь).
	GetByScheduleUser(ctx context.Context, scheduleID, userID int64) (*model.Attendance, error)
	// Отметки по занятию.
	ListBySchedule(ctx context.Context, scheduleID int64) ([]model.Attendance, error)
	// Создать отметку.
	Create(ctx context.Context, a *model.Attendance) error
	// Обновить статус/абонемент/комментарий отметки.
	Update(ctx context.Context, a *model.Attendance) error
	// Перевести отметку в новое состояние учёта.
	UpdateLedgerState(ctx context.Context, id int64, state model.LedgerState) error
}

type GormAttendanceRepository struct {
	db *gorm.DB
}

func NewGormAttendanceRepository(db *gorm.DB) *GormAttendanceRepository {
	return &GormAttendanceRepository{db: db}
}

func (r *GormAttendanceRepository) GetByID(ctx context.Context, id int64) (*model.Attendance, error) {
	var a model.Attendance
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAttendanceRepository) GetByScheduleUser(ctx context.Context, scheduleID, userID int64) (*model.Attendance, error) {
	var a model.Attendance
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND user_id = ?", scheduleID, userID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAttendanceRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]model.Attendance, error) {
	var out []model.Attendance
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormAttendanceRepository) Create(ctx context.Context, a *model.Attendance) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GormAttendanceRepository) Update(ctx context.Context, a *model.Attendance) error {
	update := map[string]any{
		"status":             a.Status,
		"abonement_id":       a.AbonementID,
		"marked_at":          a.MarkedAt.UTC(),
		"marked_by_staff_id": a.MarkedByStaffID,
		"comment":            a.Comment,
	}
	return r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("id = ?", a.ID).
		Updates(update).
		Error
}

func (r *GormAttendanceRepository) UpdateLedgerState(ctx context.Context, id int64, state model.LedgerState) error {
	return r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("id = ?", id).
		Update("ledger_state", state).
		Error
}
