package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

// ErrInsufficientCredits: на абонементе нет кредитов для списания.
var ErrInsufficientCredits = errors.New("abonements: insufficient credits")

type AbonementRepository interface {
	// Создать абонемент.
	Create(ctx context.Context, a *model.GroupAbonement) error
	// Получить абонемент по ID.
	GetByID(ctx context.Context, id int64) (*model.GroupAbonement, error)
	// Абонементы пользователя по группе, опционально с фильтром по статусам.
	ListByUserGroup(ctx context.Context, userID, groupID int64, statuses ...model.AbonementStatus) ([]model.GroupAbonement, error)
	// Все абонементы пользователя.
	ListByUser(ctx context.Context, userID int64) ([]model.GroupAbonement, error)
	// Пробные абонементы пользователя в любом статусе.
	ListTrialByUser(ctx context.Context, userID int64) ([]model.GroupAbonement, error)
	// Активные абонементы группы.
	ListActiveByGroup(ctx context.Context, groupID int64) ([]model.GroupAbonement, error)
	// Абонементы одной покупки.
	ListByBundle(ctx context.Context, bundleID string) ([]model.GroupAbonement, error)
	// Активные абонементы, срок которых истёк к моменту now.
	ListOverdue(ctx context.Context, now time.Time) ([]model.GroupAbonement, error)
	// Списать один кредит; ErrInsufficientCredits, если списывать нечего.
	DebitCredit(ctx context.Context, id int64) error
	// Начислить n кредитов.
	AddCredits(ctx context.Context, id int64, n int) error
	UpdateValidTo(ctx context.Context, id int64, validTo time.Time) error
	UpdateStatus(ctx context.Context, id int64, status model.AbonementStatus) error
}

// Реализация на GORM.
type GormAbonementRepository struct {
	db *gorm.DB
}

func NewGormAbonementRepository(db *gorm.DB) *GormAbonementRepository {
	return &GormAbonementRepository{db: db}
}

func (r *GormAbonementRepository) Create(ctx context.Context, a *model.GroupAbonement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *GormAbonementRepository) GetByID(ctx context.Context, id int64) (*model.GroupAbonement, error) {
	var a model.GroupAbonement
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormAbonementRepository) ListByUserGroup(
	ctx context.Context,
	userID, groupID int64,
	statuses ...model.AbonementStatus,
) ([]model.GroupAbonement, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var out []model.GroupAbonement
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormAbonementRepository) ListByUser(ctx context.Context, userID int64) ([]model.GroupAbonement, error) {
	var out []model.GroupAbonement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormAbonementRepository) ListTrialByUser(ctx context.Context, userID int64) ([]model.GroupAbonement, error) {
	var out []model.GroupAbonement
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND abonement_type = ?", userID, model.AbonementTypeTrial).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormAbonementRepository) ListActiveByGroup(ctx context.Context, groupID int64) ([]model.GroupAbonement, error) {
	var out []model.GroupAbonement
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, model.AbonementStatusActive).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormAbonementRepository) ListByBundle(ctx context.Context, bundleID string) ([]model.GroupAbonement, error) {
	var out []model.GroupAbonement
	err := r.db.WithContext(ctx).
		Where("bundle_id = ?", bundleID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormAbonementRepository) ListOverdue(ctx context.Context, now time.Time) ([]model.GroupAbonement, error) {
	var out []model.GroupAbonement
	err := r.db.WithContext(ctx).
		Where("status = ?", model.AbonementStatusActive).
		Where("valid_to IS NOT NULL AND valid_to < ?", now.UTC()).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormAbonementRepository) DebitCredit(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).
		Model(&model.GroupAbonement{}).
		Where("id = ? AND balance_credits > 0", id).
		Update("balance_credits", gorm.Expr("balance_credits - 1"))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		// либо не нашли абонемент, либо кредитов не осталось
		return ErrInsufficientCredits
	}
	return nil
}

func (r *GormAbonementRepository) AddCredits(ctx context.Context, id int64, n int) error {
	if n < 0 {
		return errors.New("abonements: negative credits top-up")
	}
	tx := r.db.WithContext(ctx).
		Model(&model.GroupAbonement{}).
		Where("id = ?", id).
		Update("balance_credits", gorm.Expr("balance_credits + ?", n))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormAbonementRepository) UpdateValidTo(ctx context.Context, id int64, validTo time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.GroupAbonement{}).
		Where("id = ?", id).
		Update("valid_to", validTo.UTC()).
		Error
}

func (r *GormAbonementRepository) UpdateStatus(ctx context.Context, id int64, status model.AbonementStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.GroupAbonement{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}
