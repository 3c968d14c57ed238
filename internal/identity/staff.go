package identity

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

// Ошибки проверки сотрудника.
var (
	ErrInvalidTelegramID = errors.New("invalid telegram id")
	ErrStaffNotFound     = errors.New("staff not found")
	ErrStaffInactive     = errors.New("staff is inactive")
	ErrForbidden         = errors.New("staff position is not allowed to do this")
)

// Источник данных о сотрудниках.
// В реале это репозиторий поверх БД, в тестах мок.
type StaffStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.Staff, error)
}

// Результат успешной проверки.
type ValidatedStaff struct {
	ID         int64
	TelegramID int64
	Position   model.StaffPosition
}

// CanManageSettings: менять настройки могут только владелец и администратор.
func (s *ValidatedStaff) CanManageSettings() bool {
	return s.Position == model.StaffPositionOwner || s.Position == model.StaffPositionAdmin
}

// ValidateStaff:
//   - проверяет корректность идентификатора;
//   - вытаскивает сотрудника из хранилища;
//   - проверяет, что он активен.
func ValidateStaff(
	ctx context.Context,
	store StaffStore,
	telegramID int64,
) (*ValidatedStaff, error) {
	if telegramID <= 0 {
		return nil, ErrInvalidTelegramID
	}

	s, err := store.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	if s == nil {
		return nil, ErrStaffNotFound
	}

	if !s.IsActive {
		return nil, ErrStaffInactive
	}

	return &ValidatedStaff{
		ID:         s.ID,
		TelegramID: s.TelegramID,
		Position:   s.Position,
	}, nil
}

// IsDenied: ошибка означает отказ в доступе, а не сбой хранилища.
func IsDenied(err error) bool {
	return errors.Is(err, ErrInvalidTelegramID) ||
		errors.Is(err, ErrStaffNotFound) ||
		errors.Is(err, ErrStaffInactive) ||
		errors.Is(err, ErrForbidden)
}
