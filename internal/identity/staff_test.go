package identity

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type mockStaffStore struct {
	staff *model.Staff
	err   error
}

func (m *mockStaffStore) FindByTelegramID(_ context.Context, telegramID int64) (*model.Staff, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.staff == nil || m.staff.TelegramID != telegramID {
		return nil, gorm.ErrRecordNotFound
	}
	return m.staff, nil
}

func TestValidateStaff_Success(t *testing.T) {
	store := &mockStaffStore{
		staff: &model.Staff{ID: 1, TelegramID: 123, Position: model.StaffPositionAdmin, IsActive: true},
	}

	s, err := ValidateStaff(context.Background(), store, 123)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.ID != 1 || s.TelegramID != 123 {
		t.Fatalf("unexpected validated staff: %+v", s)
	}
	if !s.CanManageSettings() {
		t.Fatalf("expected admin to manage settings")
	}
}

func TestValidateStaff_InvalidID(t *testing.T) {
	_, err := ValidateStaff(context.Background(), &mockStaffStore{}, 0)
	if err != ErrInvalidTelegramID {
		t.Fatalf("expected ErrInvalidTelegramID, got %v", err)
	}
}

func TestValidateStaff_NotFound(t *testing.T) {
	_, err := ValidateStaff(context.Background(), &mockStaffStore{}, 123)
	if err != ErrStaffNotFound {
		t.Fatalf("expected ErrStaffNotFound, got %v", err)
	}
}

func TestValidateStaff_Inactive(t *testing.T) {
	store := &mockStaffStore{
		staff: &model.Staff{ID: 2, TelegramID: 123, Position: model.StaffPositionTeacher, IsActive: false},
	}
	_, err := ValidateStaff(context.Background(), store, 123)
	if err != ErrStaffInactive {
		t.Fatalf("expected ErrStaffInactive, got %v", err)
	}
	if !IsDenied(err) {
		t.Fatalf("expected inactive staff to be a denial")
	}
}

func TestValidateStaff_StoreFailure(t *testing.T) {
	boom := errors.New("db is down")
	_, err := ValidateStaff(context.Background(), &mockStaffStore{err: boom}, 123)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if IsDenied(err) {
		t.Fatalf("store failure must not look like a denial")
	}
}

func TestCanManageSettings_Teacher(t *testing.T) {
	s := &ValidatedStaff{Position: model.StaffPositionTeacher}
	if s.CanManageSettings() {
		t.Fatalf("teacher must not manage settings")
	}
}
