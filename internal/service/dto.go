package service

import (
	"encoding/json"
	"time"

	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/settings"
)

// Ответы сервиса в виде JSON-совместимых структур.
// Время отдаётся в часовом поясе студии в RFC 3339.

type userDTO struct {
	ID           int64  `json:"id"`
	TelegramID   int64  `json:"telegram_id"`
	DisplayName  string `json:"display_name"`
	Username     string `json:"username"`
	ContactPhone string `json:"contact_phone"`
}

func mapUser(u *model.User) userDTO {
	return userDTO{
		ID:           u.ID,
		TelegramID:   u.TelegramID,
		DisplayName:  u.DisplayName,
		Username:     u.Username,
		ContactPhone: u.ContactPhone,
	}
}

type abonementDTO struct {
	ID             int64   `json:"id"`
	UserID         int64   `json:"user_id"`
	GroupID        int64   `json:"group_id"`
	AbonementType  string  `json:"abonement_type"`
	BundleID       string  `json:"bundle_id"`
	BundleSize     int     `json:"bundle_size"`
	BalanceCredits int     `json:"balance_credits"`
	Status         string  `json:"status"`
	ValidFrom      *string `json:"valid_from"`
	ValidTo        *string `json:"valid_to"`
	Amount         int     `json:"amount"`
	Currency       string  `json:"currency"`
}

func mapAbonement(a *model.GroupAbonement, loc *time.Location) abonementDTO {
	return abonementDTO{
		ID:             a.ID,
		UserID:         a.UserID,
		GroupID:        a.GroupID,
		AbonementType:  string(a.AbonementType),
		BundleID:       a.BundleID,
		BundleSize:     a.BundleSize,
		BalanceCredits: a.BalanceCredits,
		Status:         string(a.Status),
		ValidFrom:      formatTime(a.ValidFrom, loc),
		ValidTo:        formatTime(a.ValidTo, loc),
		Amount:         a.AmountRub,
		Currency:       a.Currency,
	}
}

func mapAbonements(abs []model.GroupAbonement, loc *time.Location) []abonementDTO {
	out := make([]abonementDTO, 0, len(abs))
	for i := range abs {
		out = append(out, mapAbonement(&abs[i], loc))
	}
	return out
}

type attendanceDTO struct {
	ID              int64  `json:"id"`
	ScheduleID      int64  `json:"schedule_id"`
	UserID          int64  `json:"user_id"`
	Status          string `json:"status"`
	AbonementID     *int64 `json:"abonement_id"`
	LedgerState     string `json:"ledger_state"`
	MarkedAt        string `json:"marked_at"`
	MarkedByStaffID *int64 `json:"marked_by_staff_id"`
	Comment         string `json:"comment"`
}

func mapAttendance(a *model.Attendance, loc *time.Location) attendanceDTO {
	return attendanceDTO{
		ID:              a.ID,
		ScheduleID:      a.ScheduleID,
		UserID:          a.UserID,
		Status:          string(a.Status),
		AbonementID:     a.AbonementID,
		LedgerState:     string(a.LedgerState),
		MarkedAt:        a.MarkedAt.In(loc).Format(time.RFC3339),
		MarkedByStaffID: a.MarkedByStaffID,
		Comment:         a.Comment,
	}
}

type actionLogDTO struct {
	ID           string          `json:"id"`
	AbonementID  int64           `json:"abonement_id"`
	ActionType   string          `json:"action_type"`
	CreditsDelta int             `json:"credits_delta"`
	Reason       string          `json:"reason"`
	Note         string          `json:"note"`
	AttendanceID *int64          `json:"attendance_id"`
	PaymentID    *string         `json:"payment_id"`
	ActorType    string          `json:"actor_type"`
	ActorID      *int64          `json:"actor_id"`
	CreatedAt    string          `json:"created_at"`
	Payload      json.RawMessage `json:"payload"`
}

func mapActionLog(e *model.GroupAbonementActionLog, loc *time.Location) actionLogDTO {
	return actionLogDTO{
		ID:           e.ID.String(),
		AbonementID:  e.AbonementID,
		ActionType:   string(e.ActionType),
		CreditsDelta: e.CreditsDelta,
		Reason:       e.Reason,
		Note:         e.Note,
		AttendanceID: e.AttendanceID,
		PaymentID:    e.PaymentID,
		ActorType:    string(e.ActorType),
		ActorID:      e.ActorID,
		CreatedAt:    e.CreatedAt.In(loc).Format(time.RFC3339),
		Payload:      rawOrNull(e.Payload),
	}
}

type settingChangeDTO struct {
	OldValue json.RawMessage `json:"old_value"`
	NewValue json.RawMessage `json:"new_value"`
	StaffID  *int64          `json:"staff_id"`
	Reason   string          `json:"reason"`
	Source   string          `json:"source"`
	At       string          `json:"at"`
}

func mapSettingChange(c *model.SettingChange, loc *time.Location) settingChangeDTO {
	return settingChangeDTO{
		OldValue: rawOrNull(settings.StoredValue(c.OldValueJSON)),
		NewValue: rawOrNull(settings.StoredValue(c.NewValueJSON)),
		StaffID:  c.ChangedByStaffID,
		Reason:   c.Reason,
		Source:   c.Source,
		At:       c.CreatedAt.In(loc).Format(time.RFC3339),
	}
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

func formatTime(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(time.RFC3339Nano)
	return &s
}

func formatIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
