package model

import "time"

type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
	AttendanceStatusSick    AttendanceStatus = "sick"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusSick:
		return true
	default:
		return false
	}
}

// Состояние отметки с точки зрения баланса абонемента.
type LedgerState string

const (
	LedgerStateUnmarked     LedgerState = "unmarked"
	LedgerStateMarked       LedgerState = "marked"
	LedgerStateDebited      LedgerState = "debited"
	LedgerStateSickRefunded LedgerState = "sick_refunded"
)

// attendances — одна отметка на пару (занятие, пользователь).
type Attendance struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	ScheduleID int64 `gorm:"not null;uniqueIndex:ux_attendance_schedule_user"`
	UserID     int64 `gorm:"not null;uniqueIndex:ux_attendance_schedule_user;index"`

	Status AttendanceStatus `gorm:"type:varchar(16);not null"`

	// Абонемент, с которого списывается занятие.
	AbonementID *int64 `gorm:"index"`

	LedgerState LedgerState `gorm:"type:varchar(32);not null;default:'marked'"`

	MarkedAt        time.Time `gorm:"not null"`
	MarkedByStaffID *int64
	Comment         string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Schedule *Schedule `gorm:"foreignKey:ScheduleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}
