package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Тип записи журнала абонемента.
type ActionType string

const (
	ActionDebitAttendance       ActionType = "debit_attendance"
	ActionSickLeaveRefund       ActionType = "sick_leave_refund"
	ActionSickLeaveExtend       ActionType = "sick_leave_extend"
	ActionManualExtendAbonement ActionType = "manual_extend_abonement"
	ActionAbonementCreated      ActionType = "abonement_created"
	ActionPaymentConfirmed      ActionType = "payment_confirmed"
	ActionAbonementExpired      ActionType = "abonement_expired"
)

type ActorType string

const (
	ActorTypeStaff  ActorType = "staff"
	ActorTypeSystem ActorType = "system"
)

// group_abonement_action_logs — неизменяемый журнал всех изменений баланса.
type GroupAbonementActionLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	AbonementID int64      `gorm:"not null;index"`
	ActionType  ActionType `gorm:"type:varchar(64);not null;index"`

	CreditsDelta int    `gorm:"not null;default:0"`
	Reason       string `gorm:"type:varchar(255);index"`
	Note         string `gorm:"type:text"`

	AttendanceID *int64  `gorm:"index"`
	PaymentID    *string `gorm:"type:varchar(128)"`

	ActorType ActorType `gorm:"type:varchar(16);not null"`
	ActorID   *int64

	CreatedAt time.Time `gorm:"not null;index"`

	Payload datatypes.JSON

	Abonement *GroupAbonement `gorm:"foreignKey:AbonementID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (l *GroupAbonementActionLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
