package model

import "time"

type ScheduleObjectType string

const (
	ScheduleObjectGroup      ScheduleObjectType = "group"
	ScheduleObjectIndividual ScheduleObjectType = "individual"
	ScheduleObjectRental     ScheduleObjectType = "rental"
)

type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// schedules — конкретное занятие в расписании.
type Schedule struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	ObjectType ScheduleObjectType `gorm:"type:varchar(16);not null;index"`

	// Для групповых занятий.
	GroupID *int64 `gorm:"index"`
	// Для индивидуальных — единственный ученик.
	StudentUserID *int64 `gorm:"index"`

	StartsAt time.Time `gorm:"not null;index"`
	EndsAt   time.Time `gorm:"not null"`

	Status ScheduleStatus `gorm:"type:varchar(16);not null;default:'scheduled';index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Group *Group `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}
