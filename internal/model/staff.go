package model

import "time"

type StaffPosition string

const (
	StaffPositionOwner   StaffPosition = "owner"
	StaffPositionAdmin   StaffPosition = "admin"
	StaffPositionTeacher StaffPosition = "teacher"
)

// Staff — сотрудник студии (владелец, администратор, преподаватель).
// Используется для атрибуции изменений баланса и настроек.
type Staff struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	TelegramID  int64         `gorm:"not null;uniqueIndex"`
	DisplayName string        `gorm:"type:varchar(255);not null"`
	Position    StaffPosition `gorm:"type:varchar(32);not null;default:'teacher'"`
	IsActive    bool          `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Staff) TableName() string { return "staff" }
