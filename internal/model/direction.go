package model

import "time"

// DirectionType — верхнеуровневая категория занятий.
type DirectionType string

const (
	DirectionTypeDance DirectionType = "dance"
	DirectionTypeSport DirectionType = "sport"
)

func (t DirectionType) Valid() bool {
	return t == DirectionTypeDance || t == DirectionTypeSport
}

// directions
type Direction struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	Title         string        `gorm:"type:varchar(255);not null"`
	DirectionType DirectionType `gorm:"type:varchar(16);not null;index"`
	Description   string        `gorm:"type:text"`
	IsActive      bool          `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// groups — постоянная группа внутри направления.
type Group struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	DirectionID int64  `gorm:"not null;index"`
	Name        string `gorm:"type:varchar(255);not null"`

	// Сколько занятий в неделю; nil — не настроено.
	LessonsPerWeek *int `gorm:"type:integer"`
	Capacity       int  `gorm:"not null;default:0"`
	IsActive       bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Direction *Direction `gorm:"foreignKey:DirectionID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}
