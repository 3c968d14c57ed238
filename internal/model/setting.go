package model

import (
	"time"

	"gorm.io/datatypes"
)

type SettingValueType string

const (
	SettingTypeBool   SettingValueType = "bool"
	SettingTypeInt    SettingValueType = "int"
	SettingTypeFloat  SettingValueType = "float"
	SettingTypeString SettingValueType = "string"
	SettingTypeJSON   SettingValueType = "json"
)

// settings — типизированная конфигурация студии (цены, матрицы, лимиты).
type Setting struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	Key       string           `gorm:"column:setting_key;type:varchar(128);not null;uniqueIndex"`
	ValueJSON datatypes.JSON   `gorm:"not null"`
	ValueType SettingValueType `gorm:"type:varchar(16);not null"`

	UpdatedByStaffID *int64

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// setting_changes — аудит изменений настроек, пишется только при реальном изменении.
type SettingChange struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	SettingKey   string         `gorm:"type:varchar(128);not null;index"`
	OldValueJSON datatypes.JSON
	NewValueJSON datatypes.JSON `gorm:"not null"`

	ChangedByStaffID *int64
	Reason           string `gorm:"type:text"`
	Source           string `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"not null;index"`
}
