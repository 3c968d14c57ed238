package model

import "time"

// users — клиенты студии, идентифицируются по Telegram ID.
type User struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	TelegramID   int64  `gorm:"not null;uniqueIndex"`
	Username     string `gorm:"type:varchar(64)"`
	DisplayName  string `gorm:"type:varchar(255)"`
	ContactPhone string `gorm:"type:varchar(32)"`

	Note string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
