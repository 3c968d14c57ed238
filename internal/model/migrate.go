package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей ядра абонементов.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Staff{},
		&Direction{},
		&Group{},
		&Schedule{},
		&GroupAbonement{},
		&GroupAbonementActionLog{},
		&Attendance{},
		&Setting{},
		&SettingChange{},
	)
}
