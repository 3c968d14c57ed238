package model

import "time"

type AbonementType string

const (
	AbonementTypeSingle AbonementType = "single"
	AbonementTypeMulti  AbonementType = "multi"
	AbonementTypeTrial  AbonementType = "trial"
)

func (t AbonementType) Valid() bool {
	switch t {
	case AbonementTypeSingle, AbonementTypeMulti, AbonementTypeTrial:
		return true
	default:
		return false
	}
}

type AbonementStatus string

const (
	AbonementStatusPendingActivation AbonementStatus = "pending_activation"
	AbonementStatusActive            AbonementStatus = "active"
	AbonementStatusExpired           AbonementStatus = "expired"
)

// group_abonements — купленный пакет занятий, привязанный к одной группе.
// Абонементы одной покупки (бандл) делят BundleID.
type GroupAbonement struct {
	ID int64 `gorm:"primaryKey;autoIncrement"`

	UserID  int64 `gorm:"not null;index"`
	GroupID int64 `gorm:"not null;index"`

	AbonementType AbonementType `gorm:"type:varchar(16);not null;index"`

	BundleID   string `gorm:"type:varchar(36);index"`
	BundleSize int    `gorm:"not null;default:1"`

	// Никогда не уходит в минус.
	BalanceCredits int `gorm:"not null;default:0"`

	Status AbonementStatus `gorm:"type:varchar(32);not null;default:'pending_activation';index"`

	ValidFrom *time.Time
	ValidTo   *time.Time

	AmountRub int    `gorm:"not null;default:0"`
	Currency  string `gorm:"type:varchar(8);not null;default:'RUB'"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	User  *User  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Group *Group `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// Covers — попадает ли момент at в окно действия; nil-границы открыты.
func (a *GroupAbonement) Covers(at time.Time) bool {
	if a.ValidFrom != nil && at.Before(*a.ValidFrom) {
		return false
	}
	if a.ValidTo != nil && at.After(*a.ValidTo) {
		return false
	}
	return true
}
