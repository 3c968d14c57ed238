package ledger

import (
	"fmt"

	"github.com/Leganyst/dance-studio/internal/model"
)

// Actor описывает, кто выполнил операцию: сотрудник или система.
// Нулевое значение: система.
type Actor struct {
	staffID int64
	isStaff bool
}

func StaffActor(staffID int64) Actor {
	return Actor{staffID: staffID, isStaff: true}
}

func SystemActor() Actor {
	return Actor{}
}

func (a Actor) IsStaff() bool { return a.isStaff }

// StaffID возвращает id сотрудника, если операцию выполнил сотрудник.
func (a Actor) StaffID() (int64, bool) {
	return a.staffID, a.isStaff
}

func (a Actor) Type() model.ActorType {
	if a.isStaff {
		return model.ActorTypeStaff
	}
	return model.ActorTypeSystem
}

// columns: значения для actor_type/actor_id журнала.
func (a Actor) columns() (model.ActorType, *int64) {
	if !a.isStaff {
		return model.ActorTypeSystem, nil
	}
	id := a.staffID
	return model.ActorTypeStaff, &id
}

func (a Actor) String() string {
	if a.isStaff {
		return fmt.Sprintf("staff:%d", a.staffID)
	}
	return "system"
}
