package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

// Допустимые переходы состояния отметки.
// marked → sick_refunded нужен для старых отметок, у которых списание
// есть только в журнале, а ledger_state не проставлен.
var transitions = map[model.LedgerState][]model.LedgerState{
	model.LedgerStateUnmarked: {model.LedgerStateMarked},
	model.LedgerStateMarked:   {model.LedgerStateDebited, model.LedgerStateSickRefunded},
	model.LedgerStateDebited:  {model.LedgerStateSickRefunded},
}

func canTransition(from, to model.LedgerState) bool {
	return slices.Contains(transitions[from], to)
}

func (l *Ledger) transition(ctx context.Context, r repos, att *model.Attendance, to model.LedgerState) error {
	from := att.LedgerState
	if from == "" {
		from = model.LedgerStateMarked
	}
	if !canTransition(from, to) {
		return fmt.Errorf("attendance %d: illegal ledger transition %s → %s", att.ID, from, to)
	}
	if err := r.attendance.UpdateLedgerState(ctx, att.ID, to); err != nil {
		return fmt.Errorf("update attendance %d ledger state: %w", att.ID, err)
	}
	att.LedgerState = to
	return nil
}

// wasDebited: списывалось ли уже занятие за эту отметку.
func (l *Ledger) wasDebited(ctx context.Context, r repos, att *model.Attendance) (bool, error) {
	switch att.LedgerState {
	case model.LedgerStateDebited, model.LedgerStateSickRefunded:
		return true, nil
	}
	ok, err := r.logs.ExistsForAttendance(ctx, att.ID, model.ActionDebitAttendance)
	if err != nil {
		return false, fmt.Errorf("check debit log for attendance %d: %w", att.ID, err)
	}
	return ok, nil
}

// wasRefunded: возвращалось ли уже занятие по больничному.
func (l *Ledger) wasRefunded(ctx context.Context, r repos, att *model.Attendance) (bool, error) {
	if att.LedgerState == model.LedgerStateSickRefunded {
		return true, nil
	}
	ok, err := r.logs.ExistsForAttendance(ctx, att.ID, model.ActionSickLeaveRefund)
	if err != nil {
		return false, fmt.Errorf("check refund log for attendance %d: %w", att.ID, err)
	}
	return ok, nil
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
