package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/metrics"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/repository"
	"github.com/Leganyst/dance-studio/internal/settings"
)

// Исходы списания для метрик.
const (
	outcomeDebited      = "debited"
	outcomeSick         = "sick"
	outcomeAlready      = "already_debited"
	outcomeDisabled     = "disabled"
	outcomeNoAbonement  = "no_abonement"
	outcomeInsufficient = "insufficient_credits"
)

// DebitForAttendance списывает одно занятие за отметку посещения.
//
// true: отметка учтена (занятие списано сейчас или раньше, либо это "болел").
// false: списать не с чего (нет абонемента, нет кредитов, списания выключены);
// отметка при этом остаётся, ошибкой это не считается.
// Повторный вызов для той же отметки баланс не меняет.
func (l *Ledger) DebitForAttendance(ctx context.Context, db *gorm.DB, attendanceID int64, actor Actor) (bool, error) {
	r := reposFor(db)
	att, err := r.attendance.GetByID(ctx, attendanceID)
	if err != nil {
		return false, notFound(err, ErrAttendanceNotFound, "attendance %d", attendanceID)
	}
	return l.debit(ctx, r, att, actor)
}

func (l *Ledger) debit(ctx context.Context, r repos, att *model.Attendance, actor Actor) (bool, error) {
	log := l.logger.With(
		slog.Int64("attendance_id", att.ID),
		slog.String("actor", actor.String()),
	)

	if att.Status == model.AttendanceStatusSick {
		metrics.DebitsTotal.WithLabelValues(outcomeSick).Inc()
		return true, nil
	}

	done, err := l.wasDebited(ctx, r, att)
	if err != nil {
		return false, err
	}
	if done {
		metrics.DebitsTotal.WithLabelValues(outcomeAlready).Inc()
		log.DebugContext(ctx, "attendance already debited")
		return true, nil
	}

	enabled, err := l.store.Bool(ctx, r.db, settings.KeyAttendanceDebit)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", settings.KeyAttendanceDebit, err)
	}
	if !enabled {
		metrics.DebitsTotal.WithLabelValues(outcomeDisabled).Inc()
		log.InfoContext(ctx, "attendance debit is disabled by settings")
		return false, nil
	}

	if att.AbonementID == nil {
		metrics.DebitsTotal.WithLabelValues(outcomeNoAbonement).Inc()
		log.InfoContext(ctx, "attendance has no abonement to debit")
		return false, nil
	}

	ab, err := r.abonements.GetByID(ctx, *att.AbonementID)
	if err != nil {
		if isRecordNotFound(err) {
			metrics.DebitsTotal.WithLabelValues(outcomeNoAbonement).Inc()
			log.WarnContext(ctx, "attendance references missing abonement", slog.Int64("abonement_id", *att.AbonementID))
			return false, nil
		}
		return false, fmt.Errorf("load abonement %d: %w", *att.AbonementID, err)
	}
	if ab.BalanceCredits <= 0 {
		metrics.DebitsTotal.WithLabelValues(outcomeInsufficient).Inc()
		log.InfoContext(ctx, "no credits left on abonement", slog.Int64("abonement_id", ab.ID))
		return false, nil
	}

	if err := r.abonements.DebitCredit(ctx, ab.ID); err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			metrics.DebitsTotal.WithLabelValues(outcomeInsufficient).Inc()
			return false, nil
		}
		return false, fmt.Errorf("debit abonement %d: %w", ab.ID, err)
	}

	attID := att.ID
	err = l.appendLog(ctx, r, actor, logEntry{
		abonementID:  ab.ID,
		action:       model.ActionDebitAttendance,
		delta:        -1,
		reason:       string(att.Status),
		attendanceID: &attID,
		payload: map[string]any{
			"schedule_id":    att.ScheduleID,
			"user_id":        att.UserID,
			"status":         att.Status,
			"balance_before": ab.BalanceCredits,
			"balance_after":  ab.BalanceCredits - 1,
		},
	})
	if err != nil {
		return false, err
	}

	if err := l.transition(ctx, r, att, model.LedgerStateDebited); err != nil {
		return false, err
	}

	metrics.DebitsTotal.WithLabelValues(outcomeDebited).Inc()
	log.InfoContext(ctx, "attendance debited",
		slog.Int64("abonement_id", ab.ID),
		slog.Int("balance_after", ab.BalanceCredits-1),
	)
	return true, nil
}
