package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/calendar"
	"github.com/Leganyst/dance-studio/internal/metrics"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/roster"
	"github.com/Leganyst/dance-studio/internal/settings"
)

type SickLeaveRequest struct {
	UserID int64
	// Календарные даты; учитывается только дата в часовом поясе студии.
	DateFrom time.Time
	DateTo   time.Time
	Comment  string
	Actor    Actor
}

type SickLeaveResult struct {
	Range         calendar.DateRange
	Days          int
	AttendanceIDs []int64
	// Отметки, за которые вернули занятие в этот раз.
	RefundedAttendanceIDs []int64
	// Абонементы, продлённые в этот раз.
	ExtendedAbonementIDs []int64
	// Не продлены: уже продлевались за этот диапазон или бессрочные.
	SkippedExtensionIDs []int64
}

// ApplySickLeave отмечает пользователя больным на всех групповых занятиях
// диапазона, возвращает списанные за них занятия и продлевает абонементы
// на длину больничного. Повторная подача того же диапазона ничего не меняет.
func (l *Ledger) ApplySickLeave(ctx context.Context, db *gorm.DB, req SickLeaveRequest) (*SickLeaveResult, error) {
	r := reposFor(db)
	if err := l.ensureUser(ctx, r, req.UserID); err != nil {
		return nil, err
	}

	rng, err := calendar.NewDateRange(req.DateFrom, req.DateTo, l.loc)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidDateRange) {
			return nil, newError("date_to must not be before date_from.")
		}
		return nil, newError("date_from and date_to are required.")
	}
	maxDays, err := l.store.Int(ctx, db, settings.KeySickLeaveMaxDays)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", settings.KeySickLeaveMaxDays, err)
	}
	days := rng.Days()
	if days > maxDays {
		return nil, newError("Sick leave cannot be longer than %d days.", maxDays)
	}

	res := &SickLeaveResult{Range: rng, Days: days}

	abs, err := r.abonements.ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("list user abonements: %w", err)
	}
	byGroup := make(map[int64][]model.GroupAbonement)
	var groupIDs []int64
	for _, ab := range abs {
		if _, ok := byGroup[ab.GroupID]; !ok {
			groupIDs = append(groupIDs, ab.GroupID)
		}
		byGroup[ab.GroupID] = append(byGroup[ab.GroupID], ab)
	}

	bounds := rng.Bounds()
	schedules, err := r.schedules.ListGroupSessionsInRange(ctx, groupIDs, bounds.Start, bounds.End)
	if err != nil {
		return nil, fmt.Errorf("list sessions in range: %w", err)
	}

	var touched []int64
	seen := map[int64]bool{}

	for i := range schedules {
		s := &schedules[i]
		covering, err := l.coveringAbonement(ctx, r, req.UserID, s, byGroup[*s.GroupID])
		if err != nil {
			return nil, err
		}
		if covering == nil {
			continue
		}

		att, err := l.markSick(ctx, r, s, req, covering.ID)
		if err != nil {
			return nil, err
		}
		res.AttendanceIDs = append(res.AttendanceIDs, att.ID)

		refunded, err := l.refund(ctx, r, att, req.Actor)
		if err != nil {
			return nil, err
		}
		if refunded {
			res.RefundedAttendanceIDs = append(res.RefundedAttendanceIDs, att.ID)
		}

		abID := covering.ID
		if att.AbonementID != nil {
			abID = *att.AbonementID
		}
		if !seen[abID] {
			seen[abID] = true
			touched = append(touched, abID)
		}
	}

	for _, abID := range touched {
		extended, err := l.extendForSickLeave(ctx, r, abID, rng, days, req.Actor)
		if err != nil {
			return nil, err
		}
		if extended {
			res.ExtendedAbonementIDs = append(res.ExtendedAbonementIDs, abID)
		} else {
			res.SkippedExtensionIDs = append(res.SkippedExtensionIDs, abID)
		}
	}

	l.logger.InfoContext(ctx, "sick leave applied",
		slog.Int64("user_id", req.UserID),
		slog.String("range", rng.Key()),
		slog.Int("sessions", len(res.AttendanceIDs)),
		slog.Int("refunded", len(res.RefundedAttendanceIDs)),
		slog.Int("extended", len(res.ExtendedAbonementIDs)),
	)
	return res, nil
}

// coveringAbonement: сначала активный абонемент по обычным правилам,
// иначе любой абонемент пользователя на группу, окно которого покрывает занятие.
func (l *Ledger) coveringAbonement(
	ctx context.Context,
	r repos,
	userID int64,
	s *model.Schedule,
	groupAbs []model.GroupAbonement,
) (*model.GroupAbonement, error) {
	ab, err := l.resolver.ResolveGroupActiveAbonement(ctx, r.db, userID, *s.GroupID, s.StartsAt)
	if err != nil {
		return nil, err
	}
	if ab != nil {
		return ab, nil
	}

	var candidates []model.GroupAbonement
	for _, a := range groupAbs {
		if a.Covers(s.StartsAt) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	roster.SortBySoonestExpiry(candidates)
	return &candidates[0], nil
}

func (l *Ledger) markSick(
	ctx context.Context,
	r repos,
	s *model.Schedule,
	req SickLeaveRequest,
	abonementID int64,
) (*model.Attendance, error) {
	var staffID *int64
	if id, ok := req.Actor.StaffID(); ok {
		staffID = &id
	}

	att, err := r.attendance.GetByScheduleUser(ctx, s.ID, req.UserID)
	if isRecordNotFound(err) {
		abID := abonementID
		att = &model.Attendance{
			ScheduleID:      s.ID,
			UserID:          req.UserID,
			Status:          model.AttendanceStatusSick,
			AbonementID:     &abID,
			LedgerState:     model.LedgerStateMarked,
			MarkedAt:        l.now().UTC(),
			MarkedByStaffID: staffID,
			Comment:         req.Comment,
		}
		if err := r.attendance.Create(ctx, att); err != nil {
			return nil, fmt.Errorf("create sick attendance: %w", err)
		}
		return att, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	if att.Status == model.AttendanceStatusSick && att.AbonementID != nil {
		return att, nil
	}

	att.Status = model.AttendanceStatusSick
	if att.AbonementID == nil {
		abID := abonementID
		att.AbonementID = &abID
	}
	att.MarkedAt = l.now().UTC()
	att.MarkedByStaffID = staffID
	if req.Comment != "" {
		att.Comment = req.Comment
	}
	if err := r.attendance.Update(ctx, att); err != nil {
		return nil, fmt.Errorf("update attendance %d: %w", att.ID, err)
	}
	return att, nil
}

// refund возвращает одно занятие, если за отметку списывали и ещё не возвращали.
func (l *Ledger) refund(ctx context.Context, r repos, att *model.Attendance, actor Actor) (bool, error) {
	if att.AbonementID == nil {
		return false, nil
	}
	debited, err := l.wasDebited(ctx, r, att)
	if err != nil || !debited {
		return false, err
	}
	refunded, err := l.wasRefunded(ctx, r, att)
	if err != nil || refunded {
		return false, err
	}

	if err := r.abonements.AddCredits(ctx, *att.AbonementID, 1); err != nil {
		if isRecordNotFound(err) {
			l.logger.WarnContext(ctx, "refund skipped: abonement is gone",
				slog.Int64("attendance_id", att.ID),
				slog.Int64("abonement_id", *att.AbonementID),
			)
			return false, nil
		}
		return false, fmt.Errorf("refund abonement %d: %w", *att.AbonementID, err)
	}

	attID := att.ID
	err = l.appendLog(ctx, r, actor, logEntry{
		abonementID:  *att.AbonementID,
		action:       model.ActionSickLeaveRefund,
		delta:        1,
		reason:       "sick_leave",
		attendanceID: &attID,
		payload: map[string]any{
			"schedule_id": att.ScheduleID,
			"user_id":     att.UserID,
		},
	})
	if err != nil {
		return false, err
	}
	if err := l.transition(ctx, r, att, model.LedgerStateSickRefunded); err != nil {
		return false, err
	}

	metrics.RefundsTotal.Inc()
	return true, nil
}

// extendForSickLeave продлевает valid_to на days дней один раз на абонемент
// и диапазон; ключ диапазона хранится в reason записи журнала.
func (l *Ledger) extendForSickLeave(
	ctx context.Context,
	r repos,
	abonementID int64,
	rng calendar.DateRange,
	days int,
	actor Actor,
) (bool, error) {
	key := rng.Key()
	done, err := r.logs.ExistsForAbonementReason(ctx, abonementID, model.ActionSickLeaveExtend, key)
	if err != nil {
		return false, fmt.Errorf("check sick leave extension: %w", err)
	}
	if done {
		return false, nil
	}

	ab, err := r.abonements.GetByID(ctx, abonementID)
	if err != nil {
		return false, notFound(err, ErrAbonementNotFound, "abonement %d", abonementID)
	}
	if ab.ValidTo == nil {
		// бессрочный абонемент продлевать некуда
		return false, nil
	}

	oldValidTo := *ab.ValidTo
	newValidTo := oldValidTo.In(l.loc).AddDate(0, 0, days)
	if err := r.abonements.UpdateValidTo(ctx, ab.ID, newValidTo); err != nil {
		return false, fmt.Errorf("extend abonement %d: %w", ab.ID, err)
	}

	err = l.appendLog(ctx, r, actor, logEntry{
		abonementID: ab.ID,
		action:      model.ActionSickLeaveExtend,
		delta:       0,
		reason:      key,
		payload: map[string]any{
			"days":         days,
			"date_from":    rng.From.Format(calendar.DateLayout),
			"date_to":      rng.To.Format(calendar.DateLayout),
			"old_valid_to": timeOrNil(&oldValidTo),
			"new_valid_to": timeOrNil(&newValidTo),
		},
	})
	if err != nil {
		return false, err
	}

	metrics.ExtensionsTotal.WithLabelValues("sick_leave").Inc()
	return true, nil
}
