package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
)

type MarkRequest struct {
	ScheduleID int64
	UserID     int64
	Status     string
	// Явно выбранный абонемент; nil: подобрать действующий автоматически.
	AbonementID *int64
	Comment     string
	Actor       Actor
}

type MarkResult struct {
	Attendance    model.Attendance
	Created       bool
	StatusChanged bool
	// Вызывался ли путь списания и что он вернул.
	DebitAttempted bool
	Debited        bool
}

// MarkAttendance создаёт или обновляет отметку (занятие, пользователь).
// Путь списания вызывается ровно один раз: при создании отметки
// или при смене её статуса.
func (l *Ledger) MarkAttendance(ctx context.Context, db *gorm.DB, req MarkRequest) (*MarkResult, error) {
	status := model.AttendanceStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		return nil, newError("status must be one of: present, absent, late, sick.")
	}
	if req.ScheduleID <= 0 {
		return nil, newError("schedule_id must be a positive integer.")
	}

	r := reposFor(db)
	if err := l.ensureUser(ctx, r, req.UserID); err != nil {
		return nil, err
	}

	schedule, err := r.schedules.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, notFound(err, ErrScheduleNotFound, "schedule %d", req.ScheduleID)
	}
	if err := checkMarkable(schedule, req.UserID); err != nil {
		return nil, err
	}

	abonementID, err := l.pickAbonement(ctx, r, schedule, req)
	if err != nil {
		return nil, err
	}

	var staffID *int64
	if id, ok := req.Actor.StaffID(); ok {
		staffID = &id
	}
	now := l.now().UTC()

	res := &MarkResult{}
	att, err := r.attendance.GetByScheduleUser(ctx, schedule.ID, req.UserID)
	switch {
	case isRecordNotFound(err):
		att = &model.Attendance{
			ScheduleID:      schedule.ID,
			UserID:          req.UserID,
			Status:          status,
			AbonementID:     abonementID,
			LedgerState:     model.LedgerStateMarked,
			MarkedAt:        now,
			MarkedByStaffID: staffID,
			Comment:         req.Comment,
		}
		if err := r.attendance.Create(ctx, att); err != nil {
			return nil, fmt.Errorf("create attendance: %w", err)
		}
		res.Created = true
		res.StatusChanged = true

	case err != nil:
		return nil, fmt.Errorf("load attendance: %w", err)

	default:
		res.StatusChanged = att.Status != status
		att.Status = status
		if att.AbonementID == nil || req.AbonementID != nil {
			att.AbonementID = abonementID
		}
		att.MarkedAt = now
		att.MarkedByStaffID = staffID
		if req.Comment != "" {
			att.Comment = req.Comment
		}
		if err := r.attendance.Update(ctx, att); err != nil {
			return nil, fmt.Errorf("update attendance %d: %w", att.ID, err)
		}
	}

	if res.StatusChanged {
		res.DebitAttempted = true
		res.Debited, err = l.debit(ctx, r, att, req.Actor)
		if err != nil {
			return nil, err
		}
	}

	l.logger.InfoContext(ctx, "attendance marked",
		slog.Int64("attendance_id", att.ID),
		slog.Int64("schedule_id", schedule.ID),
		slog.Int64("user_id", req.UserID),
		slog.String("status", string(status)),
		slog.Bool("created", res.Created),
		slog.Bool("debited", res.Debited),
	)

	res.Attendance = *att
	return res, nil
}

func checkMarkable(schedule *model.Schedule, userID int64) error {
	if schedule.Status == model.ScheduleStatusCancelled {
		return newError("Cannot mark attendance for a cancelled session.")
	}
	switch schedule.ObjectType {
	case model.ScheduleObjectGroup:
		if schedule.GroupID == nil {
			return newError("Group session %d has no group.", schedule.ID)
		}
	case model.ScheduleObjectIndividual:
		if schedule.StudentUserID == nil || *schedule.StudentUserID != userID {
			return newError("User is not the student of this individual lesson.")
		}
	default:
		return newError("Attendance is not tracked for %s sessions.", schedule.ObjectType)
	}
	return nil
}

// pickAbonement проверяет явно указанный абонемент или подбирает действующий
// на время занятия. Для индивидуальных занятий абонемент не нужен.
func (l *Ledger) pickAbonement(ctx context.Context, r repos, schedule *model.Schedule, req MarkRequest) (*int64, error) {
	if req.AbonementID != nil {
		ab, err := r.abonements.GetByID(ctx, *req.AbonementID)
		if err != nil {
			return nil, notFound(err, ErrAbonementNotFound, "abonement %d", *req.AbonementID)
		}
		if ab.UserID != req.UserID {
			return nil, newError("Abonement %d belongs to another user.", ab.ID)
		}
		if schedule.GroupID != nil && ab.GroupID != *schedule.GroupID {
			return nil, newError("Abonement %d is for another group.", ab.ID)
		}
		id := ab.ID
		return &id, nil
	}

	if schedule.ObjectType != model.ScheduleObjectGroup {
		return nil, nil
	}
	ab, err := l.resolver.ResolveGroupActiveAbonement(ctx, r.db, req.UserID, *schedule.GroupID, schedule.StartsAt)
	if err != nil {
		return nil, err
	}
	if ab == nil {
		return nil, nil
	}
	id := ab.ID
	return &id, nil
}
