package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/metrics"
	"github.com/Leganyst/dance-studio/internal/model"
)

type ExtendRequest struct {
	AbonementID int64
	// Достаточно одного из двух; второе выводится через lessons_per_week группы.
	Weeks   *int
	Lessons *int
	Reason  string
	Actor   Actor
}

type ExtendResult struct {
	Abonement   model.GroupAbonement
	Weeks       int
	Lessons     int
	OldValidTo  *time.Time
	NewValidTo  *time.Time
	Reactivated bool
}

// ExtendAbonement вручную добавляет занятия и сдвигает valid_to на weeks недель.
// Отсчёт идёт от max(valid_to, сейчас), так что просроченный абонемент
// продлевается от текущего момента.
func (l *Ledger) ExtendAbonement(ctx context.Context, db *gorm.DB, req ExtendRequest) (*ExtendResult, error) {
	if req.AbonementID <= 0 {
		return nil, newError("abonement_id must be a positive integer.")
	}

	r := reposFor(db)
	ab, err := r.abonements.GetByID(ctx, req.AbonementID)
	if err != nil {
		return nil, notFound(err, ErrAbonementNotFound, "abonement %d", req.AbonementID)
	}
	if ab.Status == model.AbonementStatusPendingActivation {
		return nil, newError("Abonement %d is not activated yet.", ab.ID)
	}

	var lpw *int
	group, err := r.groups.GetByID(ctx, ab.GroupID)
	switch {
	case err == nil:
		lpw = group.LessonsPerWeek
	case isRecordNotFound(err):
	default:
		return nil, fmt.Errorf("load group %d: %w", ab.GroupID, err)
	}

	weeks, lessons, err := deriveWeeksLessons(req.Weeks, req.Lessons, lpw)
	if err != nil {
		return nil, err
	}

	if err := r.abonements.AddCredits(ctx, ab.ID, lessons); err != nil {
		return nil, fmt.Errorf("add credits to abonement %d: %w", ab.ID, err)
	}

	res := &ExtendResult{Weeks: weeks, Lessons: lessons}
	if ab.ValidTo != nil {
		old := *ab.ValidTo
		base := old
		if now := l.now(); now.After(base) {
			base = now
		}
		next := base.In(l.loc).AddDate(0, 0, 7*weeks)
		if err := r.abonements.UpdateValidTo(ctx, ab.ID, next); err != nil {
			return nil, fmt.Errorf("extend abonement %d: %w", ab.ID, err)
		}
		res.OldValidTo = &old
		res.NewValidTo = &next
	}

	if ab.Status == model.AbonementStatusExpired {
		if err := r.abonements.UpdateStatus(ctx, ab.ID, model.AbonementStatusActive); err != nil {
			return nil, fmt.Errorf("reactivate abonement %d: %w", ab.ID, err)
		}
		res.Reactivated = true
	}

	payload := map[string]any{
		"weeks":        weeks,
		"lessons":      lessons,
		"old_valid_to": timeOrNil(res.OldValidTo),
		"new_valid_to": timeOrNil(res.NewValidTo),
		"reactivated":  res.Reactivated,
	}
	if lpw != nil {
		payload["lessons_per_week"] = *lpw
	}
	err = l.appendLog(ctx, r, req.Actor, logEntry{
		abonementID: ab.ID,
		action:      model.ActionManualExtendAbonement,
		delta:       lessons,
		reason:      req.Reason,
		payload:     payload,
	})
	if err != nil {
		return nil, err
	}

	fresh, err := r.abonements.GetByID(ctx, ab.ID)
	if err != nil {
		return nil, fmt.Errorf("reload abonement %d: %w", ab.ID, err)
	}
	res.Abonement = *fresh

	metrics.ExtensionsTotal.WithLabelValues("manual").Inc()
	l.logger.InfoContext(ctx, "abonement extended",
		slog.Int64("abonement_id", ab.ID),
		slog.Int("weeks", weeks),
		slog.Int("lessons", lessons),
		slog.String("actor", req.Actor.String()),
	)
	return res, nil
}

// deriveWeeksLessons дополняет недостающее из weeks/lessons.
// Если заданы оба и известен lessons_per_week, они должны сходиться.
func deriveWeeksLessons(weeks, lessons, lpw *int) (int, int, error) {
	if weeks == nil && lessons == nil {
		return 0, 0, newError("Either weeks or lessons must be provided.")
	}
	if weeks != nil && *weeks <= 0 {
		return 0, 0, newError("weeks must be a positive integer.")
	}
	if lessons != nil && *lessons <= 0 {
		return 0, 0, newError("lessons must be a positive integer.")
	}
	if lpw != nil && *lpw <= 0 {
		lpw = nil
	}

	switch {
	case weeks != nil && lessons != nil:
		if lpw != nil && *lessons != *weeks**lpw {
			return 0, 0, newError("lessons (%d) must equal weeks × lessons_per_week (%d × %d).", *lessons, *weeks, *lpw)
		}
		return *weeks, *lessons, nil
	case lpw == nil:
		return 0, 0, newError("Group has no lessons_per_week configured; provide both weeks and lessons.")
	case weeks != nil:
		return *weeks, *weeks * *lpw, nil
	default:
		// неполная неделя считается целой
		w := (*lessons + *lpw - 1) / *lpw
		return w, *lessons, nil
	}
}
