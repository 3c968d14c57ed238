package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/metrics"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/pricing"
)

type ActivationRequest struct {
	UserID int64
	Quote  *pricing.GroupBookingQuote
	// Пусто: оплаты ещё не было.
	PaymentID string
	Actor     Actor
}

// ActivateFromQuote создаёт абонементы по предложению: по одному на каждую
// группу бандла, все с общим bundle_id и lessons_per_group кредитами.
// Если оплата нужна и payment_id не передан, абонементы ждут подтверждения оплаты.
func (l *Ledger) ActivateFromQuote(ctx context.Context, db *gorm.DB, req ActivationRequest) ([]model.GroupAbonement, error) {
	if req.Quote == nil {
		return nil, newError("quote is required.")
	}
	q := req.Quote
	if len(q.BundleGroupIDs) == 0 || q.LessonsPerGroup <= 0 {
		return nil, newError("quote has no lessons to activate.")
	}

	r := reposFor(db)
	if err := l.ensureUser(ctx, r, req.UserID); err != nil {
		return nil, err
	}

	paymentID := strings.TrimSpace(req.PaymentID)
	status := model.AbonementStatusActive
	if q.RequiresPayment && paymentID == "" {
		status = model.AbonementStatusPendingActivation
	}

	bundleID := uuid.NewString()
	size := len(q.BundleGroupIDs)
	share, rest := q.Amount/size, q.Amount%size
	validFrom := q.ValidFrom.UTC()
	validTo := q.ValidTo.UTC()

	out := make([]model.GroupAbonement, 0, size)
	for i, groupID := range q.BundleGroupIDs {
		amount := share
		if i == 0 {
			amount += rest
		}
		ab := &model.GroupAbonement{
			UserID:         req.UserID,
			GroupID:        groupID,
			AbonementType:  q.AbonementType,
			BundleID:       bundleID,
			BundleSize:     size,
			BalanceCredits: q.LessonsPerGroup,
			Status:         status,
			ValidFrom:      &validFrom,
			ValidTo:        &validTo,
			AmountRub:      amount,
			Currency:       q.Currency,
		}
		if err := r.abonements.Create(ctx, ab); err != nil {
			return nil, fmt.Errorf("create abonement for group %d: %w", groupID, err)
		}

		err := l.appendLog(ctx, r, req.Actor, logEntry{
			abonementID: ab.ID,
			action:      model.ActionAbonementCreated,
			delta:       q.LessonsPerGroup,
			reason:      string(q.AbonementType),
			paymentID:   paymentID,
			payload: map[string]any{
				"bundle_id":        bundleID,
				"bundle_group_ids": q.BundleGroupIDs,
				"direction_type":   q.DirectionType,
				"total_lessons":    q.TotalLessons,
				"amount":           q.Amount,
				"currency":         q.Currency,
				"status":           status,
			},
		})
		if err != nil {
			return nil, err
		}
		out = append(out, *ab)
	}

	metrics.ActivationsTotal.WithLabelValues(string(status)).Inc()
	l.logger.InfoContext(ctx, "abonements created from quote",
		slog.Int64("user_id", req.UserID),
		slog.String("bundle_id", bundleID),
		slog.Int("bundle_size", size),
		slog.String("status", string(status)),
	)
	return out, nil
}

// ConfirmPayment активирует ожидающие оплаты абонементы бандла.
// Уже активные не трогает, так что повторный вызов безопасен.
func (l *Ledger) ConfirmPayment(ctx context.Context, db *gorm.DB, bundleID, paymentID string, actor Actor) ([]model.GroupAbonement, error) {
	bundleID = strings.TrimSpace(bundleID)
	paymentID = strings.TrimSpace(paymentID)
	if bundleID == "" {
		return nil, newError("bundle_id is required.")
	}
	if paymentID == "" {
		return nil, newError("payment_id is required.")
	}

	r := reposFor(db)
	abs, err := r.abonements.ListByBundle(ctx, bundleID)
	if err != nil {
		return nil, fmt.Errorf("list bundle %s: %w", bundleID, err)
	}
	if len(abs) == 0 {
		return nil, fmt.Errorf("bundle %s: %w", bundleID, ErrAbonementNotFound)
	}

	activated := 0
	for i := range abs {
		ab := &abs[i]
		if ab.Status != model.AbonementStatusPendingActivation {
			continue
		}
		if err := r.abonements.UpdateStatus(ctx, ab.ID, model.AbonementStatusActive); err != nil {
			return nil, fmt.Errorf("activate abonement %d: %w", ab.ID, err)
		}
		ab.Status = model.AbonementStatusActive

		err := l.appendLog(ctx, r, actor, logEntry{
			abonementID: ab.ID,
			action:      model.ActionPaymentConfirmed,
			paymentID:   paymentID,
			payload:     map[string]any{"bundle_id": bundleID},
		})
		if err != nil {
			return nil, err
		}
		activated++
	}

	if activated > 0 {
		l.logger.InfoContext(ctx, "payment confirmed",
			slog.String("bundle_id", bundleID),
			slog.Int("activated", activated),
		)
	}
	return abs, nil
}

// ExpireOverdue переводит в expired активные абонементы с истёкшим valid_to.
func (l *Ledger) ExpireOverdue(ctx context.Context, db *gorm.DB) ([]int64, error) {
	r := reposFor(db)
	now := l.now()

	overdue, err := r.abonements.ListOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue abonements: %w", err)
	}

	ids := make([]int64, 0, len(overdue))
	for _, ab := range overdue {
		if err := r.abonements.UpdateStatus(ctx, ab.ID, model.AbonementStatusExpired); err != nil {
			return nil, fmt.Errorf("expire abonement %d: %w", ab.ID, err)
		}
		err := l.appendLog(ctx, r, SystemActor(), logEntry{
			abonementID: ab.ID,
			action:      model.ActionAbonementExpired,
			reason:      "valid_to passed",
			payload: map[string]any{
				"valid_to":         timeOrNil(ab.ValidTo),
				"credits_left":     ab.BalanceCredits,
				"expired_at_local": now.In(l.loc).Format(time.RFC3339),
			},
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, ab.ID)
	}

	if len(ids) > 0 {
		metrics.ExpiredTotal.Add(float64(len(ids)))
		l.logger.InfoContext(ctx, "abonements expired", slog.Int("count", len(ids)))
	}
	return ids, nil
}
