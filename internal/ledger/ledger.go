// Package ledger ведёт баланс занятий на абонементах: списания за посещения,
// возвраты по больничному, продления и активацию купленных абонементов.
//
// Ledger не управляет транзакциями: каждый метод работает через переданный
// *gorm.DB, и вызывающий код сам коммитит или откатывает изменения баланса
// вместе с записями журнала.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/repository"
	"github.com/Leganyst/dance-studio/internal/roster"
	"github.com/Leganyst/dance-studio/internal/settings"
)

type Ledger struct {
	logger   *slog.Logger
	store    *settings.Store
	resolver *roster.Resolver
	loc      *time.Location
	now      func() time.Time
}

// New: loc задаёт часовой пояс студии, при now == nil берётся time.Now.
func New(
	logger *slog.Logger,
	store *settings.Store,
	resolver *roster.Resolver,
	loc *time.Location,
	now func() time.Time,
) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		logger:   logger,
		store:    store,
		resolver: resolver,
		loc:      loc,
		now:      now,
	}
}

// repos: репозитории поверх одной транзакции.
type repos struct {
	db         *gorm.DB
	abonements *repository.GormAbonementRepository
	logs       *repository.GormActionLogRepository
	attendance *repository.GormAttendanceRepository
	schedules  *repository.GormScheduleRepository
	groups     *repository.GormGroupRepository
	users      *repository.GormUserRepository
}

func reposFor(db *gorm.DB) repos {
	return repos{
		db:         db,
		abonements: repository.NewGormAbonementRepository(db),
		logs:       repository.NewGormActionLogRepository(db),
		attendance: repository.NewGormAttendanceRepository(db),
		schedules:  repository.NewGormScheduleRepository(db),
		groups:     repository.NewGormGroupRepository(db),
		users:      repository.NewGormUserRepository(db),
	}
}

type logEntry struct {
	abonementID  int64
	action       model.ActionType
	delta        int
	reason       string
	note         string
	attendanceID *int64
	paymentID    string
	payload      map[string]any
}

func (l *Ledger) appendLog(ctx context.Context, r repos, actor Actor, e logEntry) error {
	actorType, actorID := actor.columns()
	row := &model.GroupAbonementActionLog{
		AbonementID:  e.abonementID,
		ActionType:   e.action,
		CreditsDelta: e.delta,
		Reason:       e.reason,
		Note:         e.note,
		AttendanceID: e.attendanceID,
		ActorType:    actorType,
		ActorID:      actorID,
	}
	if e.paymentID != "" {
		pid := e.paymentID
		row.PaymentID = &pid
	}
	if e.payload != nil {
		b, err := json.Marshal(e.payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", e.action, err)
		}
		row.Payload = datatypes.JSON(b)
	}
	if err := r.logs.Append(ctx, row); err != nil {
		return fmt.Errorf("append %s log: %w", e.action, err)
	}
	return nil
}

func (l *Ledger) ensureUser(ctx context.Context, r repos, userID int64) error {
	if userID <= 0 {
		return newError("user_id must be a positive integer.")
	}
	if _, err := r.users.GetByID(ctx, userID); err != nil {
		return notFound(err, ErrUserNotFound, "user %d", userID)
	}
	return nil
}

// notFound заменяет gorm.ErrRecordNotFound доменной ошибкой.
func notFound(err, sentinel error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	what := fmt.Sprintf(format, args...)
	if isRecordNotFound(err) {
		return fmt.Errorf("%s: %w", what, sentinel)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
