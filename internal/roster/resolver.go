package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/repository"
)

// Entry: участник занятия и абонемент, с которого он занимается.
// Для индивидуальных занятий Abonement всегда nil.
type Entry struct {
	User      model.User
	Abonement *model.GroupAbonement
}

// Resolver определяет, кто и по какому абонементу занимается на занятии.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// SortBySoonestExpiry упорядочивает абонементы: сначала с ближайшим valid_to,
// бессрочные в конце, при равенстве по id.
func SortBySoonestExpiry(abs []model.GroupAbonement) {
	sort.SliceStable(abs, func(i, j int) bool {
		a, b := abs[i].ValidTo, abs[j].ValidTo
		switch {
		case a == nil && b == nil:
			return abs[i].ID < abs[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return abs[i].ID < abs[j].ID
		}
	})
}

// ResolveGroupActiveAbonement возвращает активный абонемент пользователя
// на группу, действующий в момент at. nil, nil: подходящего нет.
func (r *Resolver) ResolveGroupActiveAbonement(
	ctx context.Context,
	db *gorm.DB,
	userID, groupID int64,
	at time.Time,
) (*model.GroupAbonement, error) {
	abs, err := repository.NewGormAbonementRepository(db).
		ListByUserGroup(ctx, userID, groupID, model.AbonementStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list abonements: %w", err)
	}

	covering := filterCovering(abs, at)
	if len(covering) == 0 {
		return nil, nil
	}
	SortBySoonestExpiry(covering)
	return &covering[0], nil
}

// LoadRoster собирает состав занятия.
// Группа: все держатели активных абонементов, действующих на дату занятия,
// по одному абонементу на пользователя. Индивидуальное: единственный ученик.
func (r *Resolver) LoadRoster(ctx context.Context, db *gorm.DB, schedule *model.Schedule) ([]Entry, error) {
	switch schedule.ObjectType {
	case model.ScheduleObjectIndividual:
		return r.loadIndividual(ctx, db, schedule)
	case model.ScheduleObjectGroup:
		return r.loadGroup(ctx, db, schedule)
	default:
		return []Entry{}, nil
	}
}

func (r *Resolver) loadIndividual(ctx context.Context, db *gorm.DB, schedule *model.Schedule) ([]Entry, error) {
	if schedule.StudentUserID == nil {
		return []Entry{}, nil
	}
	u, err := repository.NewGormUserRepository(db).GetByID(ctx, *schedule.StudentUserID)
	if err != nil {
		return nil, fmt.Errorf("load student %d: %w", *schedule.StudentUserID, err)
	}
	return []Entry{{User: *u}}, nil
}

func (r *Resolver) loadGroup(ctx context.Context, db *gorm.DB, schedule *model.Schedule) ([]Entry, error) {
	if schedule.GroupID == nil {
		return []Entry{}, nil
	}

	abs, err := repository.NewGormAbonementRepository(db).ListActiveByGroup(ctx, *schedule.GroupID)
	if err != nil {
		return nil, fmt.Errorf("list group abonements: %w", err)
	}

	covering := filterCovering(abs, schedule.StartsAt)
	SortBySoonestExpiry(covering)

	// первый подходящий абонемент на пользователя
	byUser := make(map[int64]*model.GroupAbonement, len(covering))
	userIDs := make([]int64, 0, len(covering))
	for i := range covering {
		ab := &covering[i]
		if _, seen := byUser[ab.UserID]; seen {
			continue
		}
		byUser[ab.UserID] = ab
		userIDs = append(userIDs, ab.UserID)
	}

	users, err := repository.NewGormUserRepository(db).ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load roster users: %w", err)
	}

	entries := make([]Entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, Entry{User: u, Abonement: byUser[u.ID]})
	}
	if len(entries) != len(userIDs) {
		r.logger.WarnContext(ctx, "roster: abonement holders without user record",
			slog.Int64("schedule_id", schedule.ID),
			slog.Int("holders", len(userIDs)),
			slog.Int("users", len(entries)),
		)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].User.DisplayName != entries[j].User.DisplayName {
			return entries[i].User.DisplayName < entries[j].User.DisplayName
		}
		return entries[i].User.ID < entries[j].User.ID
	})
	return entries, nil
}

func filterCovering(abs []model.GroupAbonement, at time.Time) []model.GroupAbonement {
	out := make([]model.GroupAbonement, 0, len(abs))
	for _, ab := range abs {
		if ab.Covers(at) {
			out = append(out, ab)
		}
	}
	return out
}
