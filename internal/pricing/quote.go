package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/dance-studio/internal/calendar"
	"github.com/Leganyst/dance-studio/internal/metrics"
	"github.com/Leganyst/dance-studio/internal/model"
	"github.com/Leganyst/dance-studio/internal/repository"
	"github.com/Leganyst/dance-studio/internal/settings"
)

const (
	maxBundleSize     = 3
	weeksPerAbonement = 4
	multiValidityDays = 28
)

// QuoteRequest: параметры расчёта.
type QuoteRequest struct {
	// 0: пользователь неизвестен, проверка пробного занятия пропускается.
	UserID        int64
	GroupID       int64
	AbonementType string
	// nil: только GroupID. Пустой, но не nil список считается ошибкой.
	BundleGroupIDs       []int64
	MultiLessonsPerGroup *int
}

// GroupBookingQuote: рассчитанное, но ещё не сохранённое предложение.
type GroupBookingQuote struct {
	GroupID         int64
	AbonementType   model.AbonementType
	BundleGroupIDs  []int64
	BundleSize      int
	DirectionType   model.DirectionType
	LessonsPerGroup int
	TotalLessons    int
	Amount          int
	Currency        string
	ValidFrom       time.Time
	ValidTo         time.Time
	RequiresPayment bool

	// Для multi на одну группу: откуда взята цена.
	PriceSource PriceSource
}

// SameTerms: совпадают ли условия двух предложений для покупателя.
func (q *GroupBookingQuote) SameTerms(other *GroupBookingQuote) bool {
	return q.GroupID == other.GroupID &&
		q.AbonementType == other.AbonementType &&
		slices.Equal(q.BundleGroupIDs, other.BundleGroupIDs) &&
		q.LessonsPerGroup == other.LessonsPerGroup &&
		q.Amount == other.Amount &&
		q.Currency == other.Currency &&
		q.ValidFrom.Equal(other.ValidFrom) &&
		q.ValidTo.Equal(other.ValidTo)
}

// Facts: данные из базы, нужные для расчёта.
type Facts struct {
	// Группы бандла вместе с направлениями.
	Groups map[int64]model.Group
	// Типы направлений, по которым пользователь уже брал пробное занятие.
	UsedTrialDirections map[model.DirectionType]bool
	// Ближайшее занятие опорной группы; nil: не запланировано.
	NextSessionAt *time.Time
}

type Engine struct {
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewEngine: loc задаёт часовой пояс студии, при now == nil берётся time.Now.
func NewEngine(logger *slog.Logger, loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{logger: logger, loc: loc, now: now}
}

// QuoteGroupBooking проверяет запрос, собирает факты через db и считает предложение.
func (e *Engine) QuoteGroupBooking(ctx context.Context, db *gorm.DB, cfg Config, req QuoteRequest) (*GroupBookingQuote, error) {
	q, err := e.quote(ctx, db, cfg, req)
	if err != nil {
		if IsPricingError(err) {
			metrics.QuoteRejectionsTotal.Inc()
			e.logger.InfoContext(ctx, "quote rejected",
				slog.Int64("user_id", req.UserID),
				slog.Int64("group_id", req.GroupID),
				slog.String("reason", err.Error()),
			)
		}
		return nil, err
	}

	metrics.QuotesTotal.WithLabelValues(string(q.AbonementType)).Inc()
	if q.PriceSource != "" {
		metrics.PriceFallbacksTotal.WithLabelValues(string(q.PriceSource)).Inc()
		if q.PriceSource != SourceSingleMatrix {
			e.logger.WarnContext(ctx, "single-group multi price taken from fallback",
				slog.String("source", string(q.PriceSource)),
				slog.String("direction_type", string(q.DirectionType)),
				slog.Int("lessons", q.LessonsPerGroup),
				slog.Int("amount", q.Amount),
			)
		}
	}
	return q, nil
}

func (e *Engine) quote(ctx context.Context, db *gorm.DB, cfg Config, req QuoteRequest) (*GroupBookingQuote, error) {
	// дешёвые проверки до похода в базу
	n, err := normalize(req)
	if err != nil {
		return nil, err
	}

	facts, err := e.loadFacts(ctx, db, n)
	if err != nil {
		return nil, err
	}

	return compute(n, facts, cfg, e.loc, e.now())
}

func (e *Engine) loadFacts(ctx context.Context, db *gorm.DB, n normalized) (Facts, error) {
	facts := Facts{
		Groups:              make(map[int64]model.Group, len(n.bundle)),
		UsedTrialDirections: map[model.DirectionType]bool{},
	}

	groupRepo := repository.NewGormGroupRepository(db)
	groups, err := groupRepo.ListByIDs(ctx, n.bundle)
	if err != nil {
		return Facts{}, fmt.Errorf("load bundle groups: %w", err)
	}
	for _, g := range groups {
		facts.Groups[g.ID] = g
	}

	if n.typ == model.AbonementTypeTrial && n.userID > 0 {
		trials, err := repository.NewGormAbonementRepository(db).ListTrialByUser(ctx, n.userID)
		if err != nil {
			return Facts{}, fmt.Errorf("load trial abonements: %w", err)
		}
		ids := make([]int64, 0, len(trials))
		for _, t := range trials {
			ids = append(ids, t.GroupID)
		}
		trialGroups, err := groupRepo.ListByIDs(ctx, ids)
		if err != nil {
			return Facts{}, fmt.Errorf("load trial groups: %w", err)
		}
		for _, g := range trialGroups {
			if g.Direction != nil {
				facts.UsedTrialDirections[g.Direction.DirectionType] = true
			}
		}
	}

	// сегодняшнее занятие считается, даже если уже началось
	today := calendar.StartOfDay(e.now(), e.loc)
	next, err := repository.NewGormScheduleRepository(db).NextForGroup(ctx, n.groupID, today)
	switch {
	case err == nil:
		startsAt := next.StartsAt
		facts.NextSessionAt = &startsAt
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return Facts{}, fmt.Errorf("load next session: %w", err)
	}

	return facts, nil
}

// Compute считает без обращения к базе; результат зависит только от аргументов.
func Compute(req QuoteRequest, facts Facts, cfg Config, loc *time.Location, now time.Time) (*GroupBookingQuote, error) {
	n, err := normalize(req)
	if err != nil {
		return nil, err
	}
	return compute(n, facts, cfg, loc, now)
}

type normalized struct {
	userID       int64
	groupID      int64
	typ          model.AbonementType
	bundle       []int64
	multiLessons *int
}

func normalize(req QuoteRequest) (normalized, error) {
	if req.GroupID <= 0 {
		return normalized{}, newError("group_id must be a positive integer.")
	}

	typ := model.AbonementType(strings.ToLower(strings.TrimSpace(req.AbonementType)))
	if !typ.Valid() {
		return normalized{}, newError("abonement_type must be one of: single, multi, trial.")
	}

	bundle := req.BundleGroupIDs
	if bundle == nil {
		bundle = []int64{req.GroupID}
	}
	if len(bundle) == 0 {
		return normalized{}, newError("bundle_group_ids must be a non-empty list.")
	}
	seen := make(map[int64]struct{}, len(bundle))
	for _, id := range bundle {
		if id <= 0 {
			return normalized{}, newError("bundle_group_ids must contain positive integers only.")
		}
		if _, dup := seen[id]; dup {
			return normalized{}, newError("bundle_group_ids must not contain duplicates.")
		}
		seen[id] = struct{}{}
	}
	if _, ok := seen[req.GroupID]; !ok {
		return normalized{}, newError("bundle_group_ids must include group_id.")
	}

	return normalized{
		userID:       req.UserID,
		groupID:      req.GroupID,
		typ:          typ,
		bundle:       slices.Clone(bundle),
		multiLessons: req.MultiLessonsPerGroup,
	}, nil
}

func compute(n normalized, facts Facts, cfg Config, loc *time.Location, now time.Time) (*GroupBookingQuote, error) {
	var dt model.DirectionType
	for _, id := range n.bundle {
		g, ok := facts.Groups[id]
		if !ok {
			return nil, newError("Group %d not found.", id)
		}
		if g.Direction == nil || !g.Direction.DirectionType.Valid() {
			return nil, newError("Group %d has unsupported direction type.", id)
		}
		if dt == "" {
			dt = g.Direction.DirectionType
		} else if dt != g.Direction.DirectionType {
			return nil, newError("Cannot mix sport and dance groups in one abonement bundle.")
		}
	}

	q := &GroupBookingQuote{
		GroupID:        n.groupID,
		AbonementType:  n.typ,
		BundleGroupIDs: n.bundle,
		BundleSize:     len(n.bundle),
		DirectionType:  dt,
		Currency:       cfg.Currency,
	}

	switch n.typ {
	case model.AbonementTypeSingle, model.AbonementTypeTrial:
		if q.BundleSize != 1 {
			return nil, newError("%s abonement can be bought for one group only.", capitalize(string(n.typ)))
		}
		if n.typ == model.AbonementTypeTrial && facts.UsedTrialDirections[dt] {
			return nil, newError("Trial abonement is already used for this direction type.")
		}
		q.LessonsPerGroup = 1
		if n.typ == model.AbonementTypeSingle {
			q.Amount = cfg.SingleVisitPrice
		} else {
			q.Amount = cfg.TrialPrice
		}

	case model.AbonementTypeMulti:
		lessons, err := multiLessons(n, facts)
		if err != nil {
			return nil, err
		}
		q.LessonsPerGroup = lessons
		if q.BundleSize == 1 {
			q.Amount, q.PriceSource = SingleGroupMultiPrice(cfg, dt, lessons)
		} else {
			price, ok := cfg.BundlePrices.Price(dt, q.BundleSize, lessons)
			if !ok {
				return nil, newError("Multi abonement price is not configured for %s/%d groups/%d lessons.", dt, q.BundleSize, lessons)
			}
			q.Amount = price
		}
	}

	if q.Amount < 0 {
		return nil, fmt.Errorf("pricing: computed negative amount %d for %s", q.Amount, n.typ)
	}

	anchor := now
	if facts.NextSessionAt != nil {
		anchor = *facts.NextSessionAt
	}
	q.ValidFrom = calendar.StartOfDay(anchor, loc)
	if n.typ == model.AbonementTypeMulti {
		q.ValidTo = calendar.EndOfDay(q.ValidFrom.AddDate(0, 0, multiValidityDays), loc)
	} else {
		q.ValidTo = calendar.EndOfDay(q.ValidFrom, loc)
	}

	q.TotalLessons = q.LessonsPerGroup * q.BundleSize
	q.RequiresPayment = q.Amount > 0
	return q, nil
}

func multiLessons(n normalized, facts Facts) (int, error) {
	if len(n.bundle) < 1 || len(n.bundle) > maxBundleSize {
		return 0, newError("Multi abonement bundle may contain from 1 to %d groups.", maxBundleSize)
	}

	lpw := 0
	for _, id := range n.bundle {
		g := facts.Groups[id]
		if g.LessonsPerWeek == nil {
			return 0, newError("Group %d has no lessons_per_week configured.", id)
		}
		v := *g.LessonsPerWeek
		if v < 1 || v > 3 {
			return 0, newError("Group %d has unsupported lessons_per_week %d.", id, v)
		}
		if lpw == 0 {
			lpw = v
		} else if lpw != v {
			return 0, newError("All groups in a bundle must have the same lessons_per_week.")
		}
	}

	maxLessons := lpw * weeksPerAbonement
	if n.multiLessons == nil {
		return maxLessons, nil
	}

	lessons := *n.multiLessons
	if !slices.Contains(settings.AllowedLessonCounts, lessons) {
		return 0, newError("multi_lessons_per_group must be one of 4, 8, 12.")
	}
	if lessons > maxLessons {
		return 0, newError("multi_lessons_per_group cannot exceed %d for this group.", maxLessons)
	}
	return lessons, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
