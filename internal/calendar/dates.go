package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidDateRange = errors.New("date_to must not be before date_from")
)

const DateLayout = "2006-01-02"

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и делает простую валидацию.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Contains: попадает ли t в [Start, End).
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// StartOfDay: полночь календарного дня t в часовом поясе loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// EndOfDay: последняя микросекунда календарного дня t (23:59:59.999999).
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 999999000, t.Location())
}

// ParseDate разбирает дату "YYYY-MM-DD" как полночь в loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// DateRange: включительный диапазон календарных дат.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange нормализует границы до полуночи в loc.
// В отличие от интервалов времени, перепутанные границы не переставляются.
func NewDateRange(from, to time.Time, loc *time.Location) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, ErrInvalidTimeRange
	}
	from = StartOfDay(from, loc)
	to = StartOfDay(to, loc)
	if to.Before(from) {
		return DateRange{}, ErrInvalidDateRange
	}
	return DateRange{From: from, To: to}, nil
}

// Days: количество дней в диапазоне, включая обе границы.
func (r DateRange) Days() int {
	days := 0
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// Bounds: полуоткрытый интервал времени, покрывающий все дни диапазона.
func (r DateRange) Bounds() TimeRange {
	return TimeRange{Start: r.From, End: r.To.AddDate(0, 0, 1)}
}

// Key: "YYYY-MM-DD:YYYY-MM-DD".
func (r DateRange) Key() string {
	return r.From.Format(DateLayout) + ":" + r.To.Format(DateLayout)
}

var ruWeekdays = map[time.Weekday]string{
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
	time.Sunday:    "Воскресенье",
}

// FormatSessionForUser форматирует занятие в человекочитаемую строку.
// Если loc != nil, время переводится в указанный часовой пояс.
func FormatSessionForUser(tr TimeRange, loc *time.Location) string {
	start := tr.Start
	end := tr.End

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	weekday := ruWeekdays[start.Weekday()]
	// Дата в формате ДД.ММ.ГГГГ
	dateStr := start.Format("02.01.2006")

	return fmt.Sprintf("%s, %s, %s–%s", weekday, dateStr, start.Format("15:04"), end.Format("15:04"))
}
