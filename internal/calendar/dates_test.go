package calendar

import (
	"strings"
	"testing"
	"time"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

//
// Границы дня
//

func TestStartOfDay_UsesLocation(t *testing.T) {
	loc := moscow(t)
	// 22:30 UTC уже следующий день по Москве
	ts := mustTime(t, 2025, 3, 10, 22, 30)

	got := StartOfDay(ts, loc)
	want := time.Date(2025, 3, 11, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEndOfDay_Microseconds(t *testing.T) {
	ts := mustTime(t, 2025, 3, 10, 8, 0)

	got := EndOfDay(ts, time.UTC)
	if got.Hour() != 23 || got.Minute() != 59 || got.Second() != 59 {
		t.Fatalf("expected 23:59:59, got %v", got)
	}
	if got.Nanosecond() != 999999000 {
		t.Fatalf("expected .999999, got %d ns", got.Nanosecond())
	}
	if !got.Add(time.Microsecond).Equal(mustTime(t, 2025, 3, 11, 0, 0)) {
		t.Fatalf("expected next microsecond to be midnight, got %v", got.Add(time.Microsecond))
	}
}

func TestParseDate(t *testing.T) {
	loc := moscow(t)
	got, err := ParseDate("2025-01-31", loc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !got.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected date %v", got)
	}

	if _, err := ParseDate("31.01.2025", loc); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
}

//
// Диапазоны дат
//

func TestNewDateRange_Days(t *testing.T) {
	from := mustTime(t, 2025, 1, 1, 15, 0)
	to := mustTime(t, 2025, 1, 3, 9, 0)

	r, err := NewDateRange(from, to, time.UTC)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if r.Days() != 3 {
		t.Fatalf("expected 3 days, got %d", r.Days())
	}
	if r.Key() != "2025-01-01:2025-01-03" {
		t.Fatalf("unexpected key %q", r.Key())
	}

	b := r.Bounds()
	if !b.Start.Equal(mustTime(t, 2025, 1, 1, 0, 0)) || !b.End.Equal(mustTime(t, 2025, 1, 4, 0, 0)) {
		t.Fatalf("unexpected bounds %v", b)
	}
	if !b.Contains(mustTime(t, 2025, 1, 3, 23, 59)) {
		t.Fatalf("expected last day to be inside bounds")
	}
	if b.Contains(mustTime(t, 2025, 1, 4, 0, 0)) {
		t.Fatalf("expected end bound to be exclusive")
	}
}

func TestNewDateRange_SingleDay(t *testing.T) {
	day := mustTime(t, 2025, 5, 5, 10, 0)
	r, err := NewDateRange(day, day, time.UTC)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if r.Days() != 1 {
		t.Fatalf("expected 1 day, got %d", r.Days())
	}
}

func TestNewDateRange_Reversed(t *testing.T) {
	_, err := NewDateRange(mustTime(t, 2025, 1, 3, 0, 0), mustTime(t, 2025, 1, 1, 0, 0), time.UTC)
	if err != ErrInvalidDateRange {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestNewTimeRange_Invalid(t *testing.T) {
	if _, err := NewTimeRange(time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected error for zero times, got nil")
	}
	start := mustTime(t, 2025, 1, 1, 10, 0)
	if _, err := NewTimeRange(start, start); err == nil {
		t.Fatalf("expected error for empty range, got nil")
	}
}

//
// Форматирование занятия
//

func TestFormatSessionForUser_Basic(t *testing.T) {
	start := mustTime(t, 2025, 1, 6, 16, 0) // понедельник
	end := mustTime(t, 2025, 1, 6, 17, 30)

	str := FormatSessionForUser(TimeRange{Start: start, End: end}, moscow(t))

	if !strings.Contains(str, "Понедельник") {
		t.Fatalf("expected weekday in output, got %q", str)
	}
	if !strings.Contains(str, "06.01.2025") {
		t.Fatalf("expected date in output, got %q", str)
	}
	if !strings.Contains(str, "19:00–20:30") {
		t.Fatalf("expected local time range, got %q", str)
	}
}

//
// Пагинация
//

func TestPaginate_Basic(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	page := Paginate(items, 1, 5)

	if len(page.Items) != 5 {
		t.Fatalf("expected 5 items on page 1, got %d", len(page.Items))
	}
	if page.HasPrev {
		t.Fatalf("expected HasPrev=false on first page")
	}
	if !page.HasNext {
		t.Fatalf("expected HasNext=true on first page")
	}
	if page.Total != len(items) {
		t.Fatalf("expected Total=%d, got %d", len(items), page.Total)
	}
}

func TestPaginate_LastPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	page := Paginate(items, 2, 4)

	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items on last page, got %d", len(page.Items))
	}
	if !page.HasPrev {
		t.Fatalf("expected HasPrev=true on last page")
	}
	if page.HasNext {
		t.Fatalf("expected HasNext=false on last page")
	}
}

func TestPaginate_Defaults(t *testing.T) {
	items := make([]int, 500)
	page := Paginate(items, 0, 0)
	if page.Page != 1 || page.PageSize != DefaultPageSize {
		t.Fatalf("expected defaults page=1 size=%d, got page=%d size=%d", DefaultPageSize, page.Page, page.PageSize)
	}

	page = Paginate(items, 1, 10_000)
	if page.PageSize != MaxPageSize || len(page.Items) != MaxPageSize {
		t.Fatalf("expected page size capped at %d, got %d", MaxPageSize, page.PageSize)
	}
}

func TestPaginate_Empty(t *testing.T) {
	var items []int
	page := Paginate(items, 1, 10)

	if len(page.Items) != 0 {
		t.Fatalf("expected 0 items, got %d", len(page.Items))
	}
	if page.HasNext || page.HasPrev {
		t.Fatalf("expected no prev/next for empty list")
	}
}
