package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"thepup/internal/models/domain"
)

// When: временное окно для списка мероприятий.
type When string

const (
	WhenAll       When = "all"
	WhenToday     When = "today"
	WhenThisWeek  When = "this_week"
	WhenThisMonth When = "this_month"
	WhenUpcoming  When = "upcoming"
	WhenPast      When = "past"
)

// ParseWhen разбирает значение фильтра. Для пустой строки возвращается def.
func ParseWhen(s string, def When) (When, error) {
	switch w := When(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return def, nil
	case WhenAll, WhenToday, WhenThisWeek, WhenThisMonth, WhenUpcoming, WhenPast:
		return w, nil
	default:
		return "", fmt.Errorf("unknown time window: %s", s)
	}
}

// EventFilter: параметры списка мероприятий.
type EventFilter struct {
	Category      string
	When          When
	From          *time.Time
	To            *time.Time
	Query         string
	IncludeDrafts bool
	Limit         int
	Offset        int
}

// Window возвращает границы окна [from, to] для when относительно now в часовом поясе loc.
// ok == false для окон без фиксированных границ (all, upcoming, past).
func Window(when When, now time.Time, loc *time.Location) (from, to time.Time, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	day := startOfDay(now)

	switch when {
	case WhenToday:
		return day, day.AddDate(0, 0, 1).Add(-time.Nanosecond), true
	case WhenThisWeek:
		offset := (int(day.Weekday()) + 6) % 7 // неделя начинается с понедельника
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond), true
	case WhenThisMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// Overlaps: пересекается ли событие с интервалом [from, to] (границы включительно).
// Нулевая граница означает отсутствие ограничения с этой стороны.
func Overlaps(e domain.Event, from, to time.Time) bool {
	if !to.IsZero() && e.StartDate.After(to) {
		return false
	}
	if !from.IsZero() && e.End().Before(from) {
		return false
	}
	return true
}

// FilterEvents фильтрует мероприятия и сортирует их:
// прошедшие идут от новых к старым, остальные по дате начала.
func FilterEvents(items []domain.Event, f EventFilter, now time.Time, loc *time.Location) []domain.Event {
	if loc == nil {
		loc = time.UTC
	}
	today := startOfDay(now.In(loc))
	winFrom, winTo, hasWindow := Window(f.When, now, loc)

	result := make([]domain.Event, 0, len(items))
	for _, e := range items {
		if !f.IncludeDrafts && e.Status != domain.StatusPublished {
			continue
		}
		if !matchesCategory(e.Category, f.Category) {
			continue
		}
		if !matchesQuery(f.Query, e.Title, e.Venue, e.Address, e.Tags, e.Organizer) {
			continue
		}

		switch f.When {
		case WhenUpcoming:
			if e.End().Before(today) {
				continue
			}
		case WhenPast:
			if !e.End().Before(today) {
				continue
			}
		}
		if hasWindow && !Overlaps(e, winFrom, winTo) {
			continue
		}

		var from, to time.Time
		if f.From != nil {
			from = *f.From
		}
		if f.To != nil {
			to = *f.To
		}
		if !Overlaps(e, from, to) {
			continue
		}

		result = append(result, e)
	}

	if f.When == WhenPast {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].StartDate.After(result[j].StartDate)
		})
	} else {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].StartDate.Before(result[j].StartDate)
		})
	}

	return Page(result, f.Offset, f.Limit)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
