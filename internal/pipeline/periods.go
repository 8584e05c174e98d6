package pipeline

import (
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
)

// Period is one column of a cash-flow or timeline view.
type Period struct {
	Key   string    // stable key: 2024-01-31, 2024-01 or 2024
	Label string    // column heading
	Start time.Time // first day, inclusive
	End   time.Time // last day, inclusive
}

// Contains reports whether d falls within the period.
func (p Period) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Mid returns the day halfway through the period.
func (p Period) Mid() time.Time {
	return p.Start.AddDate(0, 0, daysBetween(p.Start, p.End)/2)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, -1)
}

func yearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DailyColumns returns one period per day in [from, to].
func DailyColumns(from, to time.Time) []Period {
	var out []Period
	for d := Day(from); !d.After(Day(to)); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		out = append(out, Period{Key: key, Label: key, Start: d, End: d})
	}
	return out
}

// MonthlyColumns returns the calendar months touched by [from, to]. Each
// period spans the whole month even when from or to fall mid-month.
func MonthlyColumns(from, to time.Time) []Period {
	var out []Period
	last := Day(to)
	for m := monthStart(from); !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, Period{
			Key:   m.Format("2006-01"),
			Label: m.Format("Jan 2006"),
			Start: m,
			End:   monthEnd(m),
		})
	}
	return out
}

// YearlyColumns returns the calendar years touched by [from, to].
func YearlyColumns(from, to time.Time) []Period {
	var out []Period
	for y := from.Year(); y <= to.Year(); y++ {
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		out = append(out, Period{
			Key:   start.Format("2006"),
			Label: start.Format("2006"),
			Start: start,
			End:   yearEnd(y),
		})
	}
	return out
}

// WeeklyColumns returns Thursday-anchored weeks. The first week ends on the
// first Thursday on or after from; each week runs Friday through Thursday.
func WeeklyColumns(from, to time.Time) []Period {
	var out []Period
	last := Day(to)
	for thu := NextThursday(from); !thu.After(last); thu = thu.AddDate(0, 0, 7) {
		out = append(out, Period{
			Key:   thu.Format(model.DateLayout),
			Label: thu.Format("02-01-2006"),
			Start: thu.AddDate(0, 0, -6),
			End:   thu,
		})
	}
	return out
}

// NextThursday returns d when it is a Thursday, else the following one.
func NextThursday(d time.Time) time.Time {
	d = Day(d)
	return d.AddDate(0, 0, (int(time.Thursday)-int(d.Weekday())+7)%7)
}

// NearestThursday snaps d to the closest Thursday; forward wins ties.
func NearestThursday(d time.Time) time.Time {
	d = Day(d)
	ahead := (int(time.Thursday) - int(d.Weekday()) + 7) % 7
	behind := (int(d.Weekday()) - int(time.Thursday) + 7) % 7
	if ahead <= behind {
		return d.AddDate(0, 0, ahead)
	}
	return d.AddDate(0, 0, -behind)
}

// Columns returns the periods of flow between from and to.
func Columns(from, to time.Time, flow model.FlowType) []Period {
	if to.Before(from) {
		return nil
	}
	switch flow {
	case model.FlowDaily:
		return DailyColumns(from, to)
	case model.FlowWeekly:
		return WeeklyColumns(from, to)
	case model.FlowYearly:
		return YearlyColumns(from, to)
	default:
		return MonthlyColumns(from, to)
	}
}

// DateColumns returns the column keys of flow between from and to.
func DateColumns(from, to time.Time, flow model.FlowType) []string {
	cols := Columns(from, to, flow)
	keys := make([]string, len(cols))
	for i, c := range cols {
		keys[i] = c.Key
	}
	return keys
}
