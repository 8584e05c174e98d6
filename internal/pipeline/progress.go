package pipeline

import (
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
)

// Reading is a looked-up value; OK is false when nothing was recorded.
type Reading struct {
	Value float64
	OK    bool
}

func read(v float64, ok bool) Reading {
	return Reading{Value: v, OK: ok}
}

// PeriodProgress is one period of a project's weekly or monthly progress
// table.
type PeriodProgress struct {
	Period Period
	// Date is the date recorded in the resource date rows, snapped to a
	// Thursday for weeks, or the period anchor when Recorded is false.
	Date     time.Time
	Recorded bool
	// AfterEnd marks periods past the project's last week or month; they
	// carry no readings.
	AfterEnd  bool
	Planned   Reading
	Elapsed   Reading
	Manpower  Reading
	Equipment Reading
}

// ProgressTable lists planned and elapsed percentages with the manpower and
// equipment counts of each period. Weekly flows read the weekly resource
// rows around each week's Thursday; any other flow reads the monthly rows
// around each month's first day.
func ProgressTable(p model.Project, s Series, cols []Period, flow model.FlowType) []PeriodProgress {
	weekly := flow == model.FlowWeekly
	out := make([]PeriodProgress, 0, len(cols))
	for _, c := range cols {
		row := PeriodProgress{Period: c}
		if weekly {
			row.Date = c.End
			if d, ok := WeeklyDate(s, c.Start, c.End); ok {
				row.Date, row.Recorded = d, true
			}
			row.AfterEnd = !p.EndDate.IsZero() && c.End.After(NextThursday(p.EndDate))
		} else {
			row.Date = c.Start
			if d, ok := MonthlyDate(s, c.Start, c.End); ok {
				row.Date, row.Recorded = d, true
			}
			row.AfterEnd = BeyondEnd(p, c.Start)
		}
		if row.AfterEnd {
			out = append(out, row)
			continue
		}

		row.Planned = read(ProgressAt(s, c.Start, c.End, notes.RowCumulativePct))
		row.Elapsed = read(ProgressAt(s, c.Start, c.End, notes.RowElapsedPercent))
		if weekly {
			row.Manpower = read(WeeklyResource(s, c, notes.RowWeeklyManpower))
			row.Equipment = read(WeeklyResource(s, c, notes.RowWeeklyEquipment))
		} else {
			row.Manpower = read(MonthlyResource(s, c, notes.RowMonthlyManpower))
			row.Equipment = read(MonthlyResource(s, c, notes.RowMonthlyEquipment))
		}
		out = append(out, row)
	}
	return out
}
