// Package evm computes earned value indicators for projects and portfolios.
package evm

import (
	"sort"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
)

// Thresholds are the index cut-offs used to label project status.
type Thresholds struct {
	AheadSPI   float64
	AheadCPI   float64
	OnTrackSPI float64
	OnTrackCPI float64
	TrendDelta float64
}

// DefaultThresholds returns the standard cut-offs: both indices at 1.0 or
// above is Ahead, both at 0.9 or above is On Track.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AheadSPI:   1.0,
		AheadCPI:   1.0,
		OnTrackSPI: 0.9,
		OnTrackCPI: 0.9,
		TrendDelta: 0.05,
	}
}

// Classify labels a project from its schedule and cost indices.
func (th Thresholds) Classify(spi, cpi float64) model.Status {
	switch {
	case spi >= th.AheadSPI && cpi >= th.AheadCPI:
		return model.StatusAhead
	case spi >= th.OnTrackSPI && cpi >= th.OnTrackCPI:
		return model.StatusOnTrack
	default:
		return model.StatusBehind
	}
}

// KPI is the earned value snapshot of one project at its latest entry.
type KPI struct {
	Project        string       `json:"project" yaml:"project"`
	AsOf           time.Time    `json:"as_of" yaml:"as_of"`
	Budget         float64      `json:"budget" yaml:"budget"`
	PlannedPercent float64      `json:"planned_percent" yaml:"planned_percent"`
	ActualPercent  float64      `json:"actual_percent" yaml:"actual_percent"`
	PV             float64      `json:"pv" yaml:"pv"`
	EV             float64      `json:"ev" yaml:"ev"`
	AC             float64      `json:"ac" yaml:"ac"`
	CPI            float64      `json:"cpi" yaml:"cpi"`
	SPI            float64      `json:"spi" yaml:"spi"`
	CV             float64      `json:"cv" yaml:"cv"`
	SV             float64      `json:"sv" yaml:"sv"`
	CVPercent      float64      `json:"cv_percent" yaml:"cv_percent"`
	SVPercent      float64      `json:"sv_percent" yaml:"sv_percent"`
	EAC            float64      `json:"eac" yaml:"eac"`
	ETC            float64      `json:"etc" yaml:"etc"`
	Status         model.Status `json:"status" yaml:"status"`
}

// Compute derives the KPI of p from its latest progress entry. ok is false
// when there are no entries.
func Compute(p model.Project, entries []model.ProgressEntry, th Thresholds) (KPI, bool) {
	if len(entries) == 0 {
		return KPI{}, false
	}
	latest := Latest(entries)

	k := KPI{
		Project:        p.Name,
		AsOf:           latest.EntryDate,
		Budget:         p.TotalBudget,
		PlannedPercent: latest.PlannedCompletion,
		ActualPercent:  latest.ActualCompletion,
		PV:             p.TotalBudget * latest.PlannedCompletion / 100,
		EV:             p.TotalBudget * latest.ActualCompletion / 100,
		AC:             latest.ActualCost,
	}
	k.CPI = ratio(k.EV, k.AC)
	k.SPI = ratio(k.EV, k.PV)
	k.CV = k.EV - k.AC
	k.SV = k.EV - k.PV
	if k.PV > 0 {
		k.CVPercent = k.CV / k.PV * 100
		k.SVPercent = k.SV / k.PV * 100
	}
	k.EAC = EstimateAtCompletion(p.TotalBudget, k.CPI)
	if k.EAC > k.AC {
		k.ETC = k.EAC - k.AC
	}
	k.Status = th.Classify(k.SPI, k.CPI)
	return k, true
}

// EstimateAtCompletion projects the final cost from the budget and CPI.
// With no cost performance yet the budget stands.
func EstimateAtCompletion(budget, cpi float64) float64 {
	if cpi > 0 {
		return budget / cpi
	}
	return budget
}

// Latest returns the entry with the greatest date; ties go to the later
// element.
func Latest(entries []model.ProgressEntry) model.ProgressEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if !e.EntryDate.Before(best.EntryDate) {
			best = e
		}
	}
	return best
}

// SortByDate returns a copy of entries in ascending date order.
func SortByDate(entries []model.ProgressEntry) []model.ProgressEntry {
	out := make([]model.ProgressEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EntryDate.Before(out[j].EntryDate)
	})
	return out
}

// CompletionStatus compares actual against planned completion: at or above
// plan is "ahead of plan", within 90% of plan is "within plan".
func CompletionStatus(planned, actual float64) string {
	switch {
	case actual >= planned:
		return "ahead of plan"
	case actual >= planned*0.9:
		return "within plan"
	default:
		return "behind plan"
	}
}

func ratio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	return 0
}
