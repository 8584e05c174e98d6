package evm

import (
	"errors"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"
)

// ErrInsufficientData is returned when a trend needs more entries than exist.
var ErrInsufficientData = errors.New("at least two progress entries are required")

// trendWindow is how many recent points decide a trend direction.
const trendWindow = 3

// TrendPoint is the index pair computed at one progress entry.
type TrendPoint struct {
	Date time.Time `json:"date" yaml:"date"`
	PV   float64   `json:"pv" yaml:"pv"`
	EV   float64   `json:"ev" yaml:"ev"`
	AC   float64   `json:"ac" yaml:"ac"`
	CPI  float64   `json:"cpi" yaml:"cpi"`
	SPI  float64   `json:"spi" yaml:"spi"`
}

// TrendAnalysis describes how a project's indices have moved.
type TrendAnalysis struct {
	Project  string       `json:"project" yaml:"project"`
	Points   []TrendPoint `json:"points" yaml:"points"`
	CPI      float64      `json:"latest_cpi" yaml:"latest_cpi"`
	SPI      float64      `json:"latest_spi" yaml:"latest_spi"`
	CPITrend model.Trend  `json:"cpi_trend" yaml:"cpi_trend"`
	SPITrend model.Trend  `json:"spi_trend" yaml:"spi_trend"`
}

// Trend evaluates every entry of a project and the direction of its indices.
func (c *Calculator) Trend(name string) (TrendAnalysis, error) {
	p, err := c.src.Project(name)
	if err != nil {
		return TrendAnalysis{}, err
	}
	entries, err := c.src.Progress(name)
	if err != nil {
		return TrendAnalysis{}, err
	}
	return AnalyzeTrend(p, entries, c.th.TrendDelta)
}

// AnalyzeTrend computes the index series of p. A project without a budget
// has no series; its directions are Stable.
func AnalyzeTrend(p model.Project, entries []model.ProgressEntry, delta float64) (TrendAnalysis, error) {
	if len(entries) < 2 {
		return TrendAnalysis{}, ErrInsufficientData
	}

	ta := TrendAnalysis{Project: p.Name}
	var cpis, spis []float64
	if p.TotalBudget > 0 {
		for _, e := range SortByDate(entries) {
			pt := TrendPoint{
				Date: e.EntryDate,
				PV:   p.TotalBudget * e.PlannedCompletion / 100,
				EV:   p.TotalBudget * e.ActualCompletion / 100,
				AC:   e.ActualCost,
			}
			pt.CPI = ratio(pt.EV, pt.AC)
			pt.SPI = ratio(pt.EV, pt.PV)
			ta.Points = append(ta.Points, pt)
			cpis = append(cpis, pt.CPI)
			spis = append(spis, pt.SPI)
		}
	}
	if n := len(ta.Points); n > 0 {
		ta.CPI = ta.Points[n-1].CPI
		ta.SPI = ta.Points[n-1].SPI
	}
	ta.CPITrend = Direction(cpis, delta)
	ta.SPITrend = Direction(spis, delta)
	return ta, nil
}

// Direction classifies the mean step change over the last three values.
func Direction(values []float64, delta float64) model.Trend {
	if len(values) > trendWindow {
		values = values[len(values)-trendWindow:]
	}
	if len(values) < 2 {
		return model.TrendStable
	}
	var sum float64
	for i := 1; i < len(values); i++ {
		sum += values[i] - values[i-1]
	}
	avg := sum / float64(len(values)-1)
	switch {
	case avg > delta:
		return model.TrendImproving
	case avg < -delta:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}
