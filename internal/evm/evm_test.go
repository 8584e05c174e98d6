package evm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/theirongolddev/evmboard/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	projects []model.Project
	progress map[string][]model.ProgressEntry
}

func (f *fakeSource) Projects() ([]model.Project, error) { return f.projects, nil }

func (f *fakeSource) Project(name string) (model.Project, error) {
	for _, p := range f.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return model.Project{}, fmt.Errorf("project %q: not found", name)
}

func (f *fakeSource) Progress(name string) ([]model.ProgressEntry, error) {
	return f.progress[name], nil
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func entry(d int, planned, actual, cost float64) model.ProgressEntry {
	return model.ProgressEntry{EntryDate: day(d), PlannedCompletion: planned, ActualCompletion: actual, ActualCost: cost}
}

func TestComputeUsesLatestEntry(t *testing.T) {
	p := model.Project{Name: "Line", TotalBudget: 1000}
	// out of order on purpose
	entries := []model.ProgressEntry{entry(20, 50, 40, 500), entry(5, 10, 10, 90)}

	k, ok := Compute(p, entries, DefaultThresholds())
	require.True(t, ok)

	want := KPI{
		Project: "Line", AsOf: day(20), Budget: 1000,
		PlannedPercent: 50, ActualPercent: 40,
		PV: 500, EV: 400, AC: 500,
		CPI: 0.8, SPI: 0.8,
		CV: -100, SV: -100,
		CVPercent: -20, SVPercent: -20,
		EAC: 1250, ETC: 750,
		Status: model.StatusBehind,
	}
	if diff := cmp.Diff(want, k, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("KPI mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeZeroDenominators(t *testing.T) {
	k, ok := Compute(model.Project{Name: "New", TotalBudget: 1000}, []model.ProgressEntry{entry(1, 0, 0, 0)}, DefaultThresholds())
	require.True(t, ok)
	assert.Zero(t, k.CPI)
	assert.Zero(t, k.SPI)
	assert.Zero(t, k.CVPercent)
	assert.Equal(t, 1000.0, k.EAC, "EAC falls back to budget")
	assert.Equal(t, 1000.0, k.ETC)
	assert.Equal(t, model.StatusBehind, k.Status)

	_, ok = Compute(model.Project{Name: "Empty"}, nil, DefaultThresholds())
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, model.StatusAhead, th.Classify(1.0, 1.2))
	assert.Equal(t, model.StatusOnTrack, th.Classify(0.95, 1.3))
	assert.Equal(t, model.StatusOnTrack, th.Classify(0.9, 0.9))
	assert.Equal(t, model.StatusBehind, th.Classify(1.5, 0.89))
}

func newFixture() *fakeSource {
	return &fakeSource{
		projects: []model.Project{
			{Name: "Ahead", TotalBudget: 1000},
			{Name: "OnTrack", TotalBudget: 2000},
			{Name: "Behind", TotalBudget: 1000},
			{Name: "NoData", TotalBudget: 500},
		},
		progress: map[string][]model.ProgressEntry{
			"Ahead":   {entry(10, 40, 50, 400)},  // spi 1.25 cpi 1.25
			"OnTrack": {entry(10, 50, 47, 1000)}, // spi 0.94 cpi 0.94
			"Behind":  {entry(10, 50, 20, 400)},  // spi 0.4 cpi 0.5
		},
	}
}

func TestPortfolio(t *testing.T) {
	c := New(newFixture(), DefaultThresholds())
	pf, err := c.Portfolio(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, pf.Projects)
	assert.Equal(t, 3, pf.WithData)
	assert.InDelta(t, 400+1000+500, pf.TotalPV, 1e-9)
	assert.InDelta(t, 500+940+200, pf.TotalEV, 1e-9)
	assert.InDelta(t, 1800, pf.TotalAC, 1e-9)
	assert.InDelta(t, 1640.0/1800.0, pf.CPI, 1e-9)
	assert.InDelta(t, 1640.0/1900.0, pf.SPI, 1e-9)
	assert.Equal(t, map[model.Status]int{
		model.StatusAhead: 1, model.StatusOnTrack: 1, model.StatusBehind: 1,
	}, pf.StatusCounts)

	names := make([]string, 0, len(pf.Details))
	for _, d := range pf.Details {
		names = append(names, d.Project)
	}
	assert.Equal(t, []string{"Ahead", "OnTrack", "Behind"}, names, "details keep project order")
}

func TestDashboardFilter(t *testing.T) {
	c := New(newFixture(), DefaultThresholds())
	ctx := context.Background()

	all, err := c.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	behind, err := c.Dashboard(ctx, model.StatusBehind)
	require.NoError(t, err)
	require.Len(t, behind, 1)
	assert.Equal(t, "Behind", behind[0].Project)

	strict := Thresholds{AheadSPI: 1, AheadCPI: 1, OnTrackSPI: 0.9, OnTrackCPI: 0.9}
	kpis := []KPI{{Project: "x", Status: model.StatusOnTrack, SPI: 0.95, CPI: 0.95}}
	strict.OnTrackCPI = 0.96
	assert.Empty(t, FilterDashboard(kpis, model.StatusOnTrack, strict), "under-threshold on-track projects are dropped")
	assert.Len(t, FilterDashboard(kpis, "", strict), 1)
}

func TestTrend(t *testing.T) {
	src := &fakeSource{
		projects: []model.Project{{Name: "T", TotalBudget: 1000}},
		progress: map[string][]model.ProgressEntry{
			"T": {
				entry(1, 10, 5, 100),  // cpi 0.5 spi 0.5
				entry(2, 20, 16, 200), // cpi 0.8 spi 0.8
				entry(3, 30, 30, 300), // cpi 1.0 spi 1.0
				entry(4, 40, 44, 400), // cpi 1.1 spi 1.1
			},
		},
	}
	c := New(src, DefaultThresholds())
	ta, err := c.Trend("T")
	require.NoError(t, err)
	assert.Len(t, ta.Points, 4)
	assert.InDelta(t, 1.1, ta.CPI, 1e-9)
	assert.Equal(t, model.TrendImproving, ta.CPITrend)
	assert.Equal(t, model.TrendImproving, ta.SPITrend)

	src.progress["T"] = src.progress["T"][:1]
	_, err = c.Trend("T")
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestDirection(t *testing.T) {
	assert.Equal(t, model.TrendStable, Direction(nil, 0.05))
	assert.Equal(t, model.TrendStable, Direction([]float64{1, 1.04}, 0.05))
	assert.Equal(t, model.TrendDeclining, Direction([]float64{2, 1, 0.9, 0.7}, 0.05))
	// only the last three values count
	assert.Equal(t, model.TrendStable, Direction([]float64{0, 1, 1, 1}, 0.05))
}

func TestCompletionStatus(t *testing.T) {
	assert.Equal(t, "ahead of plan", CompletionStatus(50, 50))
	assert.Equal(t, "within plan", CompletionStatus(50, 45))
	assert.Equal(t, "behind plan", CompletionStatus(50, 44))
}
