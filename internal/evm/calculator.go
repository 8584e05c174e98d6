package evm

import (
	"context"
	"fmt"
	"runtime"

	"github.com/theirongolddev/evmboard/internal/model"

	"golang.org/x/sync/errgroup"
)

// Source supplies projects and their progress. *store.Store satisfies it.
type Source interface {
	Projects() ([]model.Project, error)
	Project(name string) (model.Project, error)
	Progress(project string) ([]model.ProgressEntry, error)
}

// Calculator evaluates projects read from a Source.
type Calculator struct {
	src     Source
	th      Thresholds
	workers int
}

// New returns a Calculator over src using th for status labels.
func New(src Source, th Thresholds) *Calculator {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 4
	}
	return &Calculator{src: src, th: th, workers: workers}
}

// Thresholds returns the cut-offs in use.
func (c *Calculator) Thresholds() Thresholds {
	return c.th
}

// Project computes one project's KPI. ok is false when it has no progress.
func (c *Calculator) Project(name string) (KPI, bool, error) {
	p, err := c.src.Project(name)
	if err != nil {
		return KPI{}, false, err
	}
	entries, err := c.src.Progress(name)
	if err != nil {
		return KPI{}, false, err
	}
	k, ok := Compute(p, entries, c.th)
	return k, ok, nil
}

// Portfolio aggregates every project with progress data.
type Portfolio struct {
	Projects     int                  `json:"projects" yaml:"projects"`
	WithData     int                  `json:"with_data" yaml:"with_data"`
	TotalBudget  float64              `json:"total_budget" yaml:"total_budget"`
	TotalPV      float64              `json:"total_pv" yaml:"total_pv"`
	TotalEV      float64              `json:"total_ev" yaml:"total_ev"`
	TotalAC      float64              `json:"total_ac" yaml:"total_ac"`
	CPI          float64              `json:"cpi" yaml:"cpi"`
	SPI          float64              `json:"spi" yaml:"spi"`
	CV           float64              `json:"cv" yaml:"cv"`
	SV           float64              `json:"sv" yaml:"sv"`
	StatusCounts map[model.Status]int `json:"status_counts" yaml:"status_counts"`
	Details      []KPI                `json:"details" yaml:"details"`
}

// Performance computes the KPI of every project that has progress, in the
// store's project order.
func (c *Calculator) Performance(ctx context.Context) ([]KPI, error) {
	projects, err := c.src.Projects()
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}

	results := make([]KPI, len(projects))
	found := make([]bool, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, p := range projects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := c.src.Progress(p.Name)
			if err != nil {
				return fmt.Errorf("loading progress for %q: %w", p.Name, err)
			}
			results[i], found[i] = Compute(p, entries, c.th)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]KPI, 0, len(projects))
	for i := range results {
		if found[i] {
			out = append(out, results[i])
		}
	}
	return out, nil
}

// Portfolio sums the KPIs of every project with data. Portfolio indices are
// ratios of the totals, not averages of project indices.
func (c *Calculator) Portfolio(ctx context.Context) (Portfolio, error) {
	projects, err := c.src.Projects()
	if err != nil {
		return Portfolio{}, fmt.Errorf("loading projects: %w", err)
	}
	details, err := c.Performance(ctx)
	if err != nil {
		return Portfolio{}, err
	}
	pf := Summarize(details)
	pf.Projects = len(projects)
	return pf, nil
}

// Summarize folds project KPIs into portfolio totals.
func Summarize(details []KPI) Portfolio {
	pf := Portfolio{
		StatusCounts: map[model.Status]int{
			model.StatusAhead:   0,
			model.StatusOnTrack: 0,
			model.StatusBehind:  0,
		},
		Details: details,
	}
	for _, k := range details {
		pf.WithData++
		pf.TotalBudget += k.Budget
		pf.TotalPV += k.PV
		pf.TotalEV += k.EV
		pf.TotalAC += k.AC
		pf.StatusCounts[k.Status]++
	}
	pf.Projects = pf.WithData
	pf.CPI = ratio(pf.TotalEV, pf.TotalAC)
	pf.SPI = ratio(pf.TotalEV, pf.TotalPV)
	pf.CV = pf.TotalEV - pf.TotalAC
	pf.SV = pf.TotalEV - pf.TotalPV
	return pf
}

// Dashboard returns project KPIs matching status ("" for all). When
// filtering for On Track, projects under either on-track threshold are
// dropped as well.
func (c *Calculator) Dashboard(ctx context.Context, status model.Status) ([]KPI, error) {
	all, err := c.Performance(ctx)
	if err != nil {
		return nil, err
	}
	return FilterDashboard(all, status, c.th), nil
}

// FilterDashboard applies the dashboard status filter to computed KPIs.
func FilterDashboard(all []KPI, status model.Status, th Thresholds) []KPI {
	var out []KPI
	for _, k := range all {
		if status != "" && k.Status != status {
			continue
		}
		if status == model.StatusOnTrack && (k.SPI < th.OnTrackSPI || k.CPI < th.OnTrackCPI) {
			continue
		}
		out = append(out, k)
	}
	return out
}
