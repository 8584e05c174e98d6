// Package report builds the portfolio report workbooks and the Markdown
// briefing that summarizes a set of projects for management.
package report

import (
	"fmt"
	"time"

	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/pipeline"
)

// Source supplies report data. *store.Store satisfies it.
type Source interface {
	Projects() ([]model.Project, error)
	ProgressByProject() (map[string][]model.ProgressEntry, error)
	Resources(project string, kind model.ResourceKind) ([]model.Resource, error)
}

// Input is the data one report covers: the selected projects, their
// progress up to To, and the KPIs computed from it.
type Input struct {
	Projects   []model.Project
	Progress   map[string][]model.ProgressEntry
	Resources  map[string][]model.Resource
	From, To   time.Time
	Thresholds evm.Thresholds
	Generated  time.Time

	kpis map[string]evm.KPI
}

// NewInput prepares report data. Entries after to are dropped so KPIs are
// those at the end of the period; a zero to keeps everything.
func NewInput(projects []model.Project, progress map[string][]model.ProgressEntry,
	resources map[string][]model.Resource, from, to time.Time, th evm.Thresholds) *Input {
	in := &Input{
		Projects:   projects,
		Progress:   make(map[string][]model.ProgressEntry, len(projects)),
		Resources:  resources,
		From:       from,
		To:         to,
		Thresholds: th,
		Generated:  time.Now(),
		kpis:       make(map[string]evm.KPI, len(projects)),
	}
	for _, p := range projects {
		var kept []model.ProgressEntry
		for _, e := range evm.SortByDate(progress[p.Name]) {
			if !to.IsZero() && pipeline.Day(e.EntryDate).After(pipeline.Day(to)) {
				continue
			}
			kept = append(kept, e)
		}
		in.Progress[p.Name] = kept
		if k, ok := evm.Compute(p, kept, th); ok {
			in.kpis[p.Name] = k
		}
	}
	return in
}

// Collect loads the named projects from src. No names selects every project.
func Collect(src Source, names []string, from, to time.Time, th evm.Thresholds) (*Input, error) {
	all, err := src.Projects()
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	projects := all
	if len(names) > 0 {
		byName := make(map[string]model.Project, len(all))
		for _, p := range all {
			byName[p.Name] = p
		}
		projects = make([]model.Project, 0, len(names))
		for _, n := range names {
			p, ok := byName[n]
			if !ok {
				return nil, fmt.Errorf("project %q not found", n)
			}
			projects = append(projects, p)
		}
	}

	progress, err := src.ProgressByProject()
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	resources := make(map[string][]model.Resource, len(projects))
	for _, p := range projects {
		rs, err := src.Resources(p.Name, "")
		if err != nil {
			return nil, err
		}
		resources[p.Name] = rs
	}
	return NewInput(projects, progress, resources, from, to, th), nil
}

// KPI returns the project's indicators. ok is false without progress.
func (in *Input) KPI(project string) (evm.KPI, bool) {
	k, ok := in.kpis[project]
	return k, ok
}

// KPIs returns the indicators of every project with progress, in project
// order.
func (in *Input) KPIs() []evm.KPI {
	var out []evm.KPI
	for _, p := range in.Projects {
		if k, ok := in.kpis[p.Name]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Latest returns the project's last entry within the period.
func (in *Input) Latest(project string) (model.ProgressEntry, bool) {
	entries := in.Progress[project]
	if len(entries) == 0 {
		return model.ProgressEntry{}, false
	}
	return entries[len(entries)-1], true
}

// Window returns the project's entries between From and To.
func (in *Input) Window(project string) []model.ProgressEntry {
	var out []model.ProgressEntry
	for _, e := range in.Progress[project] {
		if !in.From.IsZero() && pipeline.Day(e.EntryDate).Before(pipeline.Day(in.From)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// CashFlowRows joins the period's entries with their project budgets.
func (in *Input) CashFlowRows() []model.CashFlowRow {
	var rows []model.CashFlowRow
	for _, p := range in.Projects {
		for _, e := range in.Window(p.Name) {
			rows = append(rows, model.CashFlowRow{
				Project:           p.Name,
				EntryDate:         e.EntryDate,
				PlannedCost:       e.PlannedCost,
				ActualCost:        e.ActualCost,
				PlannedCompletion: e.PlannedCompletion,
				ActualCompletion:  e.ActualCompletion,
				TotalBudget:       p.TotalBudget,
			})
		}
	}
	return rows
}

// AsOf is the date the report describes: To, or the generation time.
func (in *Input) AsOf() time.Time {
	if !in.To.IsZero() {
		return in.To
	}
	return in.Generated
}

// Period describes the report window in words.
func (in *Input) Period() string {
	from, to := "start", "today"
	if !in.From.IsZero() {
		from = in.From.Format(model.DateLayout)
	}
	if !in.To.IsZero() {
		to = in.To.Format(model.DateLayout)
	}
	return fmt.Sprintf("Period %s to %s, generated %s", from, to, in.Generated.Format(model.DateLayout))
}
