package cmd

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"
	"github.com/theirongolddev/evmboard/internal/pipeline"
	"github.com/theirongolddev/evmboard/internal/store"

	"github.com/spf13/cobra"
)

// Timeline views.
const (
	viewFinancial = "financial"
	viewPlanned   = "planned"
	viewActual    = "actual"
	viewManpower  = "manpower"
	viewEquipment = "equipment"
	viewProgress  = "progress"
)

// maxTerminalColumns caps the periods printed to the terminal; exports get
// every column.
const maxTerminalColumns = 12

var (
	flagView string
	flagKind string
	flagPeak bool
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Project-by-period matrix of cost, progress or resources",
	Long: "Views:\n" +
		"  financial  planned cost per period (--kind cumulative or interval)\n" +
		"  planned    cumulative planned percent\n" +
		"  actual     actual percent\n" +
		"  manpower   manpower counts from the resource rows\n" +
		"  equipment  equipment counts from the resource rows\n" +
		"  progress   per project, each week or month with its recorded date,\n" +
		"             planned and elapsed percent, manpower and equipment",
	RunE: runTimeline,
}

func init() {
	timelineCmd.Flags().StringVar(&flagView, "view", viewFinancial, "financial, planned, actual, manpower, equipment or progress")
	timelineCmd.Flags().StringVar(&flagKind, "kind", string(model.FlowCumulative), "Financial flow kind: cumulative or interval")
	timelineCmd.Flags().StringVar(&flagFlow, "flow", "", "Period: daily, weekly, monthly or yearly (default from config)")
	timelineCmd.Flags().BoolVar(&flagPeak, "peak", false, "Progress views: use the period maximum instead of the last value")
	timelineCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Only projects whose name contains this")
	timelineCmd.Flags().StringVar(&flagFrom, "from", "", "First day (default: earliest project start)")
	timelineCmd.Flags().StringVar(&flagTo, "to", "", "Last day (default: latest project end)")
	rootCmd.AddCommand(timelineCmd)

	resourcesTimelineCmd.Flags().StringVar(&flagFlow, "flow", "", "Period: weekly or monthly (default weekly)")
	resourcesTimelineCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Only projects whose name contains this")
	resourcesTimelineCmd.Flags().StringVar(&flagFrom, "from", "", "First day (default: earliest project start)")
	resourcesTimelineCmd.Flags().StringVar(&flagTo, "to", "", "Last day (default: latest project end)")
	rootCmd.AddCommand(resourcesTimelineCmd)
}

var resourcesTimelineCmd = &cobra.Command{
	Use:   "resources-timeline",
	Short: "Manpower and equipment per period from the resource rows",
	RunE:  runResourcesTimeline,
}

// timelineCell picks the cell function of a view.
func timelineCell(view string, kind model.FlowKind, flow model.FlowType, peak bool) (pipeline.CellFunc, error) {
	switch view {
	case viewFinancial:
		return pipeline.FinancialCell(kind, flow), nil
	case viewPlanned:
		return pipeline.ProgressCell(notes.RowCumulativePct, peak), nil
	case viewActual:
		return pipeline.ProgressCell(notes.RowElapsedPercent, peak), nil
	case viewManpower:
		return pipeline.ResourceCell(flow, model.Labor), nil
	case viewEquipment:
		return pipeline.ResourceCell(flow, model.Equipment), nil
	}
	return nil, fmt.Errorf("unknown view %q", view)
}

// timelineSpan widens unset bounds to the projects' dates, falling back to
// their entry dates.
func timelineSpan(projects []model.Project, progress map[string][]model.ProgressEntry, from, to time.Time) (time.Time, time.Time) {
	var lo, hi time.Time
	widen := func(d time.Time) {
		if d.IsZero() {
			return
		}
		if lo.IsZero() || d.Before(lo) {
			lo = d
		}
		if hi.IsZero() || d.After(hi) {
			hi = d
		}
	}
	for _, p := range projects {
		widen(p.StartDate)
		widen(p.EndDate)
		for _, e := range progress[p.Name] {
			widen(e.EntryDate)
		}
	}
	if from.IsZero() {
		from = lo
	}
	if to.IsZero() {
		to = hi
	}
	return from, to
}

type timelineRequest struct {
	View    string
	Kind    model.FlowKind
	Flow    model.FlowType
	Peak    bool
	Project string
	From    time.Time
	To      time.Time
}

// timelineFromFlags reads the shared timeline flags.
func timelineFromFlags() (timelineRequest, error) {
	req := timelineRequest{View: flagView, Peak: flagPeak, Project: flagProject}
	var err error
	if req.Kind, err = model.ParseFlowKind(flagKind); err != nil {
		return req, err
	}
	flow := flagFlow
	if flow == "" {
		flow = cfg.General.FlowType
	}
	if req.Flow, err = model.ParseFlowType(flow); err != nil {
		return req, err
	}
	req.From, req.To, err = dateRange()
	return req, err
}

func (r timelineRequest) title() string {
	if r.View == viewFinancial {
		return fmt.Sprintf("%s %s %s", r.Flow, r.Kind, r.View)
	}
	return fmt.Sprintf("%s %s", r.Flow, r.View)
}

// buildTimeline loads the selected projects and evaluates the view.
func buildTimeline(st *store.Store, req timelineRequest) (*pipeline.Timeline, error) {
	cell, err := timelineCell(req.View, req.Kind, req.Flow, req.Peak)
	if err != nil {
		return nil, err
	}
	projects, err := st.Projects()
	if err != nil {
		return nil, err
	}
	if req.Project != "" {
		projects = pipeline.FilterByProject(projects, req.Project)
	}
	progress, err := st.ProgressByProject()
	if err != nil {
		return nil, err
	}
	from, to := timelineSpan(projects, progress, req.From, req.To)
	if from.IsZero() || to.IsZero() {
		return &pipeline.Timeline{}, nil
	}
	cols := pipeline.Columns(from, to, req.Flow)

	progressFn := func(current, total int) {
		progressf("\r  Evaluating %s", cli.RenderProgressBar(current, total, 20))
		if current == total {
			progressf("\n")
		}
	}
	return pipeline.BuildTimeline(projects, progress, cols, cell, progressFn), nil
}

func runTimeline(_ *cobra.Command, _ []string) error {
	req, err := timelineFromFlags()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if req.View == viewProgress {
		return runProgressTables(st, req)
	}
	tl, err := buildTimeline(st, req)
	if err != nil {
		return err
	}
	printTimeline(req, tl)
	return nil
}

func printTimeline(req timelineRequest, tl *pipeline.Timeline) {
	fmt.Println()
	fmt.Println(cli.RenderTitle("TIMELINE  " + req.title()))
	fmt.Println()
	if len(tl.Rows) == 0 || len(tl.Columns) == 0 {
		fmt.Println(cli.RenderMuted("  Nothing to show: no projects with dates in range."))
		return
	}

	start := 0
	if len(tl.Columns) > maxTerminalColumns {
		start = len(tl.Columns) - maxTerminalColumns
		fmt.Fprintf(os.Stderr, "  Showing the last %d of %d periods; export to xlsx for all.\n\n",
			maxTerminalColumns, len(tl.Columns))
	}

	value := cli.FormatMoneyCompact
	if req.View != viewFinancial {
		value = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}

	headers := []string{"Project"}
	for _, c := range tl.Columns[start:] {
		headers = append(headers, c.Label)
	}
	rows := make([][]string, 0, len(tl.Rows)+1)
	for _, r := range tl.Rows {
		row := []string{truncate(r.Project.Name, 24)}
		for j := start; j < len(r.Values); j++ {
			if r.Present[j] {
				row = append(row, value(r.Values[j]))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	totals := []string{"TOTAL"}
	for _, v := range tl.Totals[start:] {
		totals = append(totals, value(v))
	}
	rows = append(rows, totals)

	fmt.Print(cli.RenderTable(cli.Table{Headers: headers, Rows: rows}))
}

// resourceFlow resolves the period of the resources timeline. Resource rows
// are recorded weekly and monthly only.
func resourceFlow(value string) (model.FlowType, error) {
	if value == "" {
		return model.FlowWeekly, nil
	}
	flow, err := model.ParseFlowType(value)
	if err != nil {
		return "", err
	}
	if flow != model.FlowWeekly && flow != model.FlowMonthly {
		return "", fmt.Errorf("resources are tracked weekly or monthly, not %s", flow)
	}
	return flow, nil
}

func runResourcesTimeline(_ *cobra.Command, _ []string) error {
	flow, err := resourceFlow(flagFlow)
	if err != nil {
		return err
	}
	from, to, err := dateRange()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	for _, view := range []string{viewManpower, viewEquipment} {
		req := timelineRequest{View: view, Flow: flow, Project: flagProject, From: from, To: to}
		tl, err := buildTimeline(st, req)
		if err != nil {
			return err
		}
		printTimeline(req, tl)
	}
	return nil
}

// runProgressTables prints the weekly or monthly progress table of every
// selected project.
func runProgressTables(st *store.Store, req timelineRequest) error {
	if req.Flow != model.FlowWeekly && req.Flow != model.FlowMonthly {
		return fmt.Errorf("the progress view is weekly or monthly, not %s", req.Flow)
	}
	projects, err := st.Projects()
	if err != nil {
		return err
	}
	if req.Project != "" {
		projects = pipeline.FilterByProject(projects, req.Project)
	}
	progress, err := st.ProgressByProject()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s PROGRESS", strings.ToUpper(string(req.Flow)))))
	if len(projects) == 0 {
		fmt.Println()
		fmt.Println(cli.RenderMuted("  No projects match."))
		return nil
	}
	for _, p := range projects {
		from, to := timelineSpan([]model.Project{p}, progress, req.From, req.To)
		if from.IsZero() || to.IsZero() {
			continue
		}
		cols := pipeline.Columns(from, to, req.Flow)
		rows := pipeline.ProgressTable(p, pipeline.NewSeries(progress[p.Name]), cols, req.Flow)
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("%s  %s", p.DisplayCode(), p.Name),
			Headers: []string{"Period", "Date", "Planned", "Elapsed", "Manpower", "Equipment"},
			Rows:    progressTableRows(rows),
		}))
	}
	fmt.Println()
	fmt.Println(cli.RenderMuted("  * no date recorded for the period; its Thursday or first day is shown"))
	return nil
}

func progressTableRows(rows []pipeline.PeriodProgress) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		date := cli.FormatDate(r.Date)
		if !r.Recorded {
			date += "*"
		}
		if r.AfterEnd {
			out = append(out, []string{r.Period.Label, date, "outside project", "-", "-", "-"})
			continue
		}
		out = append(out, []string{
			r.Period.Label,
			date,
			readingText(r.Planned, cli.FormatPercent),
			readingText(r.Elapsed, cli.FormatPercent),
			readingText(r.Manpower, formatCount),
			readingText(r.Equipment, formatCount),
		})
	}
	return out
}

func readingText(r pipeline.Reading, format func(float64) string) string {
	if !r.OK {
		return "-"
	}
	return format(r.Value)
}

func formatCount(v float64) string {
	return cli.FormatNumber(int64(math.Round(v)))
}
