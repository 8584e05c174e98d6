package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/excel"
	"github.com/theirongolddev/evmboard/internal/pipeline"
	"github.com/theirongolddev/evmboard/internal/report"
	"github.com/theirongolddev/evmboard/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagOutput   string
	flagProjects []string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write Excel workbooks",
}

var exportCashFlowCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Cash flow with running totals",
	RunE:  runExportCashFlow,
}

var exportKPICmd = &cobra.Command{
	Use:   "kpi",
	Short: "Portfolio KPI summary",
	RunE:  runExportKPI,
}

var exportProjectCmd = &cobra.Command{
	Use:   "project <name>",
	Short: "One project's details, history and KPI",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportProject,
}

var exportTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Import template prefilled with every project",
	RunE:  runExportTemplate,
}

var exportTimelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Project-by-period matrix",
	RunE:  runExportTimeline,
}

var exportOriginalCmd = &cobra.Command{
	Use:   "original",
	Short: "The last imported workbook, unchanged",
	RunE:  runExportOriginal,
}

var exportReportCmd = &cobra.Command{
	Use:   "report <kind>",
	Short: "Management report workbook",
	Long:  "Kinds: " + reportKindList(),
	Args:  cobra.ExactArgs(1),
	RunE:  runExportReport,
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "Output file (default: generated name in the current directory)")

	exportCashFlowCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Limit to one project")
	for _, c := range []*cobra.Command{exportCashFlowCmd, exportTimelineCmd, exportReportCmd} {
		c.Flags().StringVar(&flagFrom, "from", "", "First date (YYYY-MM-DD)")
		c.Flags().StringVar(&flagTo, "to", "", "Last date (YYYY-MM-DD)")
	}

	exportTimelineCmd.Flags().StringVar(&flagView, "view", viewFinancial, "financial, planned, actual, manpower or equipment")
	exportTimelineCmd.Flags().StringVar(&flagKind, "kind", "cumulative", "Financial flow kind: cumulative or interval")
	exportTimelineCmd.Flags().StringVar(&flagFlow, "flow", "", "Period: daily, weekly, monthly or yearly (default from config)")
	exportTimelineCmd.Flags().BoolVar(&flagPeak, "peak", false, "Progress views: use the period maximum")
	exportTimelineCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Only projects whose name contains this")

	exportReportCmd.Flags().StringSliceVar(&flagProjects, "projects", nil, "Projects to include (default all)")

	exportCmd.AddCommand(exportCashFlowCmd, exportKPICmd, exportProjectCmd, exportTemplateCmd,
		exportTimelineCmd, exportOriginalCmd, exportReportCmd)
	rootCmd.AddCommand(exportCmd)
}

func reportKindList() string {
	names := make([]string, len(report.Kinds))
	for i, k := range report.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// exportName is the default file name: base plus today's date.
func exportName(base string) string {
	return fmt.Sprintf("%s_%s.xlsx", base, time.Now().Format("20060102"))
}

// writeExport writes data to --output or the default name.
func writeExport(defaultName string, data []byte) error {
	path := flagOutput
	if path == "" {
		path = defaultName
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Debug("export written", zap.String("path", path), zap.Int("bytes", len(data)))
	fmt.Printf("  Wrote %s (%s)\n", path, cli.FormatFileSize(int64(len(data))))
	return nil
}

// newExporter attaches the last imported workbook when there is one.
func newExporter(st *store.Store) *excel.Exporter {
	ex := &excel.Exporter{}
	orig, err := excel.LatestOriginal(st)
	if err == nil {
		ex.Original = &orig
	}
	return ex
}

func runExportCashFlow(_ *cobra.Command, _ []string) error {
	from, to, err := dateRange()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	rows, err := st.CashFlow(flagProject, from, to)
	if err != nil {
		return err
	}
	title := "Portfolio"
	points := pipeline.PortfolioCashFlow(rows)
	if flagProject != "" {
		title = flagProject
		points = pipeline.ProjectCashFlow(rows)
	}
	if len(points) > 0 {
		if from.IsZero() {
			from = points[0].Date
		}
		if to.IsZero() {
			to = points[len(points)-1].Date
		}
	}
	data, err := newExporter(st).CashFlowReport(title, from, to, points)
	if err != nil {
		return err
	}
	return writeExport(exportName("cashflow"), data)
}

func runExportKPI(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	pf, err := evm.New(st, thresholds()).Portfolio(commandContext(cmd))
	if err != nil {
		return err
	}
	data, err := newExporter(st).PortfolioKPIReport(pf)
	if err != nil {
		return err
	}
	return writeExport(exportName("portfolio_kpi"), data)
}

func runExportProject(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	p, err := st.Project(args[0])
	if err != nil {
		return fmt.Errorf("project %q: %w", args[0], err)
	}
	entries, err := st.Progress(p.Name)
	if err != nil {
		return err
	}
	var kpi *evm.KPI
	if k, ok := evm.Compute(p, entries, thresholds()); ok {
		kpi = &k
	}
	data, err := newExporter(st).ProjectReport(p, entries, kpi)
	if err != nil {
		return err
	}
	return writeExport(exportName("project_"+excel.SheetName(p.DisplayCode())), data)
}

func runExportTemplate(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	projects, err := st.Projects()
	if err != nil {
		return err
	}
	progress, err := st.ProgressByProject()
	if err != nil {
		return err
	}
	data, err := excel.ProjectTemplate(projects, progress)
	if err != nil {
		return err
	}
	return writeExport(exportName("projects_template"), data)
}

func runExportTimeline(_ *cobra.Command, _ []string) error {
	req, err := timelineFromFlags()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	tl, err := buildTimeline(st, req)
	if err != nil {
		return err
	}
	data, err := newExporter(st).Timeline(excel.SheetName(req.title()), tl)
	if err != nil {
		return err
	}
	return writeExport(exportName("timeline_"+req.View), data)
}

func runExportOriginal(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	orig, err := excel.LatestOriginal(st)
	if errors.Is(err, excel.ErrNoTemplate) {
		return fmt.Errorf("%w; run `evmboard import` first", err)
	}
	if err != nil {
		return err
	}
	name := filepath.Base(orig.Name)
	if orig.Name == "" {
		name = exportName("original")
	}
	return writeExport(name, orig.Content)
}

func runExportReport(_ *cobra.Command, args []string) error {
	kind, ok := report.ParseKind(args[0])
	if !ok {
		return fmt.Errorf("unknown report %q: want one of %s", args[0], reportKindList())
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

	in, err := report.Collect(st, flagProjects, from, to, thresholds())
	if err != nil {
		return err
	}
	data, err := report.Generate(kind, in)
	if errors.Is(err, report.ErrNoProjects) {
		return fmt.Errorf("%w; add projects first", err)
	}
	if err != nil {
		return err
	}
	return writeExport(exportName(strings.ReplaceAll(string(kind), "-", "_")), data)
}
