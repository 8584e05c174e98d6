package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagProject string
	flagFrom    string
	flagTo      string
	flagFlow    string
)

var cashflowCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Planned vs actual cost over time",
	Long: "Lists costs per entry date with running totals. With --flow the\n" +
		"entries are grouped per project and period instead.",
	RunE: runCashFlow,
}

func init() {
	cashflowCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Limit to one project")
	cashflowCmd.Flags().StringVar(&flagFrom, "from", "", "First entry date (YYYY-MM-DD)")
	cashflowCmd.Flags().StringVar(&flagTo, "to", "", "Last entry date (YYYY-MM-DD)")
	cashflowCmd.Flags().StringVar(&flagFlow, "flow", "", "Group by period: daily, weekly, monthly or yearly")
	cashflowCmd.Flags().StringVarP(&flagFormat, "format", "f", formatTable, "Output format: table, json or yaml")
	cashflowCmd.Flags().StringVar(&flagQuery, "query", "", "JSONPath query applied to json/yaml output")
	rootCmd.AddCommand(cashflowCmd)
}

// dateRange parses --from and --to.
func dateRange() (time.Time, time.Time, error) {
	from, err := parseDateFlag("from", flagFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateFlag("to", flagTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", flagTo, flagFrom)
	}
	return from, to, nil
}

func runCashFlow(_ *cobra.Command, _ []string) error {
	if err := checkFormat(flagFormat); err != nil {
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

	if flagProject != "" {
		if _, err := st.Project(flagProject); err != nil {
			return fmt.Errorf("project %q: %w", flagProject, err)
		}
	}
	rows, err := st.CashFlow(flagProject, from, to)
	if err != nil {
		return err
	}

	format := flagFormat
	if flagQuery != "" && format == formatTable {
		format = formatJSON
	}

	if flagFlow != "" {
		flow, err := model.ParseFlowType(flagFlow)
		if err != nil {
			return err
		}
		aggs := pipeline.AggregateFinancials(rows, flow)
		if format != formatTable {
			return emit(format, aggs, flagQuery)
		}
		printAggregates(flow, aggs)
		return nil
	}

	var points []pipeline.CashFlowPoint
	if flagProject != "" {
		points = pipeline.ProjectCashFlow(rows)
	} else {
		points = pipeline.PortfolioCashFlow(rows)
	}
	if format != formatTable {
		return emit(format, points, flagQuery)
	}
	printCashFlow(points)
	return nil
}

func cashFlowTitle() string {
	if flagProject != "" {
		return "CASH FLOW  " + flagProject
	}
	return "CASH FLOW  portfolio"
}

func printCashFlow(points []pipeline.CashFlowPoint) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(cashFlowTitle()))
	fmt.Println()
	if len(points) == 0 {
		fmt.Println(cli.RenderMuted("  No progress entries in range."))
		return
	}

	rows := make([][]string, 0, len(points)+1)
	cum := make([]float64, len(points))
	dates := make([]time.Time, len(points))
	for i, p := range points {
		cum[i], dates[i] = p.CumulativeActual, p.Date
		rows = append(rows, []string{
			cli.FormatDate(p.Date),
			cli.FormatMoney(p.PlannedCost),
			cli.FormatMoney(p.ActualCost),
			cli.FormatDelta(p.Variance),
			cli.FormatMoney(p.CumulativePlanned),
			cli.FormatMoney(p.CumulativeActual),
			cli.FormatDelta(p.CumulativeVariance),
		})
	}
	last := points[len(points)-1]
	rows = append(rows, []string{
		"TOTAL",
		cli.FormatMoney(last.CumulativePlanned),
		cli.FormatMoney(last.CumulativeActual),
		cli.FormatDelta(last.CumulativeVariance),
		"", "", "",
	})
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Planned", "Actual", "Variance", "Cum. Planned", "Cum. Actual", "Cum. Variance"},
		Rows:    rows,
	}))
	if rate := pipeline.BurnRate(cum, dates); rate > 0 {
		fmt.Printf("\n  Burn rate %s/day  %s\n", cli.FormatMoney(rate), cli.RenderSparkline(cum))
	}
}

func printAggregates(flow model.FlowType, aggs []pipeline.FinancialAggregate) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  by %s", cashFlowTitle(), flow)))
	fmt.Println()
	if len(aggs) == 0 {
		fmt.Println(cli.RenderMuted("  No progress entries in range."))
		return
	}
	rows := make([][]string, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, []string{
			truncate(a.Project, 28),
			a.Period,
			cli.FormatMoney(a.PlannedCost),
			cli.FormatMoney(a.ActualCost),
			cli.FormatPercent(a.PlannedCompletion),
			cli.FormatPercent(a.ActualCompletion),
			fmt.Sprintf("%d", a.Entries),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Period", "Planned", "Actual", "Planned %", "Actual %", "Entries"},
		Rows:    rows,
	}))
}
