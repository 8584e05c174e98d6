package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagFormat string
	flagQuery  string
)

var kpiCmd = &cobra.Command{
	Use:   "kpi [project]",
	Short: "Earned value KPIs for one project or the whole portfolio",
	Long: "Without a project, prints the portfolio totals and every project's KPIs.\n" +
		"--query takes a JSONPath expression over the JSON output, e.g.\n" +
		"  evmboard kpi --format json --query '$.details[?(@.cpi < 0.9)].project'",
	Args: cobra.MaximumNArgs(1),
	RunE: runKPI,
}

func init() {
	kpiCmd.Flags().StringVarP(&flagFormat, "format", "f", formatTable, "Output format: table, json or yaml")
	kpiCmd.Flags().StringVar(&flagQuery, "query", "", "JSONPath query applied to json/yaml output")
	rootCmd.AddCommand(kpiCmd)
}

func runKPI(cmd *cobra.Command, args []string) error {
	if err := checkFormat(flagFormat); err != nil {
		return err
	}
	format := flagFormat
	if flagQuery != "" && format == formatTable {
		format = formatJSON
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	calc := evm.New(st, thresholds())

	if len(args) == 1 {
		k, ok, err := calc.Project(args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("\n  %q has no progress recorded.\n", args[0])
			return nil
		}
		if format != formatTable {
			return emit(format, k, flagQuery)
		}
		printKPITable(fmt.Sprintf("KPI  %s  as of %s", k.Project, cli.FormatDate(k.AsOf)), []evm.KPI{k})
		return nil
	}

	pf, err := calc.Portfolio(commandContext(cmd))
	if err != nil {
		return err
	}
	if format != formatTable {
		return emit(format, pf, flagQuery)
	}
	printPortfolio(pf)
	return nil
}

func printPortfolio(pf evm.Portfolio) {
	th := thresholds()
	fmt.Println()
	fmt.Println(cli.RenderTitle("PORTFOLIO KPIs"))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Projects", "Budget", "PV", "EV", "AC", "CPI", "SPI", "Ahead", "On Track", "Behind"},
		Rows: [][]string{{
			fmt.Sprintf("%d/%d", pf.WithData, pf.Projects),
			cli.FormatMoney(pf.TotalBudget),
			cli.FormatMoney(pf.TotalPV),
			cli.FormatMoney(pf.TotalEV),
			cli.FormatMoney(pf.TotalAC),
			cli.RenderIndex(pf.CPI, th.AheadCPI, th.OnTrackCPI),
			cli.RenderIndex(pf.SPI, th.AheadSPI, th.OnTrackSPI),
			cli.FormatNumber(int64(pf.StatusCounts[model.StatusAhead])),
			cli.FormatNumber(int64(pf.StatusCounts[model.StatusOnTrack])),
			cli.FormatNumber(int64(pf.StatusCounts[model.StatusBehind])),
		}},
	}))
	if len(pf.Details) > 0 {
		fmt.Println()
		printKPITable("PROJECTS", pf.Details)
	}
}

func printKPITable(title string, kpis []evm.KPI) {
	th := thresholds()
	rows := make([][]string, 0, len(kpis))
	for _, k := range kpis {
		rows = append(rows, []string{
			truncate(k.Project, 28),
			cli.FormatPercent(k.PlannedPercent),
			cli.FormatPercent(k.ActualPercent),
			cli.FormatMoneyCompact(k.PV),
			cli.FormatMoneyCompact(k.EV),
			cli.FormatMoneyCompact(k.AC),
			cli.RenderIndex(k.CPI, th.AheadCPI, th.OnTrackCPI),
			cli.RenderIndex(k.SPI, th.AheadSPI, th.OnTrackSPI),
			cli.FormatMoneyCompact(k.EAC),
			cli.RenderStatus(k.Status),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Project", "Planned", "Actual", "PV", "EV", "AC", "CPI", "SPI", "EAC", "Status"},
		Rows:    rows,
	}))
}

// commandContext returns cmd's context, or Background when run outside
// Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
