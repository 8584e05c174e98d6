package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"

	"github.com/spf13/cobra"
)

var trendCmd = &cobra.Command{
	Use:   "trend <project>",
	Short: "CPI and SPI history of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().StringVarP(&flagFormat, "format", "f", formatTable, "Output format: table, json or yaml")
	trendCmd.Flags().StringVar(&flagQuery, "query", "", "JSONPath query applied to json/yaml output")
	rootCmd.AddCommand(trendCmd)
}

func runTrend(_ *cobra.Command, args []string) error {
	if err := checkFormat(flagFormat); err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ta, err := evm.New(st, thresholds()).Trend(args[0])
	if errors.Is(err, evm.ErrInsufficientData) {
		fmt.Printf("\n  %s: %v.\n", args[0], err)
		return nil
	}
	if err != nil {
		return err
	}

	if flagFormat != formatTable || flagQuery != "" {
		format := flagFormat
		if format == formatTable {
			format = formatJSON
		}
		return emit(format, ta, flagQuery)
	}

	th := thresholds()
	cpis := make([]float64, len(ta.Points))
	spis := make([]float64, len(ta.Points))
	rows := make([][]string, 0, len(ta.Points))
	for i, pt := range ta.Points {
		cpis[i], spis[i] = pt.CPI, pt.SPI
		rows = append(rows, []string{
			cli.FormatDate(pt.Date),
			cli.FormatMoneyCompact(pt.PV),
			cli.FormatMoneyCompact(pt.EV),
			cli.FormatMoneyCompact(pt.AC),
			cli.RenderIndex(pt.CPI, th.AheadCPI, th.OnTrackCPI),
			cli.RenderIndex(pt.SPI, th.AheadSPI, th.OnTrackSPI),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TREND  " + ta.Project))
	fmt.Println()
	fmt.Printf("  CPI %s  %s  %s\n", cli.FormatIndex(ta.CPI), cli.RenderSparkline(cpis), ta.CPITrend)
	fmt.Printf("  SPI %s  %s  %s\n", cli.FormatIndex(ta.SPI), cli.RenderSparkline(spis), ta.SPITrend)
	fmt.Println()
	if len(rows) == 0 {
		fmt.Println(cli.RenderMuted("  No budget set, so no index history."))
		return nil
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "PV", "EV", "AC", "CPI", "SPI"},
		Rows:    rows,
	}))
	return nil
}
