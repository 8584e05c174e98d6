package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/notes"

	"github.com/spf13/cobra"
)

var (
	flagProgDate        string
	flagProgPlanned     float64
	flagProgActual      float64
	flagProgPlannedCost float64
	flagProgActualCost  float64
	flagProgManpower    float64
	flagProgEquipment   float64
	flagProgNotes       string
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record and list progress entries",
}

var progressAddCmd = &cobra.Command{
	Use:   "add <project>",
	Short: "Record planned vs actual progress for a date",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgressAdd,
}

var progressListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's progress entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgressList,
}

func init() {
	f := progressAddCmd.Flags()
	f.StringVar(&flagProgDate, "date", "", "Entry date (required)")
	f.Float64Var(&flagProgPlanned, "planned", 0, "Planned completion percent (0-100)")
	f.Float64Var(&flagProgActual, "actual", 0, "Actual completion percent (0-100)")
	f.Float64Var(&flagProgPlannedCost, "planned-cost", 0, "Planned cost to date")
	f.Float64Var(&flagProgActualCost, "actual-cost", 0, "Actual cost to date")
	f.Float64Var(&flagProgManpower, "manpower", -1, "Manpower on site")
	f.Float64Var(&flagProgEquipment, "equipment", -1, "Equipment on site")
	f.StringVar(&flagProgNotes, "notes", "", "Raw notes string (R<row>:<value>|...); overrides --manpower/--equipment")
	_ = progressAddCmd.MarkFlagRequired("date")

	progressCmd.AddCommand(progressAddCmd, progressListCmd)
	rootCmd.AddCommand(progressCmd)
}

var errPercentRange = errors.New("completion percentages must be between 0 and 100")

func runProgressAdd(_ *cobra.Command, args []string) error {
	date, err := parseDateFlag("date", flagProgDate)
	if err != nil {
		return err
	}
	for _, v := range []float64{flagProgPlanned, flagProgActual} {
		if v < 0 || v > 100 {
			return errPercentRange
		}
	}

	e := model.ProgressEntry{
		Project:           args[0],
		EntryDate:         date,
		PlannedCompletion: flagProgPlanned,
		ActualCompletion:  flagProgActual,
		PlannedCost:       flagProgPlannedCost,
		ActualCost:        flagProgActualCost,
		Notes:             flagProgNotes,
	}
	if e.Notes == "" {
		e.Notes = entryNotes(e, flagProgManpower, flagProgEquipment)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if _, err := st.AddProgress(e); err != nil {
		return err
	}
	fmt.Printf("  Recorded %s for %q: %s planned, %s actual\n",
		cli.FormatDate(date), e.Project, cli.FormatPercent(e.PlannedCompletion), cli.FormatPercent(e.ActualCompletion))
	return nil
}

// entryNotes encodes a manually entered entry the way imported workbooks
// are stored, so timeline lookups read both alike. Negative resource
// counts are left out.
func entryNotes(e model.ProgressEntry, manpower, equipment float64) string {
	rec := notes.Record{
		Numbers: map[int]float64{
			notes.RowPlannedCost:      e.ActualCost,
			notes.RowCumulativeBudget: e.PlannedCost,
			notes.RowCumulativePct:    e.PlannedCompletion,
			notes.RowElapsedPercent:   e.ActualCompletion,
		},
		Dates: map[int]time.Time{},
	}
	if manpower >= 0 || equipment >= 0 {
		rec.Dates[notes.RowWeeklyDate] = e.EntryDate
		rec.Dates[notes.RowMonthlyDate] = e.EntryDate
	}
	if manpower >= 0 {
		rec.Numbers[notes.RowWeeklyManpower] = manpower
		rec.Numbers[notes.RowMonthlyManpower] = manpower
	}
	if equipment >= 0 {
		rec.Numbers[notes.RowWeeklyEquipment] = equipment
		rec.Numbers[notes.RowMonthlyEquipment] = equipment
	}
	return notes.Encode(rec)
}

func runProgressList(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	p, err := st.Project(args[0])
	if err != nil {
		return err
	}
	entries, err := st.Progress(p.Name)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("\n  No progress recorded.")
		return nil
	}

	th := thresholds()
	rows := make([][]string, 0, len(entries))
	for i := range entries {
		// KPIs as they stood at each entry
		k, _ := evm.Compute(p, entries[:i+1], th)
		e := entries[i]
		rows = append(rows, []string{
			cli.FormatDate(e.EntryDate),
			cli.FormatPercent(e.PlannedCompletion),
			cli.FormatPercent(e.ActualCompletion),
			cli.FormatMoney(e.PlannedCost),
			cli.FormatMoney(e.ActualCost),
			cli.FormatIndex(k.CPI),
			cli.FormatIndex(k.SPI),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("%s  %d entries", p.Name, len(entries)),
		Headers: []string{"Date", "Planned", "Actual", "Planned Cost", "Actual Cost", "CPI", "SPI"},
		Rows:    rows,
	}))
	return nil
}
