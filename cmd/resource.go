package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/validate"

	"github.com/spf13/cobra"
)

var (
	flagResKind     string
	flagResName     string
	flagResQuantity float64
	flagResRate     float64
	flagResStart    string
	flagResEnd      string
	flagResNotes    string
)

var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Manage labor and equipment allocations",
}

var resourceAddCmd = &cobra.Command{
	Use:   "add <project>",
	Short: "Allocate labor or equipment to a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceAdd,
}

var resourceListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's allocations",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceList,
}

func init() {
	f := resourceAddCmd.Flags()
	f.StringVar(&flagResKind, "kind", "labor", "labor or equipment")
	f.StringVar(&flagResName, "name", "", "Resource name, e.g. Electricians or Crane")
	f.Float64Var(&flagResQuantity, "quantity", 1, "Units allocated")
	f.Float64Var(&flagResRate, "rate", 0, "Daily rate per unit")
	f.StringVar(&flagResStart, "start", "", "Allocation start date")
	f.StringVar(&flagResEnd, "end", "", "Allocation end date")
	f.StringVar(&flagResNotes, "notes", "", "Notes")
	_ = resourceAddCmd.MarkFlagRequired("name")

	resourceListCmd.Flags().StringVar(&flagResKind, "kind", "", "Only labor or equipment")

	resourceCmd.AddCommand(resourceAddCmd, resourceListCmd)
	rootCmd.AddCommand(resourceCmd)
}

func parseResourceKind(s string) (model.ResourceKind, error) {
	switch k := model.ResourceKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", model.Labor, model.Equipment:
		return k, nil
	}
	return "", fmt.Errorf("unknown resource kind %q: want labor or equipment", s)
}

func runResourceAdd(_ *cobra.Command, args []string) error {
	kind, err := parseResourceKind(flagResKind)
	if err != nil {
		return err
	}
	start, err := parseDateFlag("start", flagResStart)
	if err != nil {
		return err
	}
	end, err := parseDateFlag("end", flagResEnd)
	if err != nil {
		return err
	}
	if err := validate.DateRange(start, end); err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	r := model.Resource{
		Project:   args[0],
		Kind:      kind,
		Name:      validate.CleanText(flagResName),
		Quantity:  flagResQuantity,
		DailyRate: flagResRate,
		StartDate: start,
		EndDate:   end,
		Notes:     flagResNotes,
	}
	if _, err := st.AddResource(r); err != nil {
		return err
	}
	fmt.Printf("  Allocated %s (%s) to %q: %s\n", r.Name, r.Kind, r.Project, cli.FormatMoney(r.Cost()))
	return nil
}

func runResourceList(_ *cobra.Command, args []string) error {
	kind, err := parseResourceKind(flagResKind)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if _, err := st.Project(args[0]); err != nil {
		return err
	}
	list, err := st.Resources(args[0], kind)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("\n  No allocations recorded.")
		return nil
	}

	var total float64
	rows := make([][]string, 0, len(list)+1)
	for _, r := range list {
		total += r.Cost()
		rows = append(rows, []string{
			truncate(r.Name, 24),
			string(r.Kind),
			fmt.Sprintf("%.1f", r.Quantity),
			cli.FormatMoney(r.DailyRate),
			cli.FormatDate(r.StartDate),
			cli.FormatDate(r.EndDate),
			cli.FormatNumber(int64(r.Days())),
			cli.FormatMoney(r.Cost()),
		})
	}
	rows = append(rows, []string{"Total", "", "", "", "", "", "", cli.FormatMoney(total)})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "RESOURCES  " + args[0],
		Headers: []string{"Name", "Kind", "Qty", "Rate", "Start", "End", "Days", "Cost"},
		Rows:    rows,
	}))
	return nil
}
