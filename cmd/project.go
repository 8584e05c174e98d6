package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/store"
	"github.com/theirongolddev/evmboard/internal/validate"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	flagProjCode        string
	flagProjPO          string
	flagProjCategory    string
	flagProjExecuting   string
	flagProjConsulting  string
	flagProjContractor  string
	flagProjManager     string
	flagProjStart       string
	flagProjEnd         string
	flagProjBudget      string
	flagProjLocation    string
	flagProjType        string
	flagProjDescription string
	flagProjInteractive bool
	flagProjOrder       int
	flagProjYes         bool
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"projects"},
	Short:   "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add or update a project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects grouped by category",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a project with its latest progress and KPIs",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectMoveCmd = &cobra.Command{
	Use:   "move <name>",
	Short: "Move a project to another category or position",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectMove,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a project with its progress and resources",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

func init() {
	f := projectAddCmd.Flags()
	f.StringVar(&flagProjCode, "code", "", "Project or contract number")
	f.StringVar(&flagProjPO, "po", "", "Purchase order")
	f.StringVar(&flagProjCategory, "category", "", "Category name")
	f.StringVar(&flagProjExecuting, "executing", "", "Executing company")
	f.StringVar(&flagProjConsulting, "consulting", "", "Consulting company")
	f.StringVar(&flagProjContractor, "contractor", "", "Contractor")
	f.StringVar(&flagProjManager, "manager", "", "Project manager")
	f.StringVar(&flagProjStart, "start", "", "Start date (DD/MM/YYYY or YYYY-MM-DD)")
	f.StringVar(&flagProjEnd, "end", "", "End date")
	f.StringVar(&flagProjBudget, "budget", "", "Total budget")
	f.StringVar(&flagProjLocation, "location", "", "Location")
	f.StringVar(&flagProjType, "type", "", "Project type")
	f.StringVar(&flagProjDescription, "description", "", "Description")
	f.BoolVarP(&flagProjInteractive, "interactive", "i", false, "Fill the project in a form")

	projectMoveCmd.Flags().StringVar(&flagProjCategory, "category", "", "Target category (empty clears it)")
	projectMoveCmd.Flags().IntVar(&flagProjOrder, "order", 0, "Display position within the category")

	projectDeleteCmd.Flags().BoolVarP(&flagProjYes, "yes", "y", false, "Do not ask for confirmation")

	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectShowCmd, projectMoveCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}

// projectInput holds the raw text of a project being added.
type projectInput struct {
	Name, Code, PO, Category                        string
	Executing, Consulting, Contractor, Manager      string
	Start, End, Budget, Location, Type, Description string
}

func runProjectAdd(_ *cobra.Command, args []string) error {
	in := projectInput{
		Code: flagProjCode, PO: flagProjPO, Category: flagProjCategory,
		Executing: flagProjExecuting, Consulting: flagProjConsulting,
		Contractor: flagProjContractor, Manager: flagProjManager,
		Start: flagProjStart, End: flagProjEnd, Budget: flagProjBudget,
		Location: flagProjLocation, Type: flagProjType, Description: flagProjDescription,
	}
	if len(args) == 1 {
		in.Name = args[0]
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if flagProjInteractive || in.Name == "" {
		cats, err := st.Categories()
		if err != nil {
			return err
		}
		if err := projectForm(&in, cats).Run(); err != nil {
			return err
		}
	}

	p, err := buildProject(in)
	if err != nil {
		return err
	}
	if in.Category != "" {
		id, err := st.CategoryID(in.Category)
		if err != nil {
			return err
		}
		p.CategoryID = &id
	}

	if _, err := st.UpsertProject(p); err != nil {
		return err
	}
	fmt.Printf("  Saved project %q (%s, budget %s)\n", p.Name, p.DisplayCode(), cli.FormatMoney(p.TotalBudget))
	return nil
}

// buildProject validates the raw input and converts it to a project.
func buildProject(in projectInput) (model.Project, error) {
	name := validate.CleanText(in.Name)
	if err := validate.ProjectName(name); err != nil {
		return model.Project{}, err
	}
	budget, err := validate.ParseBudget(in.Budget)
	if err != nil {
		return model.Project{}, err
	}
	start, err := parseDateFlag("start", in.Start)
	if err != nil {
		return model.Project{}, err
	}
	end, err := parseDateFlag("end", in.End)
	if err != nil {
		return model.Project{}, err
	}
	if !start.IsZero() && !end.IsZero() {
		if err := validate.DateRange(start, end); err != nil {
			return model.Project{}, err
		}
	}

	return model.Project{
		Name:              name,
		Code:              validate.CleanText(in.Code),
		PurchaseOrder:     validate.CleanText(in.PO),
		ExecutingCompany:  validate.CleanText(in.Executing),
		ConsultingCompany: validate.CleanText(in.Consulting),
		Contractor:        validate.CleanText(in.Contractor),
		ProjectManager:    validate.CleanText(in.Manager),
		StartDate:         start,
		EndDate:           end,
		TotalBudget:       budget,
		Location:          validate.CleanText(in.Location),
		Type:              validate.CleanText(in.Type),
		Description:       validate.CleanText(in.Description),
	}, nil
}

func projectForm(in *projectInput, cats []model.Category) *huh.Form {
	catOpts := []huh.Option[string]{huh.NewOption("(none)", "")}
	for _, c := range cats {
		catOpts = append(catOpts, huh.NewOption(c.Name, c.Name))
	}
	dateCheck := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		_, err := validate.ParseDate(s)
		return err
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Project name").Value(&in.Name).Validate(validate.ProjectName),
			huh.NewInput().Title("Project code").Value(&in.Code),
			huh.NewInput().Title("Purchase order").Value(&in.PO),
			huh.NewSelect[string]().Title("Category").Options(catOpts...).Value(&in.Category),
			huh.NewInput().Title("Total budget").Value(&in.Budget).
				Validate(func(s string) error {
					_, err := validate.ParseBudget(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewInput().Title("Start date").Placeholder("DD/MM/YYYY").Value(&in.Start).Validate(dateCheck),
			huh.NewInput().Title("End date").Placeholder("DD/MM/YYYY").Value(&in.End).Validate(dateCheck),
			huh.NewInput().Title("Executing company").Value(&in.Executing),
			huh.NewInput().Title("Consulting company").Value(&in.Consulting),
			huh.NewInput().Title("Contractor").Value(&in.Contractor),
			huh.NewInput().Title("Project manager").Value(&in.Manager),
		),
		huh.NewGroup(
			huh.NewInput().Title("Location").Value(&in.Location),
			huh.NewInput().Title("Project type").Value(&in.Type),
			huh.NewText().Title("Description").Value(&in.Description),
		),
	)
}

func runProjectList(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	groups, err := st.ProjectsByCategory()
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("\n  No projects yet. Add one with `evmboard project add` or `evmboard import`.")
		return nil
	}

	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Println()
	for _, cat := range names {
		rows := make([][]string, 0, len(groups[cat]))
		for _, p := range groups[cat] {
			rows = append(rows, []string{
				truncate(p.Name, 32),
				p.DisplayCode(),
				cli.FormatDate(p.StartDate),
				cli.FormatDate(p.EndDate),
				cli.FormatMoney(p.TotalBudget),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("%s (%d)", cat, len(rows)),
			Headers: []string{"Project", "Code", "Start", "End", "Budget"},
			Rows:    rows,
		}))
		fmt.Println()
	}
	return nil
}

func runProjectShow(_ *cobra.Command, args []string) error {
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

	dur := validateDuration(p)
	fmt.Println()
	fmt.Println(cli.RenderTitle(p.Name))
	fmt.Println()
	fields := [][]string{
		{"Code", p.DisplayCode()},
		{"Category", orDash(p.CategoryName)},
		{"Executing", orDash(p.ExecutingCompany)},
		{"Consulting", orDash(p.ConsultingCompany)},
		{"Contractor", orDash(p.Contractor)},
		{"Manager", orDash(p.ProjectManager)},
		{"Location", orDash(p.Location)},
		{"Schedule", fmt.Sprintf("%s to %s (%s)", cli.FormatDate(p.StartDate), cli.FormatDate(p.EndDate), dur)},
		{"Budget", cli.FormatMoney(p.TotalBudget)},
		{"Entries", cli.FormatNumber(int64(len(entries)))},
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Field", "Value"}, Rows: fields}))

	th := thresholds()
	k, ok := evm.Compute(p, entries, th)
	if !ok {
		fmt.Println(cli.RenderMuted("\n  No progress recorded."))
		return nil
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "KPIs as of " + cli.FormatDate(k.AsOf),
		Headers: []string{"Planned", "Actual", "PV", "EV", "AC", "CPI", "SPI", "EAC", "Status"},
		Rows: [][]string{{
			cli.FormatPercent(k.PlannedPercent),
			cli.FormatPercent(k.ActualPercent),
			cli.FormatMoney(k.PV),
			cli.FormatMoney(k.EV),
			cli.FormatMoney(k.AC),
			cli.RenderIndex(k.CPI, th.AheadCPI, th.OnTrackCPI),
			cli.RenderIndex(k.SPI, th.AheadSPI, th.OnTrackSPI),
			cli.FormatMoney(k.EAC),
			cli.RenderStatus(k.Status),
		}},
	}))
	fmt.Printf("\n  %s\n", evm.CompletionStatus(k.PlannedPercent, k.ActualPercent))
	return nil
}

func validateDuration(p model.Project) string {
	d := validate.DurationBetween(p.StartDate, p.EndDate)
	if d.Days == 0 {
		return "-"
	}
	return fmt.Sprintf("%s, %.1f months", cli.FormatDays(d.Days), d.Months)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func runProjectMove(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var catID *int64
	if flagProjCategory != "" {
		id, err := st.CategoryID(flagProjCategory)
		if err != nil {
			return err
		}
		catID = &id
	}
	if err := st.MoveProject(args[0], catID, flagProjOrder); err != nil {
		return err
	}
	fmt.Printf("  Moved %q to %s at position %d\n", args[0], orDash(flagProjCategory), flagProjOrder)
	return nil
}

func runProjectDelete(_ *cobra.Command, args []string) error {
	name := args[0]
	if !flagProjYes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q with all its progress and resources?", name)).
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("  Cancelled.")
			return nil
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.DeleteProject(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no project named %q", name)
		}
		return err
	}
	fmt.Printf("  Deleted %q\n", name)
	return nil
}
