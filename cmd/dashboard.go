package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/report"

	"github.com/spf13/cobra"
)

var flagStatus string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Portfolio overview with per-project status",
	RunE:  runDashboard,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, dashboardCmd} {
		c.Flags().StringVarP(&flagStatus, "status", "s", "", "Only list projects with this status: ahead, on-track or behind")
	}
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	status, err := model.ParseStatus(flagStatus)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	projects, err := st.Projects()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println()
		fmt.Println("  No projects yet. Add one with `evmboard project add` or import a workbook with `evmboard import`.")
		return nil
	}

	th := thresholds()
	all, err := evm.New(st, th).Performance(commandContext(cmd))
	if err != nil {
		return err
	}
	pf := evm.Summarize(all)
	pf.Projects = len(projects)
	pf.Details = nil
	printPortfolio(pf)

	shown := evm.FilterDashboard(all, status, th)
	fmt.Println()
	title := "PROJECTS"
	if status != "" {
		title = fmt.Sprintf("PROJECTS  %s", status)
	}
	if len(shown) == 0 {
		fmt.Println(cli.RenderMuted(fmt.Sprintf("  No projects match status %q.", status)))
	} else {
		printKPITable(title, shown)
	}

	withData := make(map[string]bool, len(all))
	for _, k := range all {
		withData[k.Project] = true
	}
	var idle []string
	for _, p := range projects {
		if !withData[p.Name] {
			idle = append(idle, p.Name)
		}
	}
	if len(idle) > 0 && status == "" {
		fmt.Println()
		fmt.Println(cli.RenderMuted(fmt.Sprintf("  %d without progress: %s", len(idle), joinLimited(idle, 6))))
	}

	if recs := report.Recommendations(all, th); len(recs) > 0 {
		fmt.Println()
		fmt.Println(cli.RenderTitle("ACTIONS"))
		for _, r := range recs {
			fmt.Printf("  - %s\n", r)
		}
	}
	fmt.Println()
	return nil
}

// joinLimited joins up to n names and summarizes the rest.
func joinLimited(names []string, n int) string {
	if len(names) <= n {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:n], ", "), len(names)-n)
}
