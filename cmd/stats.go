package cmd

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/config"
	"github.com/theirongolddev/evmboard/internal/excel"
	"github.com/theirongolddev/evmboard/internal/model"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Database location, size and record counts",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	s, err := st.Stats()
	if err != nil {
		return err
	}
	cats, err := st.Categories()
	if err != nil {
		return err
	}
	byCategory, err := st.ProjectsByCategory()
	if err != nil {
		return err
	}
	backups, err := backupManager(nil).List()
	if err != nil {
		return err
	}

	lastImport := "never"
	if orig, err := excel.LatestOriginal(st); err == nil {
		lastImport = fmt.Sprintf("%s (%s)", orig.Name, orig.ImportedAt.Local().Format("2006-01-02 15:04"))
	}
	lastBackup := "none"
	if len(backups) > 0 {
		lastBackup = backups[0].Created.Format("2006-01-02 15:04")
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "DATABASE",
		Headers: []string{"Item", "Value"},
		Rows: [][]string{
			{"Config", config.Path()},
			{"Database", st.Path()},
			{"Size", fmt.Sprintf("%.2f MB", s.SizeMB)},
			{"Projects", cli.FormatNumber(int64(s.Projects))},
			{"Records", cli.FormatNumber(int64(s.Records))},
			{"Categories", cli.FormatNumber(int64(len(cats)))},
			{"Last import", lastImport},
			{"Backups", fmt.Sprintf("%d, latest %s", len(backups), lastBackup)},
		},
	}))

	if len(byCategory) > 0 {
		printCategoryBars(byCategory)
	}
	return nil
}

func printCategoryBars(byCategory map[string][]model.Project) {
	names := make([]string, 0, len(byCategory))
	most := 0
	for name, list := range byCategory {
		names = append(names, name)
		most = max(most, len(list))
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Println(cli.RenderTitle("PROJECTS BY CATEGORY"))
	fmt.Println()
	for _, name := range names {
		fmt.Println(cli.RenderHorizontalBar(name, float64(len(byCategory[name])), float64(most), 30))
	}
}
