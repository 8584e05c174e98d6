package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/excel"
	"github.com/theirongolddev/evmboard/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagImportForce    bool
	flagImportDryRun   bool
	flagImportNoBackup bool
)

var importCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Replace all projects with those of a template workbook",
	Long: "Reads one project per sheet. Existing projects and progress are\n" +
		"replaced; the database is backed up first unless --no-backup is set.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagImportForce, "force", false, "Import even if this workbook was imported before")
	importCmd.Flags().BoolVar(&flagImportDryRun, "dry-run", false, "Parse and report without changing the database")
	importCmd.Flags().BoolVar(&flagImportNoBackup, "no-backup", false, "Skip the automatic backup")
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	path := args[0]
	//nolint:gosec // workbook path is given by the local user
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading workbook: %w", err)
	}
	progressf("  Reading %s...\n", filepath.Base(path))

	if flagImportDryRun {
		res, err := excel.ParseTemplate(bytes.NewReader(content))
		if err != nil {
			return err
		}
		printImportResult("DRY RUN  "+filepath.Base(path), res)
		return nil
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if !flagImportNoBackup {
		if stats, err := st.Stats(); err == nil && stats.Projects > 0 {
			if _, err := createBackup(st); err != nil {
				return fmt.Errorf("backing up before import: %w", err)
			}
		}
	}

	im := excel.Importer{Sink: st, Hash: store.HashContent, Log: logger}
	res, err := im.Import(filepath.Base(path), content, flagImportForce)
	if errors.Is(err, excel.ErrAlreadyImported) {
		fmt.Printf("  %v\n  Use --force to import it again.\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	printImportResult("IMPORTED  "+filepath.Base(path), res)
	return nil
}

func printImportResult(title string, res *excel.ImportResult) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()
	if len(res.Projects) == 0 {
		fmt.Println(cli.RenderWarning("  No projects found; nothing was imported."))
	} else {
		rows := make([][]string, 0, len(res.Projects))
		for _, ip := range res.Projects {
			rows = append(rows, []string{
				ip.Sheet,
				truncate(ip.Project.Name, 32),
				ip.Project.DisplayCode(),
				cli.FormatMoney(ip.Project.TotalBudget),
				fmt.Sprintf("%d", len(ip.Entries)),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Sheet", "Project", "Code", "Budget", "Entries"},
			Rows:    rows,
		}))
		fmt.Printf("\n  %d projects, %d progress entries\n", len(res.Projects), res.Entries())
	}
	for _, w := range res.Warnings {
		fmt.Println(cli.RenderWarning("  warning: " + w))
	}
	for _, e := range res.Errors {
		fmt.Println(cli.RenderWarning("  error: " + e))
	}
}
