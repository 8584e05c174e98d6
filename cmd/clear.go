package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var flagClearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every project, progress entry, resource and imported workbook",
	Long:  "Categories are kept. The database is backed up first.",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&flagClearYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	s, err := st.Stats()
	if err != nil {
		return err
	}
	if s.Projects == 0 && s.Records == 0 {
		fmt.Println("  Nothing to clear.")
		return nil
	}

	if !flagClearYes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %d projects and %d records?", s.Projects, s.Records)).
			Affirmative("Delete").
			Negative("Cancel").
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

	if _, err := createBackup(st); err != nil {
		return fmt.Errorf("backing up before clear: %w", err)
	}
	if err := st.ClearAll(); err != nil {
		return err
	}
	fmt.Printf("  Cleared %d projects and %d records.\n", s.Projects, s.Records)
	return nil
}
