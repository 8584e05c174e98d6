package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/evmboard/internal/config"
	"github.com/theirongolddev/evmboard/internal/tui"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&flagProject, "project", "p", "", "Only projects whose name contains this")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	app := tui.NewApp(st, tui.Options{
		Currency:        cfg.General.Currency,
		Thresholds:      thresholds(),
		Project:         flagProject,
		AutoRefresh:     cfg.TUI.AutoRefresh,
		RefreshInterval: time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second,
		NeedSetup:       !config.Exists(),
		DataDir:         cfg.General.DataDir,
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
