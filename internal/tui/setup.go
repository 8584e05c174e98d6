package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/config"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// setupValues holds the first-run wizard answers.
type setupValues struct {
	DataDir     string
	Currency    string
	Theme       string
	AutoRefresh bool
}

var currencyOptions = []string{"SAR", "AED", "USD", "EUR", "GBP", "EGP", "KWD", "QAR"}

func defaultSetupValues(opts Options) setupValues {
	v := setupValues{
		DataDir:     opts.DataDir,
		Currency:    opts.Currency,
		Theme:       theme.Active.Name,
		AutoRefresh: opts.AutoRefresh,
	}
	if v.DataDir == "" {
		v.DataDir = config.DefaultDataDir()
	}
	if v.Currency == "" {
		v.Currency = cli.Currency
	}
	return v
}

func newSetupForm(projects int, v *setupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	currencies := currencyOptions
	if !contains(currencies, v.Currency) {
		currencies = append([]string{v.Currency}, currencies...)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to evmboard").
				Description(fmt.Sprintf("Found %d projects. A few settings and you are ready.", projects)),
			huh.NewInput().
				Title("Data directory").
				Description("Where projects.db and backups live").
				Value(&v.DataDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("data directory is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Currency").
				Options(huh.NewOptions(currencies...)...).
				Value(&v.Currency),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
			huh.NewConfirm().
				Title("Refresh the dashboard automatically?").
				Value(&v.AutoRefresh),
		),
	).WithShowHelp(true)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// saveSetupConfig applies the wizard answers and writes them to the config
// file.
func (a *App) saveSetupConfig() error {
	if a.setupVals == nil {
		return nil
	}
	v := *a.setupVals
	theme.SetActive(v.Theme)
	cli.Currency = v.Currency
	a.opts.Currency = v.Currency
	a.opts.DataDir = strings.TrimSpace(v.DataDir)
	a.autoRefresh = v.AutoRefresh

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.General.DataDir = a.opts.DataDir
	cfg.General.Currency = v.Currency
	cfg.Appearance.Theme = v.Theme
	cfg.TUI.AutoRefresh = v.AutoRefresh
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving setup: %w", err)
	}
	return nil
}
