package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/theirongolddev/evmboard/internal/config"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/money"
	"github.com/theirongolddev/evmboard/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupAnswers are edited as text and parsed once the form completes.
type setupAnswers struct {
	DataDir    string
	Currency   string
	FlowType   string
	OnTrackSPI string
	OnTrackCPI string
	Theme      string
	LogLevel   string
}

func validThreshold(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("enter a number such as 0.9")
	}
	if v <= 0 || v > 2 {
		return errors.New("must be between 0 and 2")
	}
	return nil
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Start from the file, not from cfg, so flag overrides are not saved.
	cur, err := config.Load()
	if err != nil {
		return err
	}

	a := setupAnswers{
		DataDir:    cur.General.DataDir,
		Currency:   cur.General.Currency,
		FlowType:   cur.General.FlowType,
		OnTrackSPI: strconv.FormatFloat(cur.Thresholds.OnTrackSPI, 'f', -1, 64),
		OnTrackCPI: strconv.FormatFloat(cur.Thresholds.OnTrackCPI, 'f', -1, 64),
		Theme:      cur.Appearance.Theme,
		LogLevel:   cur.Log.Level,
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to evmboard").
				Description("Settings are saved to "+config.Path()),
			huh.NewInput().
				Title("Data directory").
				Description("Holds projects.db and the backups folder").
				Value(&a.DataDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("data directory is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Currency code").
				Description("ISO 4217, e.g. SAR, USD, EUR").
				Value(&a.Currency).
				Validate(func(s string) error {
					if !money.Known(s) {
						return fmt.Errorf("unknown currency %q", s)
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Default cash flow period").
				Options(huh.NewOptions(
					string(model.FlowDaily), string(model.FlowWeekly),
					string(model.FlowMonthly), string(model.FlowYearly))...).
				Value(&a.FlowType),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("On-track SPI threshold").
				Description("Projects below this schedule index are Behind").
				Value(&a.OnTrackSPI).
				Validate(validThreshold),
			huh.NewInput().
				Title("On-track CPI threshold").
				Description("Projects below this cost index are Behind").
				Value(&a.OnTrackCPI).
				Validate(validThreshold),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&a.Theme),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&a.LogLevel),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return err
	}

	if cur.General.BackupDir == filepath.Join(cur.General.DataDir, "backups") {
		cur.General.BackupDir = "" // follows the data directory
	}
	cur.General.DataDir = strings.TrimSpace(a.DataDir)
	cur.General.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	cur.General.FlowType = a.FlowType
	cur.Thresholds.OnTrackSPI, _ = strconv.ParseFloat(strings.TrimSpace(a.OnTrackSPI), 64)
	cur.Thresholds.OnTrackCPI, _ = strconv.ParseFloat(strings.TrimSpace(a.OnTrackCPI), 64)
	cur.Appearance.Theme = a.Theme
	cur.Log.Level = a.LogLevel

	if err := config.Save(cur); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `evmboard setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
