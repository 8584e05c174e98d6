package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/config"
	"github.com/theirongolddev/evmboard/internal/evm"
	"github.com/theirongolddev/evmboard/internal/logging"
	"github.com/theirongolddev/evmboard/internal/store"
	"github.com/theirongolddev/evmboard/internal/validate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagDataDir  string
	flagCurrency string
	flagLogLevel string
	flagQuiet    bool
)

// Populated by PersistentPreRunE for every command.
var (
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:               "evmboard",
	Short:             "Construction project portfolio tracker",
	Long:              "Track planned vs actual progress and cost of construction projects,\nwith earned value KPIs, cash flow, Excel import/export and reports.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
	RunE: runDashboard,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagCurrency, "currency", "", "Currency code for amounts (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// setup loads the config, applies flag overrides and builds the logger.
func setup(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		cfg.General.DataDir = flagDataDir
	}
	if flagCurrency != "" {
		cfg.General.Currency = flagCurrency
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	cli.Currency = cfg.General.Currency

	logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	return nil
}

// openStore opens the configured database, creating the data directory.
func openStore() (*store.Store, error) {
	if err := os.MkdirAll(cfg.General.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	st, err := store.Open(config.DBPath(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return st, nil
}

func thresholds() evm.Thresholds {
	t := cfg.Thresholds
	return evm.Thresholds{
		AheadSPI:   t.AheadSPI,
		AheadCPI:   t.AheadCPI,
		OnTrackSPI: t.OnTrackSPI,
		OnTrackCPI: t.OnTrackCPI,
		TrendDelta: t.TrendDelta,
	}
}

// parseDateFlag parses an optional date flag; "" yields the zero time.
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := validate.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// progressf prints a progress line to stderr unless --quiet is set.
func progressf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
