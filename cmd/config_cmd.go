// Package cmd implements the evmboard CLI commands.
package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/theirongolddev/evmboard/internal/config"
	"github.com/theirongolddev/evmboard/internal/model"
	"github.com/theirongolddev/evmboard/internal/money"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting in the config file",
	Long:  "Keys: " + strings.Join(configKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(config.Path())
	},
}

func init() {
	configCmd.AddCommand(configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

type configSetter func(c *config.Config, v string) error

func setFloat(dst func(*config.Config) *float64) configSetter {
	return func(c *config.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("want a positive number, got %q", v)
		}
		*dst(c) = f
		return nil
	}
}

func setInt(dst func(*config.Config) *int) configSetter {
	return func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("want a positive integer, got %q", v)
		}
		*dst(c) = n
		return nil
	}
}

var configSetters = map[string]configSetter{
	"general.data_dir":   func(c *config.Config, v string) error { c.General.DataDir = v; return nil },
	"general.backup_dir": func(c *config.Config, v string) error { c.General.BackupDir = v; return nil },
	"general.currency": func(c *config.Config, v string) error {
		if !money.Known(v) {
			return fmt.Errorf("unknown currency %q", v)
		}
		c.General.Currency = strings.ToUpper(v)
		return nil
	},
	"general.flow_type": func(c *config.Config, v string) error {
		f, err := model.ParseFlowType(v)
		if err != nil {
			return err
		}
		c.General.FlowType = string(f)
		return nil
	},
	"thresholds.ahead_spi":     setFloat(func(c *config.Config) *float64 { return &c.Thresholds.AheadSPI }),
	"thresholds.ahead_cpi":     setFloat(func(c *config.Config) *float64 { return &c.Thresholds.AheadCPI }),
	"thresholds.on_track_spi":  setFloat(func(c *config.Config) *float64 { return &c.Thresholds.OnTrackSPI }),
	"thresholds.on_track_cpi":  setFloat(func(c *config.Config) *float64 { return &c.Thresholds.OnTrackCPI }),
	"thresholds.trend_delta":   setFloat(func(c *config.Config) *float64 { return &c.Thresholds.TrendDelta }),
	"server.addr":              func(c *config.Config, v string) error { c.Server.Addr = v; return nil },
	"server.poll_interval_sec": setInt(func(c *config.Config) *int { return &c.Server.PollIntervalSec }),
	"server.events_buffer":     setInt(func(c *config.Config) *int { return &c.Server.EventsBuffer }),
	"appearance.theme":         func(c *config.Config, v string) error { c.Appearance.Theme = v; return nil },
	"tui.auto_refresh": func(c *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("want true or false, got %q", v)
		}
		c.TUI.AutoRefresh = b
		return nil
	},
	"tui.refresh_interval_sec": setInt(func(c *config.Config) *int { return &c.TUI.RefreshIntervalSec }),
	"log.level": func(c *config.Config, v string) error {
		switch v {
		case "debug", "info", "warn", "error":
			c.Log.Level = v
			return nil
		}
		return fmt.Errorf("want debug, info, warn or error, got %q", v)
	},
	"log.format": func(c *config.Config, v string) error {
		if v != "json" && v != "console" {
			return fmt.Errorf("want json or console, got %q", v)
		}
		c.Log.Format = v
		return nil
	},
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runConfigSet(_ *cobra.Command, args []string) error {
	set, ok := configSetters[args[0]]
	if !ok {
		return fmt.Errorf("unknown key %q; valid keys: %s", args[0], strings.Join(configKeys(), ", "))
	}
	c, err := config.Load()
	if err != nil {
		return err
	}
	if err := set(&c, strings.TrimSpace(args[1])); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if err := config.Save(c); err != nil {
		return err
	}
	fmt.Printf("  %s = %s\n", args[0], args[1])
	return nil
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory:   %s\n", cfg.General.DataDir)
	fmt.Printf("    Database:         %s\n", config.DBPath(cfg))
	fmt.Printf("    Backup directory: %s\n", cfg.General.BackupDir)
	fmt.Printf("    Currency:         %s\n", cfg.General.Currency)
	fmt.Printf("    Flow type:        %s\n", cfg.General.FlowType)
	fmt.Println()

	t := cfg.Thresholds
	fmt.Println("  [Thresholds]")
	fmt.Printf("    Ahead:    SPI >= %.2f and CPI >= %.2f\n", t.AheadSPI, t.AheadCPI)
	fmt.Printf("    On Track: SPI >= %.2f and CPI >= %.2f\n", t.OnTrackSPI, t.OnTrackCPI)
	fmt.Printf("    Trend delta: %.2f\n", t.TrendDelta)
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:       %s\n", cfg.Server.Addr)
	fmt.Printf("    Poll interval: %s\n", cfg.Server.PollInterval())
	fmt.Printf("    Events buffer: %d\n", cfg.Server.EventsBuffer)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh: %v every %ds\n", cfg.TUI.AutoRefresh, cfg.TUI.RefreshIntervalSec)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s  Format: %s\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Println()

	fmt.Println("  Run `evmboard setup` or `evmboard config set` to reconfigure.")
	return nil
}
