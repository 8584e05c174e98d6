package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.General.Currency != "SAR" {
		t.Errorf("Currency = %q, want SAR", cfg.General.Currency)
	}
	if cfg.Thresholds.OnTrackSPI != 0.9 || cfg.Thresholds.AheadCPI != 1.0 {
		t.Errorf("Thresholds = %+v", cfg.Thresholds)
	}
	if filepath.Base(cfg.General.BackupDir) != "backups" {
		t.Errorf("BackupDir = %q", cfg.General.BackupDir)
	}
}

func TestSaveLoadAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.General.DataDir = filepath.Join(dir, "data")
	cfg.General.Currency = "USD"
	cfg.Thresholds.OnTrackCPI = 0.85
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("config perms = %o, want 600", info.Mode().Perm())
	}

	t.Setenv("EVMBOARD_CURRENCY", "EUR")
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.General.Currency != "EUR" {
		t.Errorf("Currency = %q, want env override EUR", got.General.Currency)
	}
	if got.Thresholds.OnTrackCPI != 0.85 {
		t.Errorf("OnTrackCPI = %v, want 0.85", got.Thresholds.OnTrackCPI)
	}
	if DBPath(got) != filepath.Join(dir, "data", "projects.db") {
		t.Errorf("DBPath = %q", DBPath(got))
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[general\ncurrency = "), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}
