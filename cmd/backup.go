package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/theirongolddev/evmboard/internal/backup"
	"github.com/theirongolddev/evmboard/internal/cli"
	"github.com/theirongolddev/evmboard/internal/store"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var flagRestoreYes bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list and restore zip backups of the data directory",
	RunE:  runBackupCreate,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Archive the database into the backup directory",
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup.zip|name>",
	Short: "Replace the database with a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

func init() {
	backupRestoreCmd.Flags().BoolVarP(&flagRestoreYes, "yes", "y", false, "Skip the confirmation prompt")
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

// backupManager manages backups of the configured data directory. st may be
// nil when no store is open.
func backupManager(st *store.Store) *backup.Manager {
	m := &backup.Manager{
		DataDir:   cfg.General.DataDir,
		BackupDir: cfg.General.BackupDir,
		Log:       logger,
	}
	if st != nil {
		m.Checkpoint = st.Checkpoint
	}
	return m
}

// createBackup archives the open store and reports where it went.
func createBackup(st *store.Store) (backup.Archive, error) {
	a, err := backupManager(st).Create()
	if err != nil {
		return a, err
	}
	progressf("  Backup %s (%s)\n", a.Path, cli.FormatFileSize(a.Size))
	return a, nil
}

func runBackupCreate(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	a, err := backupManager(st).Create()
	if err != nil {
		return err
	}
	fmt.Printf("  Created %s (%s)\n", a.Path, cli.FormatFileSize(a.Size))
	return nil
}

func runBackupList(_ *cobra.Command, _ []string) error {
	list, err := backupManager(nil).List()
	if err != nil {
		return err
	}
	fmt.Println()
	if len(list) == 0 {
		fmt.Printf("  No backups in %s\n", cfg.General.BackupDir)
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		rows = append(rows, []string{a.Name, a.Created.Format("2006-01-02 15:04:05"), cli.FormatFileSize(a.Size)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "BACKUPS  " + cfg.General.BackupDir,
		Headers: []string{"Name", "Created", "Size"},
		Rows:    rows,
	}))
	return nil
}

// resolveBackup accepts a path or a name inside the backup directory.
func resolveBackup(arg string) string {
	if filepath.Base(arg) == arg {
		return filepath.Join(cfg.General.BackupDir, arg)
	}
	return arg
}

func runBackupRestore(_ *cobra.Command, args []string) error {
	path := resolveBackup(args[0])

	if !flagRestoreYes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Replace the database in %s with %s?", cfg.General.DataDir, filepath.Base(path))).
			Description("The current data is backed up first.").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("  Restore cancelled.")
			return nil
		}
	}

	// Keep what is there now, then close the database before its files
	// are replaced.
	st, err := openStore()
	if err != nil {
		return err
	}
	if _, err := createBackup(st); err != nil && !errors.Is(err, backup.ErrNoDatabase) {
		_ = st.Close()
		return fmt.Errorf("backing up current data: %w", err)
	}
	if err := st.Close(); err != nil {
		return err
	}

	restored, err := backupManager(nil).Restore(path)
	if err != nil {
		return err
	}
	fmt.Printf("  Restored %d files from %s\n", len(restored), path)
	return nil
}
