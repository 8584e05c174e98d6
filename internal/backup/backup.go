// Package backup archives the data directory into timestamped zip files and
// restores it from them.
package backup

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoDatabase is returned when there is no database file to back up.
var ErrNoDatabase = errors.New("database file not found")

// ErrUnsafeEntry is returned when an archive entry would land outside the
// data directory or is not a file a backup contains.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

const (
	dbName     = "projects.db"
	namePrefix = "backup_"
	nameLayout = "20060102_150405"
)

// Archive describes one backup file.
type Archive struct {
	Name    string
	Path    string
	Size    int64
	Created time.Time
}

// Manager creates and restores backups of one data directory.
type Manager struct {
	DataDir   string
	BackupDir string
	// Checkpoint, when set, runs before the database is copied.
	Checkpoint func() error
	Log        *zap.Logger
	Now        func() time.Time
}

func (m *Manager) log() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// included reports whether a data directory file belongs in a backup.
func included(name string) bool {
	return name == dbName || strings.EqualFold(filepath.Ext(name), ".csv")
}

// Create writes backup_<timestamp>.zip holding the database and every CSV
// file of the data directory.
func (m *Manager) Create() (Archive, error) {
	dbPath := filepath.Join(m.DataDir, dbName)
	if _, err := os.Stat(dbPath); err != nil {
		return Archive{}, fmt.Errorf("%s: %w", dbPath, ErrNoDatabase)
	}
	if m.Checkpoint != nil {
		if err := m.Checkpoint(); err != nil {
			return Archive{}, err
		}
	}

	entries, err := os.ReadDir(m.DataDir)
	if err != nil {
		return Archive{}, fmt.Errorf("reading data dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && included(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if err := os.MkdirAll(m.BackupDir, 0o750); err != nil {
		return Archive{}, fmt.Errorf("creating backup dir: %w", err)
	}
	created := m.now()
	out, name, err := createArchiveFile(m.BackupDir, created)
	if err != nil {
		return Archive{}, err
	}
	path := filepath.Join(m.BackupDir, name)
	if err := writeZip(out, m.DataDir, files); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return Archive{}, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return Archive{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Archive{}, err
	}
	m.log().Info("backup created",
		zap.String("file", path),
		zap.Int("entries", len(files)),
		zap.Int64("bytes", info.Size()),
	)
	return Archive{Name: name, Path: path, Size: info.Size(), Created: created}, nil
}

// maxSameSecond bounds the numbered names tried for backups created within
// one second.
const maxSameSecond = 100

// createArchiveFile exclusively creates backup_<stamp>.zip, falling back to
// backup_<stamp>_2.zip and up when that name is taken.
func createArchiveFile(dir string, created time.Time) (*os.File, string, error) {
	stamp := namePrefix + created.Format(nameLayout)
	for seq := 1; seq <= maxSameSecond; seq++ {
		name := stamp + ".zip"
		if seq > 1 {
			name = fmt.Sprintf("%s_%d.zip", stamp, seq)
		}
		path := filepath.Join(dir, name)
		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec // path built from configured dir
		if err == nil {
			return out, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return nil, "", fmt.Errorf("creating %s: %d backups already exist for this second", stamp, maxSameSecond)
}

// parseName reads the timestamp and same-second sequence from a backup name.
func parseName(name string) (time.Time, int, bool) {
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, namePrefix), ".zip")
	seq := 1
	if len(stamp) > len(nameLayout) && stamp[len(nameLayout)] == '_' {
		n, err := strconv.Atoi(stamp[len(nameLayout)+1:])
		if err != nil {
			return time.Time{}, 0, false
		}
		seq, stamp = n, stamp[:len(nameLayout)]
	}
	t, err := time.ParseInLocation(nameLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	return t, seq, true
}

func writeZip(w io.Writer, dir string, files []string) error {
	zw := zip.NewWriter(w)
	for _, name := range files {
		if err := addFile(zw, dir, name); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, dir, name string) error {
	src, err := os.Open(filepath.Join(dir, name)) //nolint:gosec // listed from the data dir
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("archiving %s: %w", name, err)
	}
	return nil
}

// Restore extracts a backup into the data directory, replacing the files it
// holds. Entries with directories, unexpected names or path tricks are
// rejected before anything is written. The database must be closed.
func (m *Manager) Restore(zipPath string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if err := checkEntry(f); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(m.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	var restored []string
	for _, f := range zr.File {
		if err := extract(f, m.DataDir); err != nil {
			return restored, err
		}
		restored = append(restored, f.Name)
		if f.Name == dbName {
			for _, side := range []string{"-wal", "-shm"} {
				_ = os.Remove(filepath.Join(m.DataDir, dbName+side))
			}
		}
	}
	m.log().Info("backup restored",
		zap.String("file", zipPath),
		zap.Strings("entries", restored),
	)
	return restored, nil
}

func checkEntry(f *zip.File) error {
	name := f.Name
	switch {
	case name == "" || strings.ContainsAny(name, `/\:`) || name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	case !f.Mode().IsRegular():
		return fmt.Errorf("%w: %q is not a regular file", ErrUnsafeEntry, name)
	case !included(name):
		return fmt.Errorf("%w: %q is not part of a backup", ErrUnsafeEntry, name)
	}
	return nil
}

// extract writes f next to its final path and renames it into place.
func extract(f *zip.File, dir string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(dir, f.Name+".restore-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil { //nolint:gosec // size bounded by the user's own backup
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, f.Name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", f.Name, err)
	}
	return nil
}

// List returns the backups in the backup directory, newest first. A missing
// directory holds no backups.
func (m *Manager) List() ([]Archive, error) {
	entries, err := os.ReadDir(m.BackupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup dir: %w", err)
	}

	var out []Archive
	seqs := make(map[string]int)
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(name, namePrefix) || filepath.Ext(name) != ".zip" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		a := Archive{Name: name, Path: filepath.Join(m.BackupDir, name), Size: info.Size(), Created: info.ModTime()}
		seq := 1
		if t, n, ok := parseName(name); ok {
			a.Created, seq = t, n
		}
		out = append(out, a)
		seqs[name] = seq
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return seqs[out[i].Name] > seqs[out[j].Name]
	})
	return out, nil
}
