package backup

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, dbName), "sqlite bytes")
	writeFile(t, filepath.Join(dir, "projects.csv"), "name\nRoad\n")
	writeFile(t, filepath.Join(dir, "scratch.txt"), "not backed up")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "exports"), 0o750))
	return dir
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestCreateAndRestore(t *testing.T) {
	data := seedDataDir(t)
	checkpoints := 0
	m := &Manager{
		DataDir:    data,
		BackupDir:  filepath.Join(t.TempDir(), "backups"),
		Checkpoint: func() error { checkpoints++; return nil },
		Now:        fixedClock(time.Date(2024, 3, 1, 10, 15, 0, 0, time.Local)),
	}

	a, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, "backup_20240301_101500.zip", a.Name)
	assert.Equal(t, 1, checkpoints)
	assert.Positive(t, a.Size)
	assert.Equal(t, []string{"projects.csv", dbName}, zipNames(t, a.Path))

	_, err = m.Create()
	assert.Error(t, err, "a second backup in the same second must not overwrite the first")

	target := t.TempDir()
	writeFile(t, filepath.Join(target, dbName), "stale")
	writeFile(t, filepath.Join(target, dbName+"-wal"), "stale wal")
	r := &Manager{DataDir: target}
	restored, err := r.Restore(a.Path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{dbName, "projects.csv"}, restored)

	got, err := os.ReadFile(filepath.Join(target, dbName))
	require.NoError(t, err)
	assert.Equal(t, "sqlite bytes", string(got))
	assert.NoFileExists(t, filepath.Join(target, dbName+"-wal"))
	assert.NoFileExists(t, filepath.Join(target, "scratch.txt"))
}

func TestCreateWithoutDatabase(t *testing.T) {
	m := &Manager{DataDir: t.TempDir(), BackupDir: t.TempDir()}
	_, err := m.Create()
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func craftZip(t *testing.T, names ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crafted.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestRestoreRejectsUnsafeEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{"parent traversal", "../evil.csv"},
		{"nested path", "sub/projects.csv"},
		{"absolute path", "/tmp/evil.csv"},
		{"windows separator", `..\evil.csv`},
		{"unexpected file", "run.sh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := craftZip(t, dbName, tt.entry)
			root := t.TempDir()
			data := filepath.Join(root, "data")
			_, err := (&Manager{DataDir: data}).Restore(archive)
			require.Error(t, err)
			assert.NoFileExists(t, filepath.Join(data, dbName), "nothing is written when any entry is unsafe")
			assert.NoFileExists(t, filepath.Join(root, "evil.csv"))
		})
	}
}

func TestList(t *testing.T) {
	data := seedDataDir(t)
	backups := t.TempDir()
	for _, ts := range []time.Time{
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.Local),
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local),
		time.Date(2024, 2, 1, 9, 0, 0, 0, time.Local),
	} {
		_, err := (&Manager{DataDir: data, BackupDir: backups, Now: fixedClock(ts)}).Create()
		require.NoError(t, err)
	}
	writeFile(t, filepath.Join(backups, "notes.zip"), "ignored")

	list, err := (&Manager{BackupDir: backups}).List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "backup_20240301_090000.zip", list[0].Name)
	assert.Equal(t, "backup_20240105_090000.zip", list[2].Name)
	assert.Equal(t, 2024, list[0].Created.Year())

	list, err = (&Manager{BackupDir: filepath.Join(backups, "missing")}).List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateTwiceInOneSecond(t *testing.T) {
	data := seedDataDir(t)
	backups := t.TempDir()
	m := &Manager{DataDir: data, BackupDir: backups, Now: fixedClock(time.Date(2024, 6, 1, 8, 30, 0, 0, time.Local))}

	first, err := m.Create()
	require.NoError(t, err)
	second, err := m.Create()
	require.NoError(t, err)
	third, err := m.Create()
	require.NoError(t, err)

	assert.Equal(t, "backup_20240601_083000.zip", first.Name)
	assert.Equal(t, "backup_20240601_083000_2.zip", second.Name)
	assert.Equal(t, "backup_20240601_083000_3.zip", third.Name)

	list, err := (&Manager{BackupDir: backups}).List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, third.Name, list[0].Name, "the latest same-second backup lists first")
	assert.Equal(t, first.Name, list[2].Name)
	for _, a := range list {
		assert.Equal(t, 8, a.Created.Hour())
	}
}
