package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce is how long the database must be quiet before a poll is
// requested; an import writes many pages in a burst.
const debounce = 500 * time.Millisecond

// dbWatcher wakes the poll loop when the SQLite database or its WAL changes.
type dbWatcher struct {
	fs    *fsnotify.Watcher
	names map[string]bool
	log   *zap.Logger
}

// newWatcher watches the directory holding dbPath. SQLite replaces and
// appends to sidecar files, so watching the directory is more reliable than
// watching the file itself.
func newWatcher(dbPath string, log *zap.Logger) (*dbWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(filepath.Dir(dbPath)); err != nil {
		_ = fs.Close()
		return nil, err
	}
	base := filepath.Base(dbPath)
	return &dbWatcher{
		fs:    fs,
		names: map[string]bool{base: true, base + "-wal": true},
		log:   log,
	}, nil
}

func (w *dbWatcher) relevant(ev fsnotify.Event) bool {
	if !w.names[filepath.Base(ev.Name)] {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

// run forwards debounced change notifications to wake until ctx is done.
// Sends never block; a pending wake already covers later changes.
func (w *dbWatcher) run(ctx context.Context, wake chan<- struct{}) {
	defer func() { _ = w.fs.Close() }()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("database changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("database watcher error", zap.Error(err))
		case <-timer.C:
			select {
			case wake <- struct{}{}:
			default:
			}
		}
	}
}
