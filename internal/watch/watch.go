// Package watch notifies the supervisor when the on-disk transmission
// library may have changed, so it can reload the schedule index without
// polling.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// scheduleFile is the only filename the watcher cares about; everything
// else under the library root (the audio files themselves) is ignored.
const scheduleFile = "schedule.csv"

// Watcher recursively monitors a library root and pushes a zero-payload
// signal onto Reload whenever a schedule.csv is created, written, or
// removed, or a new set directory appears. Reload is buffered to 1: a
// burst of events (an editor's save-by-rename, several sets changing at
// once) coalesces into a single pending reload, which the supervisor
// drains before acting (spec §9's debounce-by-drain).
type Watcher struct {
	fsw    *fsnotify.Watcher
	Reload chan struct{}
	logger *log.Logger

	closeOnce sync.Once
}

// New creates a Watcher rooted at root, adding every directory under it
// to the underlying fsnotify watch set.
func New(root string, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &Watcher{fsw: fsw, Reload: make(chan struct{}, 1), logger: logger}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "err", addErr)
		}
		return nil
	})
}

// Run processes fsnotify events until ctx is done or the watcher is
// closed. It is meant to run on its own goroutine; the supervisor thread
// only ever reads from Reload.
func (w *Watcher) Run(ctx context.Context) {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "err", err)
			} else {
				w.logger.Debug("watching new set directory", "path", event.Name)
			}
			w.signal()
			return
		}
	}

	if filepath.Base(event.Name) != scheduleFile {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.logger.Debug("schedule change detected", "path", event.Name, "op", event.Op)
	w.signal()
}

func (w *Watcher) signal() {
	select {
	case w.Reload <- struct{}{}:
	default:
	}
}

// Close stops the underlying fsnotify watcher. Safe to call more than
// once and safe to call even if Run was never started.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}
