// Package watch reports changes to the open document's file.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher calls OnChange once per burst of writes to a file or directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	isDir    bool
	debounce time.Duration

	OnChange func()
	OnError  func(error)
}

// New watches path. A file is watched through its directory so that
// editors replacing the file atomically are noticed too.
func New(path string, isDir bool, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dir := path
	if !isDir {
		dir = filepath.Dir(path)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{watcher: fw, path: path, isDir: isDir, debounce: debounce}, nil
}

// Run delivers events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	absPath, _ := filepath.Abs(w.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.isDir {
				eventAbs, _ := filepath.Abs(event.Name)
				if eventAbs != absPath {
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			timer, fire = nil, nil
			if w.OnChange != nil {
				w.OnChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}
