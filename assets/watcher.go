// Package assets watches asset files for changes while the renderer runs.
package assets

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/richinsley/gopostfx/logger"
)

// Watcher reports changes to a fixed set of files. Directories are watched
// rather than the files themselves, so files replaced by rename (as most
// editors save) keep being reported.
type Watcher struct {
	watcher *fsnotify.Watcher
	// files maps the cleaned absolute path to the path as given.
	files   map[string]string
	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWatcher starts watching paths.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	w := &Watcher{
		watcher: fw,
		files:   make(map[string]string),
		changes: make(chan string, 16),
		done:    make(chan struct{}),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("assets: %w", err)
		}
		w.files[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("assets: watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	w.wg.Add(1)
	go w.run()
	logger.Log.Info("watching assets", zap.Strings("files", paths))
	return w, nil
}

// Changes delivers the path, as given to NewWatcher, of each file that was
// written, created or renamed into place. A change is dropped if the
// previous ones have not been received.
func (w *Watcher) Changes() <-chan string { return w.changes }

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			path, ok := w.files[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			select {
			case w.changes <- path:
			default:
				logger.Log.Warn("asset change dropped", zap.String("path", path))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Log.Warn("asset watcher error", zap.Error(err))
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}
