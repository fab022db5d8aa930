package fs

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/folio/internal/ports"
)

// DefaultDebounce is how long the watcher waits after the last event.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher calls OnChange after a file is written, created, renamed or
// removed. Bursts of events are debounced into one call.
//
// The parent directory is watched rather than the file, so atomic
// replace-by-rename and first creation are both seen.
type FileWatcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   ports.Logger

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileWatcher creates a watcher for path. A zero debounce uses DefaultDebounce.
func NewFileWatcher(path string, debounce time.Duration, onChange func(ctx context.Context), logger ports.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{path: path, debounce: debounce, onChange: onChange, logger: logger}
}

// Start begins watching. It returns once the watch is registered.
func (w *FileWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.logger.Debug("watching file", ports.String("path", w.path))

	w.wg.Add(1)
	go w.loop(watchCtx, watcher)
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *FileWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer watcher.Close()

	name := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", ports.String("path", w.path), ports.Err(err))
		}
	}
}

func (w *FileWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.onChange(ctx)
	})
}
