package game

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before reporting.
const DefaultDebounce = 100 * time.Millisecond

// FileWatcher watches a preset tree and triggers a callback once per burst
// of YAML changes. New directories are picked up as they appear.
type FileWatcher struct {
	root     string
	debounce time.Duration
	onChange func([]string) // called with the changed paths
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileWatcher creates a watcher rooted at dir. A debounce <= 0 uses
// DefaultDebounce; a nil logger uses slog.Default().
func NewFileWatcher(dir string, debounce time.Duration, logger *slog.Logger, onChange func([]string)) (*FileWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		root:     dir,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		watcher:  w,
		done:     make(chan struct{}),
	}, nil
}

// WatchLoader returns a watcher that invalidates l whenever a preset changes.
func WatchLoader(l *Loader, debounce time.Duration, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return NewFileWatcher(l.Paths().ChecksDir(), debounce, logger, func(paths []string) {
		l.Invalidate()
		logger.Info("presets reloaded", slog.Int("changed", len(paths)))
	})
}

// Start adds the tree to the watch list and processes events in a goroutine
// until ctx is done or Stop is called.
func (w *FileWatcher) Start(ctx context.Context) error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
	if err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop terminates the watcher.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

func (w *FileWatcher) loop(ctx context.Context) {
	var (
		pending = map[string]struct{}{}
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		clear(pending)
		if w.onChange != nil {
			w.onChange(paths)
		}
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				// pick up new story directories
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.watcher.Add(ev.Name); err == nil {
						w.logger.Debug("watching directory", slog.String("path", ev.Name))
					}
				}
			}
			if !isPresetFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			flush()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("preset watcher error", slog.Any("error", err))
		}
	}
}

func isPresetFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
