// Package watcher turns a directory into a drop folder: contract files that
// appear in it are reported once they stop changing.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yildizm/ContractSum/internal/logger"
)

// DefaultDebounce is the quiet period before a new file is reported
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Watcher
type Options struct {
	Debounce  time.Duration
	Recursive bool
	// Accept filters candidate files by path. Nil accepts everything.
	Accept func(path string) bool
}

// Watcher reports new files in a directory in debounced batches
type Watcher struct {
	dir  string
	opts Options
	fs   *fsnotify.Watcher
	log  *logger.Logger

	pending map[string]struct{}
	emitted map[string]struct{}
}

// New starts watching dir. Files already present are not reported.
func New(dir string, opts Options) (*Watcher, error) {
	if err := validateWatchDir(dir); err != nil {
		return nil, fmt.Errorf("invalid watch directory: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		dir:     filepath.Clean(dir),
		opts:    opts,
		fs:      fsw,
		log:     logger.NewWithCallback("watcher", func() bool { return false }),
		pending: make(map[string]struct{}),
		emitted: make(map[string]struct{}),
	}

	if err := w.addTree(w.dir); err != nil {
		w.cleanupWatcher()
		return nil, err
	}

	return w, nil
}

// SetLogger replaces the watcher's logger
func (w *Watcher) SetLogger(l *logger.Logger) {
	if l != nil {
		w.log = l.WithComponent("watcher")
	}
}

// Dir returns the watched directory
func (w *Watcher) Dir() string {
	return w.dir
}

// Close stops the underlying file system watcher
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) cleanupWatcher() {
	if err := w.fs.Close(); err != nil {
		w.log.Warn("failed to close watcher: %v", err)
	}
}

func (w *Watcher) addTree(root string) error {
	if !w.opts.Recursive {
		if err := w.fs.Add(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Run delivers batches of new file paths on out until ctx is done. Each
// path is delivered once; a path that is removed and created again is
// delivered again.
func (w *Watcher) Run(ctx context.Context, out chan<- []string) error {
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if w.handleWatchEvent(event) {
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Warn("watcher error: %v", err)

		case <-timer.C:
			batch := w.flush()
			if len(batch) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// handleWatchEvent updates pending state and reports whether the debounce
// timer should restart
func (w *Watcher) handleWatchEvent(event fsnotify.Event) bool {
	path := filepath.Clean(event.Name)

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		delete(w.pending, path)
		delete(w.emitted, path)
		return false
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	if isIgnored(path) {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if info.IsDir() {
		if w.opts.Recursive && event.Has(fsnotify.Create) {
			if err := w.addTree(path); err != nil {
				w.log.Warn("%v", err)
			}
		}
		return false
	}

	if w.opts.Accept != nil && !w.opts.Accept(path) {
		w.log.Debug("ignoring %s", path)
		return false
	}

	if _, done := w.emitted[path]; done {
		return false
	}

	w.pending[path] = struct{}{}
	return true
}

func (w *Watcher) flush() []string {
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		// Files removed during the quiet period are dropped
		if _, err := os.Stat(path); err != nil {
			continue
		}
		batch = append(batch, path)
		w.emitted[path] = struct{}{}
	}
	clear(w.pending)
	sort.Strings(batch)
	return batch
}

// isIgnored skips hidden files and office lock files
func isIgnored(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$")
}

// validateWatchDir validates that a path is a directory that can be watched
func validateWatchDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty directory path")
	}

	info, err := os.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}

	return nil
}
