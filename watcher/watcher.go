// Package watcher reports debounced changes to the searched files of a repository.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lexandro/errcode-audit/ignore"
)

// DefaultInterval is the quiet period before a batch of changes is emitted.
const DefaultInterval = 300 * time.Millisecond

// Filter decides which paths are watched. *ignore.Matcher implements it.
type Filter interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
	Relative(absolutePath string) string
}

// Options configures a Watcher.
type Options struct {
	RootDir  string
	Filter   Filter
	Excludes []string // doublestar globs relative to RootDir
	Skip     []string // absolute paths whose changes are never reported
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher provides recursive file system watching with debouncing.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	filter    Filter
	excludes  []string
	skip      map[string]struct{}
	rootDir   string
	logger    *slog.Logger
}

// New creates a recursive watcher on options.RootDir, registering every
// directory the filter and the excludes leave in scope.
func New(options Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	interval := options.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(interval),
		filter:    options.Filter,
		excludes:  options.Excludes,
		skip:      make(map[string]struct{}, len(options.Skip)),
		rootDir:   options.RootDir,
		logger:    options.Logger,
	}
	for _, path := range options.Skip {
		if abs, absErr := filepath.Abs(path); absErr == nil {
			w.skip[abs] = struct{}{}
		}
	}

	err = filepath.WalkDir(options.RootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == options.RootDir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != options.RootDir && w.skipDir(path) {
			return filepath.SkipDir
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel that receives debounced batches of changes.
func (w *Watcher) Events() <-chan []Change {
	return w.debouncer.Output()
}

// Run forwards file system events to the debouncer until ctx is done or
// the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) skipDir(path string) bool {
	return w.filter.ShouldIgnoreDir(path) || ignore.MatchesAny(w.excludes, w.filter.Relative(path))
}

// handleEvent converts one fsnotify event into a pending change.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if !w.skipDir(path) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if _, skip := w.skip[path]; skip {
		return
	}
	// Ignore files are hidden, yet their edits change what is searched.
	if !ignore.IsIgnoreFile(filepath.Base(path)) {
		if w.filter.ShouldIgnore(path) || ignore.MatchesAny(w.excludes, w.filter.Relative(path)) {
			return
		}
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.logger.Debug("file changed", "path", w.filter.Relative(path), "op", op.String())
	w.debouncer.Add(path, op)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

// TouchesIgnoreFile reports whether a batch changed one of the ignore files,
// meaning the filter must be reloaded before the next audit.
func TouchesIgnoreFile(batch []Change) bool {
	for _, change := range batch {
		if ignore.IsIgnoreFile(filepath.Base(change.Path)) {
			return true
		}
	}
	return false
}
