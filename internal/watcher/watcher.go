// Package watcher watches the organizations root directory and triggers
// debounced per-organization reloads on file changes.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches <root>/<org-id>/ directories. A burst of file changes
// inside one organization collapses into a single reload callback.
type Watcher struct {
	root     string
	onReload func(orgID string)
	onRemove func(orgID string)
	debounce time.Duration
	logger   *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timers   map[string]*time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the default debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher over root. onReload is called with an
// organization ID after its files settle; onRemove when an organization
// directory disappears.
func NewWatcher(root string, onReload, onRemove func(orgID string), opts ...Option) *Watcher {
	w := &Watcher{
		root:     filepath.Clean(root),
		onReload: onReload,
		onRemove: onRemove,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.root); err != nil {
		_ = fsw.Close()
		w.mu.Unlock()
		return fmt.Errorf("watch root: %w", err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		_ = fsw.Close()
		w.mu.Unlock()
		return fmt.Errorf("read root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := fsw.Add(filepath.Join(w.root, entry.Name())); err != nil {
				w.logger.Warn("cannot watch organization directory",
					zap.String("org_id", entry.Name()), zap.Error(err))
			}
		}
	}
	w.watcher = fsw
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("watcher started", zap.String("root", w.root))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	orgID, topLevel := w.classify(ev.Name)
	if orgID == "" {
		return
	}
	w.logger.Debug("watcher event",
		zap.String("op", ev.Op.String()),
		zap.String("path", ev.Name),
		zap.String("org_id", orgID))

	switch {
	case ev.Op.Has(fsnotify.Create):
		if topLevel {
			// New organization directory: watch it and load it once
			// its files settle.
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.mu.Lock()
				if w.watcher != nil {
					_ = w.watcher.Add(ev.Name)
				}
				w.mu.Unlock()
				w.scheduleReload(orgID)
				return
			}
		}
		w.scheduleReload(orgID)
	case ev.Op.Has(fsnotify.Write):
		w.scheduleReload(orgID)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if topLevel {
			if _, err := os.Stat(ev.Name); os.IsNotExist(err) {
				w.cancelReload(orgID)
				if w.onRemove != nil {
					w.onRemove(orgID)
				}
				return
			}
		}
		// A file inside the organization went away; a reload picks up
		// the reduced document set.
		w.scheduleReload(orgID)
	}
}

// classify maps an event path to the organization it belongs to.
// topLevel is true when the path is the organization directory itself.
func (w *Watcher) classify(path string) (orgID string, topLevel bool) {
	rel, err := filepath.Rel(w.root, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	return parts[0], len(parts) == 1
}

func (w *Watcher) scheduleReload(orgID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[orgID]; ok {
		t.Stop()
	}
	w.timers[orgID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, orgID)
		w.mu.Unlock()
		w.logger.Debug("watcher reloading organization", zap.String("org_id", orgID))
		if w.onReload != nil {
			w.onReload(orgID)
		}
	})
}

func (w *Watcher) cancelReload(orgID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[orgID]; ok {
		t.Stop()
		delete(w.timers, orgID)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for orgID, t := range w.timers {
		t.Stop()
		delete(w.timers, orgID)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
