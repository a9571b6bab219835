// Package watch re-runs an analysis whenever one of its input files changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 500 * time.Millisecond

// Config holds the watcher configuration.
type Config struct {
	// Files are the paths whose changes trigger a run.
	Files []string
	// Debounce collapses bursts of events into a single run.
	Debounce time.Duration
}

// Event represents a file change that was detected and processed.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"` // "processed", "error"
	Error     string    `json:"error,omitempty"`
}

// Handler is called once per debounced burst of changes with the path that
// changed last.
type Handler func(ctx context.Context, path string) error

// Status represents the current watcher status.
type Status struct {
	Running     bool     `json:"running"`
	Files       []string `json:"files"`
	Directories []string `json:"directories"`
	EventCount  int      `json:"eventCount"`
	StartedAt   string   `json:"startedAt,omitempty"`
}

// Watcher monitors input files and triggers the handler.
type Watcher struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger

	files map[string]bool
	dirs  []string

	mu        sync.Mutex
	events    []Event
	timer     *time.Timer
	startedAt time.Time
	running   bool
	stopped   bool

	runMu   sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a Watcher for the given files.
func New(cfg Config, handler Handler, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("nothing to watch — pass at least one file")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	files := make(map[string]bool, len(cfg.Files))
	seenDir := make(map[string]bool)
	var dirs []string
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("could not resolve %s: %w", f, err)
		}
		files[abs] = true
		// Watched per directory: saving often replaces the file.
		dir := filepath.Dir(abs)
		if !seenDir[dir] {
			seenDir[dir] = true
			dirs = append(dirs, dir)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		files:   files,
		dirs:    dirs,
		watcher: fsw,
	}, nil
}

// Start begins watching. It blocks until the context is cancelled and any
// run in progress has finished.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.watcher.Close()
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
	}

	w.mu.Lock()
	w.running = true
	w.startedAt = time.Now()
	w.mu.Unlock()

	w.logger.Info("Watching inputs",
		zap.Int("files", len(w.files)),
		zap.Strings("directories", w.dirs),
		zap.Duration("debounce", w.cfg.Debounce))

	// Event loop
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping watcher")
			w.stop()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.stop()
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.stop()
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

// stop cancels any pending debounce and waits for a run in progress.
// Timers that already fired see stopped and skip the handler.
func (w *Watcher) stop() {
	w.mu.Lock()
	w.running = false
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.runMu.Lock()
	w.runMu.Unlock()
}

func (w *Watcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.matches(event.Name) {
		return
	}

	path := event.Name
	op := event.Op.String()

	// Debounce: wait before processing to avoid rapid fire
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, path, op)
	})
	w.mu.Unlock()
}

func (w *Watcher) matches(path string) bool {
	// Skip spreadsheet lock and temp files
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return w.files[abs]
}

func (w *Watcher) process(ctx context.Context, path, operation string) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if ctx.Err() != nil || w.isStopped() {
		return
	}

	evt := Event{Time: time.Now(), Path: path, Operation: operation, Status: "processed"}
	if w.handler != nil {
		if err := w.handler(ctx, path); err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.logger.Warn("Run failed", zap.String("path", path), zap.Error(err))
		} else {
			w.logger.Info("Re-ran analysis", zap.String("changed", path))
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

// GetStatus returns the current watcher status.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Status{
		Running:     w.running,
		Directories: w.dirs,
		EventCount:  len(w.events),
	}
	for f := range w.files {
		s.Files = append(s.Files, f)
	}
	sort.Strings(s.Files)
	if !w.startedAt.IsZero() {
		s.StartedAt = w.startedAt.Format(time.RFC3339)
	}
	return s
}

// GetEvents returns all recorded events.
func (w *Watcher) GetEvents() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}
