package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// FileWatcher implements Watcher for a fixed set of files using fsnotify on
// their parent directories, with polling as a fallback.
type FileWatcher struct {
	files          map[string]struct{}
	dirs           []string
	fsWatcher      *fsnotify.Watcher
	pollWatcher    *PollingWatcher
	debouncer      *Debouncer
	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

var _ Watcher = (*FileWatcher)(nil)

// New creates a watcher for paths. Relative paths are resolved against the
// working directory. The files do not need to exist yet.
func New(paths []string, opts Options) (*FileWatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, sberrors.New(sberrors.ErrCodeWatchFailed, err.Error(), err)
	}
	opts = opts.WithDefaults()

	w := &FileWatcher{
		files:     make(map[string]struct{}, len(paths)),
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}

	seenDirs := make(map[string]bool)
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, sberrors.New(sberrors.ErrCodeWatchFailed, "resolve absolute path", err).
				WithDetail("path", p)
		}
		if _, dup := w.files[a]; dup {
			continue
		}
		w.files[a] = struct{}{}
		abs = append(abs, a)
		if dir := filepath.Dir(a); !seenDirs[dir] {
			seenDirs[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	if len(abs) == 0 {
		return nil, sberrors.New(sberrors.ErrCodeWatchFailed, "no files to watch", nil)
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
			return w, nil
		}
		slog.Warn("fsnotify_unavailable",
			slog.String("error", err.Error()),
			slog.String("fallback", "polling"))
	}
	w.pollWatcher = NewPollingWatcher(abs, opts.PollInterval)
	return w, nil
}

// Start begins watching and blocks until Stop is called or ctx is cancelled.
func (w *FileWatcher) Start(ctx context.Context) error {
	go w.forwardDebouncedEvents(ctx)

	if w.fsWatcher != nil {
		return w.startFsnotify(ctx)
	}
	return w.startPolling(ctx)
}

func (w *FileWatcher) startFsnotify(ctx context.Context) error {
	for _, dir := range w.dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			_ = w.Stop()
			return sberrors.New(sberrors.ErrCodeWatchFailed, "watch directory "+dir, err).
				WithDetail("path", dir).
				WithSuggestion("make sure the directory containing the corpus exists")
		}
	}

	slog.Debug("watcher_started",
		slog.String("type", "fsnotify"),
		slog.Int("files", len(w.files)))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *FileWatcher) startPolling(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case event, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.debouncer.Add(event)
			}
		}
	}()

	slog.Debug("watcher_started",
		slog.String("type", "polling"),
		slog.Int("files", len(w.files)))

	err := w.pollWatcher.Start(ctx)
	if ctx.Err() != nil {
		_ = w.Stop()
	}
	return err
}

// handleFsnotifyEvent converts events for watched files and drops the rest
// of the directory's traffic.
func (w *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if _, ok := w.files[path]; !ok {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// Chmod
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      path,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// forwardDebouncedEvents forwards debounced batches to the output channel.
func (w *FileWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			w.emitEvents(events)
		}
	}
}

// emitEvents sends a batch without blocking. The read lock is held across
// the send so Stop cannot close the channel underneath it.
func (w *FileWatcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		count := w.droppedBatches.Add(1)
		slog.Warn("watcher_buffer_full",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *FileWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// DroppedBatches returns the number of batches dropped due to buffer overflow.
func (w *FileWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// Stop stops the watcher and releases resources.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()

	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of batched file events.
func (w *FileWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns the channel of errors.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// IsHealthy returns true if the watcher has not been stopped.
func (w *FileWatcher) IsHealthy() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.stopped
}

// Type returns the mechanism in use, "fsnotify" or "polling".
func (w *FileWatcher) Type() string {
	if w.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}

// Files returns the absolute paths being watched.
func (w *FileWatcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}
