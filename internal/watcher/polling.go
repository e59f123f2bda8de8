package watcher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// PollingWatcher detects changes by periodically stating each file.
// Used as a fallback when fsnotify is not available.
type PollingWatcher struct {
	interval time.Duration
	paths    []string
	state    map[string]fileSnapshot
	events   chan FileEvent
	stopCh   chan struct{}
	mu       sync.Mutex
	stopped  bool
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	exists  bool
}

// NewPollingWatcher creates a poller for paths with the given interval.
func NewPollingWatcher(paths []string, interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		paths:    paths,
		state:    make(map[string]fileSnapshot, len(paths)),
		events:   make(chan FileEvent, 100),
		stopCh:   make(chan struct{}),
	}
}

// Start records a baseline and polls until Stop is called or ctx is
// cancelled.
func (p *PollingWatcher) Start(ctx context.Context) error {
	p.mu.Lock()
	for _, path := range p.paths {
		p.state[path] = snapshot(path)
	}
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detectChanges()
		}
	}
}

func snapshot(path string) fileSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}
	}
	return fileSnapshot{
		modTime: info.ModTime(),
		size:    info.Size(),
		exists:  true,
	}
}

// detectChanges compares each file with its previous snapshot.
func (p *PollingWatcher) detectChanges() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, path := range p.paths {
		prev := p.state[path]
		cur := snapshot(path)
		p.state[path] = cur

		var op Operation
		switch {
		case !prev.exists && cur.exists:
			op = OpCreate
		case prev.exists && !cur.exists:
			op = OpDelete
		case cur.exists && (prev.modTime != cur.modTime || prev.size != cur.size):
			op = OpModify
		default:
			continue
		}
		p.emitEvent(FileEvent{Path: path, Operation: op, Timestamp: time.Now()})
	}
}

// emitEvent sends an event to the events channel.
// Must be called with lock held.
func (p *PollingWatcher) emitEvent(event FileEvent) {
	if p.stopped {
		return
	}

	select {
	case p.events <- event:
	default:
		slog.Warn("polling_buffer_full",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()))
	}
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent {
	return p.events
}

// Stop stops the polling watcher. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	return nil
}
