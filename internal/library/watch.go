package library

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Aman-CERP/songbook/internal/watcher"
)

// Watch runs w and reloads the library on every batch of corpus events
// until ctx is cancelled or the watcher stops. Reload failures are logged
// and the published generation stays in place. An error from starting the
// watcher is returned.
func (l *Library) Watch(ctx context.Context, w watcher.Watcher) error {
	started := make(chan error, 1)
	go func() { started <- w.Start(ctx) }()

	events := w.Events()
	errs := w.Errors()

	for {
		select {
		case <-ctx.Done():
			return l.stopWatcher(w, started)

		case batch, ok := <-events:
			if !ok {
				return l.stopWatcher(w, started)
			}
			l.handleEvents(ctx, batch)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// stopWatcher stops w and waits for its Start to return.
func (l *Library) stopWatcher(w watcher.Watcher, started <-chan error) error {
	if err := w.Stop(); err != nil {
		slog.Warn("watcher_stop_failed", slog.String("error", err.Error()))
	}
	err := <-started
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (l *Library) handleEvents(ctx context.Context, batch []watcher.FileEvent) {
	if len(batch) == 0 {
		return
	}

	for _, ev := range batch {
		slog.Debug("corpus_event",
			slog.String("path", ev.Path),
			slog.String("operation", ev.Operation.String()))
	}

	res, err := l.Reload(ctx)
	if err != nil {
		slog.Warn("corpus_reload_failed",
			slog.String("corpus", l.opts.CorpusPath),
			slog.String("error", err.Error()))
		return
	}
	if res.Unchanged {
		slog.Debug("corpus_unchanged", slog.String("fingerprint", res.Fingerprint))
		return
	}

	slog.Info("corpus_reloaded",
		slog.Int("records", res.Records),
		slog.Uint64("generation", res.Generation),
		slog.Duration("duration", res.Duration))
}
