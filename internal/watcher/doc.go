// Package watcher reports changes to a fixed set of files, such as the song
// corpus and the config file, so the caller can reload them.
//
// fsnotify watches the parent directory of each file, which keeps working
// across the rename-over-original saves most editors perform. Where fsnotify
// cannot start, or when Options.ForcePolling is set, the files are polled by
// modification time and size instead.
//
// Events are debounced so a burst of writes produces one batch:
//
//	w, err := watcher.New([]string{"songs.json"}, watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Start(ctx) }()
//	defer w.Stop()
//
//	for batch := range w.Events() {
//	    reload()
//	}
package watcher
