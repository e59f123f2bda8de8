// Package preflight runs the checks behind 'songbook doctor': whether the
// corpus can be read and parsed, whether the offline cache and log
// directories are writable, and whether the machine has the disk space and
// file descriptors the watcher and cache need.
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
