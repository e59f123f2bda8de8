// Package integration holds end-to-end tests that run the corpus loader,
// offline cache, index, search engine and file watcher together.
package integration
