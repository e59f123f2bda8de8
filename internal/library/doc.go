// Package library owns the loaded song collection.
//
// A Library reads the corpus file, mirrors it into the offline cache, builds
// a fresh index and publishes it through an index.Holder. When the corpus
// file is unavailable on the first load, the cached copy is served instead.
// Reloads triggered by a watcher build a new generation and swap it in, so
// queries already running keep the generation they started with.
package library
