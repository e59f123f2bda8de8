// Package store keeps an offline copy of the song corpus in SQLite so the
// library can start when the corpus file is unreachable.
//
// The database has two tables: songs (one JSON-encoded record per row, in
// corpus order) and meta (string key/value pairs such as the fingerprint of
// the cached corpus). Single-record lookups go through an in-memory LRU.
// Writers in different processes are serialized by a lock file next to the
// database.
package store
