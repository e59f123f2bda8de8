package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/songbook/internal/corpus"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// Meta keys written by the library.
const (
	MetaFingerprint = "fingerprint"
	MetaSource      = "source"
	MetaUpdatedAt   = "updated_at"
)

// DefaultLookupCacheSize is the number of records kept by the Get LRU.
const DefaultLookupCacheSize = 256

// Option configures a Cache.
type Option func(*Cache)

// WithLookupCacheSize sets the Get LRU size. Values below one disable it.
func WithLookupCacheSize(n int) Option {
	return func(c *Cache) {
		c.lookupSize = n
	}
}

// WithLockRetry sets the backoff used while another process holds the lock.
func WithLockRetry(cfg sberrors.RetryConfig) Option {
	return func(c *Cache) {
		c.retry = cfg
	}
}

// Cache is the SQLite offline copy of the corpus.
type Cache struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool

	lock       *FileLock
	retry      sberrors.RetryConfig
	lookupSize int
	lookup     *lru.Cache[string, *corpus.Record]
}

// Open opens or creates the cache database at path. An empty path opens an
// in-memory cache for testing. A file that fails the integrity check is
// discarded and recreated, since its contents can always be rebuilt from
// the corpus.
func Open(path string, opts ...Option) (*Cache, error) {
	c := &Cache{
		path:       path,
		retry:      sberrors.DefaultRetryConfig(),
		lookupSize: DefaultLookupCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable,
				fmt.Sprintf("failed to create cache directory %s", dir), err)
		}
		if err := discardIfCorrupt(path); err != nil {
			return nil, err
		}
		dsn = path
		c.lock = NewFileLock(path + ".lock")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to open cache database", err)
	}

	// Single connection: SQLite has one writer, and :memory: databases are
	// private to their connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set pragmas explicitly
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to set pragma", err)
		}
	}

	c.db = db
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to initialize cache schema", err)
	}

	if c.lookupSize > 0 {
		c.lookup, _ = lru.New[string, *corpus.Record](c.lookupSize)
	}

	return c, nil
}

// discardIfCorrupt removes a cache file that fails PRAGMA integrity_check.
func discardIfCorrupt(path string) error {
	validErr := validateIntegrity(path)
	if validErr == nil {
		return nil
	}

	slog.Warn("cache_corrupted",
		slog.String("path", path),
		slog.String("error", validErr.Error()))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return sberrors.New(sberrors.ErrCodeCacheCorrupt,
			fmt.Sprintf("cache corrupted at %s and cannot be removed", path), err).
			WithSuggestion("delete the cache file manually or set cache.enabled: false")
	}
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")

	slog.Info("cache_cleared",
		slog.String("path", path),
		slog.String("reason", "corruption detected, will be refilled on next load"))
	return nil
}

func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- One JSON-encoded record per song; position keeps corpus order
	CREATE TABLE IF NOT EXISTS songs (
		id       TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		title    TEXT NOT NULL DEFAULT '',
		data     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_songs_position ON songs(position);
	CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Path returns the database path, empty for an in-memory cache.
func (c *Cache) Path() string {
	return c.path
}

// PutAll upserts records. A record already cached keeps its position; new
// records are appended after the existing ones in the given order.
func (c *Cache) PutAll(ctx context.Context, records []*corpus.Record) error {
	return c.write(ctx, func(tx *sql.Tx) error {
		return putAll(ctx, tx, records)
	})
}

// Replace atomically swaps the cached songs for records.
func (c *Cache) Replace(ctx context.Context, records []*corpus.Record) error {
	return c.write(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM songs"); err != nil {
			return err
		}
		return putAll(ctx, tx, records)
	})
}

// Clear removes every cached song. Meta entries are kept.
func (c *Cache) Clear(ctx context.Context) error {
	return c.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM songs")
		return err
	})
}

func putAll(ctx context.Context, tx *sql.Tx, records []*corpus.Record) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO songs (id, position, title, data)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM songs), ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, data = excluded.data`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode song %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Title, string(data)); err != nil {
			return fmt.Errorf("failed to store song %s: %w", rec.ID, err)
		}
	}
	return nil
}

// write runs fn in a transaction while holding the cross-process lock, and
// drops the lookup cache afterwards.
func (c *Cache) write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return sberrors.New(sberrors.ErrCodeCacheUnavailable, "cache is closed", nil)
	}

	if c.lock != nil {
		if err := c.lock.LockContext(ctx, c.retry); err != nil {
			return err
		}
		defer func() { _ = c.lock.Unlock() }()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return sberrors.New(sberrors.ErrCodeCacheUnavailable, err.Error(), err)
	}
	if err := tx.Commit(); err != nil {
		return sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to commit cache update", err)
	}

	if c.lookup != nil {
		c.lookup.Purge()
	}
	return nil
}

// GetAll returns every cached song in corpus order.
func (c *Cache) GetAll(ctx context.Context) ([]*corpus.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "cache is closed", nil)
	}

	rows, err := c.db.QueryContext(ctx, "SELECT data FROM songs ORDER BY position")
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to read cached songs", err)
	}
	defer func() { _ = rows.Close() }()

	records := []*corpus.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to read cached song", err)
		}
		rec, err := corpus.DecodeRecord([]byte(data))
		if err != nil {
			return nil, sberrors.New(sberrors.ErrCodeCacheCorrupt, err.Error(), err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to read cached songs", err)
	}
	return records, nil
}

// Get returns one cached song by ID.
func (c *Cache) Get(ctx context.Context, id string) (*corpus.Record, error) {
	if c.lookup != nil {
		if rec, ok := c.lookup.Get(id); ok {
			return rec, nil
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "cache is closed", nil)
	}

	var data string
	err := c.db.QueryRowContext(ctx, "SELECT data FROM songs WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sberrors.New(sberrors.ErrCodeSongNotFound,
			fmt.Sprintf("song %q is not cached", id), nil).WithDetail("id", id)
	}
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to read cached song", err)
	}

	rec, err := corpus.DecodeRecord([]byte(data))
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeCacheCorrupt, err.Error(), err)
	}
	if c.lookup != nil {
		c.lookup.Add(id, rec)
	}
	return rec, nil
}

// Count returns the number of cached songs.
func (c *Cache) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs").Scan(&n); err != nil {
		return 0, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to count cached songs", err)
	}
	return n, nil
}

// Meta returns the value stored under key and whether it exists.
func (c *Cache) Meta(ctx context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return "", false, sberrors.New(sberrors.ErrCodeCacheUnavailable, "cache is closed", nil)
	}

	var value string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, sberrors.New(sberrors.ErrCodeCacheUnavailable, "failed to read cache meta", err)
	}
	return value, true, nil
}

// SetMeta stores value under key.
func (c *Cache) SetMeta(ctx context.Context, key, value string) error {
	return c.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		return err
	})
}

// Close checkpoints the WAL and closes the database. It is idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return c.db.Close()
}
