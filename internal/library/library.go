package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/songbook/internal/config"
	"github.com/Aman-CERP/songbook/internal/corpus"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/index"
	"github.com/Aman-CERP/songbook/internal/search"
	"github.com/Aman-CERP/songbook/internal/store"
	"github.com/Aman-CERP/songbook/internal/telemetry"
)

// ErrNotLoaded is returned by queries issued before the first successful load.
var ErrNotLoaded = errors.New("library not loaded")

// Options configures a Library.
type Options struct {
	// CorpusPath is the corpus JSON file.
	CorpusPath string

	// Workers bounds index build parallelism. Zero means GOMAXPROCS.
	Workers int

	// Search configures the query engine.
	Search search.EngineConfig

	// Cache is the offline copy. Nil disables offline mode.
	Cache *store.Cache

	// Metrics records every query. Nil creates a private collector.
	Metrics *telemetry.QueryMetrics
}

// LoadResult describes one load or reload.
type LoadResult struct {
	Source      string
	Records     int
	Generation  uint64
	Fingerprint string
	FromCache   bool
	Unchanged   bool
	Duration    time.Duration
}

// Status is a point-in-time view of the library.
type Status struct {
	CorpusPath  string
	Source      string
	Records     int
	Categories  int
	Generation  uint64
	Fingerprint string
	Offline     bool
	LoadedAt    time.Time
	BuiltAt     time.Time
	CachePath   string
	CacheCount  int
	LastError   string
}

// Library is the loaded song collection and its query engine.
type Library struct {
	opts    Options
	holder  *index.Holder
	engine  *search.Engine
	metrics *telemetry.QueryMetrics
	loaded  atomic.Bool

	// mu serializes loads and guards the fields below.
	mu       sync.Mutex
	source   string
	offline  bool
	loadedAt time.Time
	lastErr  error
}

// New creates an empty library. Call Load before querying.
func New(opts Options) (*Library, error) {
	if opts.CorpusPath == "" {
		return nil, sberrors.ValidationError("corpus path is required", nil)
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewQueryMetrics()
	}

	holder := index.NewHolder(nil)
	engine, err := search.NewEngine(holder, opts.Search, search.WithMetrics(opts.Metrics))
	if err != nil {
		return nil, err
	}

	return &Library{
		opts:    opts,
		holder:  holder,
		engine:  engine,
		metrics: opts.Metrics,
	}, nil
}

// Open creates a library from configuration, opening the offline cache when
// it is enabled. A cache that cannot be opened is logged and skipped.
func Open(cfg *config.Config) (*Library, error) {
	opts := Options{
		CorpusPath: cfg.Corpus.Path,
		Workers:    cfg.Search.Workers,
		Search: search.EngineConfig{
			DefaultLimit:   cfg.Search.MaxResults,
			SnippetPad:     cfg.Search.SnippetPad,
			ShardThreshold: cfg.Search.ShardThreshold,
			Workers:        cfg.Search.Workers,
			Marker:         search.Marker{Open: cfg.Search.MarkOpen, Close: cfg.Search.MarkClose},
		},
	}

	if cfg.Cache.Enabled {
		cache, err := store.Open(cfg.Cache.Path, store.WithLookupCacheSize(cfg.Cache.LookupCacheSize))
		if err != nil {
			slog.Warn("cache_unavailable",
				slog.String("path", cfg.Cache.Path),
				slog.String("error", err.Error()))
		} else {
			opts.Cache = cache
		}
	}

	lib, err := New(opts)
	if err != nil && opts.Cache != nil {
		_ = opts.Cache.Close()
	}
	return lib, err
}

// Close releases the offline cache.
func (l *Library) Close() error {
	if l.opts.Cache == nil {
		return nil
	}
	return l.opts.Cache.Close()
}

// Engine returns the query engine.
func (l *Library) Engine() *search.Engine {
	return l.engine
}

// Metrics returns the query metrics collector.
func (l *Library) Metrics() *telemetry.QueryMetrics {
	return l.metrics
}

// Cache returns the offline cache, or nil.
func (l *Library) Cache() *store.Cache {
	return l.opts.Cache
}

// Load reads the corpus and publishes a new index generation.
//
// On the first load a missing or invalid corpus falls back to the offline
// cache; with no cached songs it fails with ErrCodeOfflineNoData. Once a
// generation is published, a failed reload keeps it and returns the error.
// A corpus whose fingerprint matches the published one is not rebuilt.
func (l *Library) Load(ctx context.Context) (*LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	c, fromCache, err := l.read(ctx)
	if err != nil {
		l.lastErr = err
		return nil, err
	}

	current := l.holder.Current()
	if l.loaded.Load() && !fromCache && !l.offline && current.Fingerprint == c.Fingerprint {
		l.lastErr = nil
		return &LoadResult{
			Source:      c.Source,
			Records:     current.Len(),
			Generation:  current.Generation,
			Fingerprint: c.FingerprintHex(),
			Unchanged:   true,
			Duration:    time.Since(start),
		}, nil
	}

	if !fromCache {
		l.persist(ctx, c)
	}

	ix := index.FromCorpus(c, index.WithWorkers(l.opts.Workers))
	l.holder.Swap(ix)

	l.loaded.Store(true)
	l.source = c.Source
	l.offline = fromCache
	l.loadedAt = c.LoadedAt
	l.lastErr = nil

	res := &LoadResult{
		Source:      c.Source,
		Records:     ix.Len(),
		Generation:  ix.Generation,
		Fingerprint: c.FingerprintHex(),
		FromCache:   fromCache,
		Duration:    time.Since(start),
	}

	slog.Info("corpus_loaded",
		slog.String("source", res.Source),
		slog.Int("records", res.Records),
		slog.Uint64("generation", res.Generation),
		slog.Bool("from_cache", res.FromCache),
		slog.Duration("duration", res.Duration))

	return res, nil
}

// Reload is Load under the name used by watchers and tools.
func (l *Library) Reload(ctx context.Context) (*LoadResult, error) {
	return l.Load(ctx)
}

// read loads the corpus file, falling back to the cache on the first load.
func (l *Library) read(ctx context.Context) (*corpus.Corpus, bool, error) {
	c, err := corpus.Load(l.opts.CorpusPath)
	if err == nil {
		return c, false, nil
	}
	if l.loaded.Load() && !l.offline {
		return nil, false, err
	}

	if l.opts.Cache == nil {
		return nil, false, err
	}

	records, cacheErr := l.opts.Cache.GetAll(ctx)
	if cacheErr != nil || len(records) == 0 {
		if cacheErr != nil {
			slog.Warn("cache_read_failed", slog.String("error", cacheErr.Error()))
		}
		return nil, false, sberrors.New(sberrors.ErrCodeOfflineNoData,
			"offline and no cached data yet", err).
			WithDetail("corpus", l.opts.CorpusPath).
			WithSuggestion("make the corpus file available once so it can be cached")
	}

	cached, ferr := corpus.FromRecords(records, corpus.SourceCache)
	if ferr != nil {
		return nil, false, sberrors.Wrap(sberrors.ErrCodeCacheCorrupt, ferr)
	}

	slog.Warn("corpus_unavailable_using_cache",
		slog.String("corpus", l.opts.CorpusPath),
		slog.Int("records", len(records)),
		slog.String("error", err.Error()))

	return cached, true, nil
}

// persist mirrors c into the cache. Cache failures are logged, not returned:
// the in-memory index is still valid.
func (l *Library) persist(ctx context.Context, c *corpus.Corpus) {
	cache := l.opts.Cache
	if cache == nil {
		return
	}

	fp := c.FingerprintHex()
	if stored, ok, err := cache.Meta(ctx, store.MetaFingerprint); err == nil && ok && stored == fp {
		return
	}

	err := cache.Replace(ctx, c.Records)
	if err == nil {
		err = cache.SetMeta(ctx, store.MetaFingerprint, fp)
	}
	if err == nil {
		err = cache.SetMeta(ctx, store.MetaSource, c.Source)
	}
	if err == nil {
		err = cache.SetMeta(ctx, store.MetaUpdatedAt, c.LoadedAt.UTC().Format(time.RFC3339))
	}
	if err != nil {
		slog.Warn("cache_update_failed",
			slog.String("path", cache.Path()),
			slog.String("error", err.Error()))
		return
	}

	slog.Debug("cache_updated",
		slog.Int("records", len(c.Records)),
		slog.String("fingerprint", fp))
}

// Results runs a query and attaches snippets.
func (l *Library) Results(ctx context.Context, query string, opts search.Options) (*search.ResultSet, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	return l.engine.Results(ctx, query, opts)
}

// Show returns one song with every occurrence of query highlighted, together
// with its record.
func (l *Library) Show(id, query string) (search.RecordHighlight, *corpus.Record, error) {
	if err := l.ready(); err != nil {
		return search.RecordHighlight{}, nil, err
	}

	rec, ok := l.holder.Current().Get(id)
	if !ok {
		return search.RecordHighlight{}, nil, sberrors.New(sberrors.ErrCodeSongNotFound,
			fmt.Sprintf("no song with id %q", id), nil).
			WithDetail("id", id).
			WithSuggestion("search first and use an id from the results")
	}

	h := search.HighlightRecord(rec.Record, search.NormalizeQuery(query), l.engine.Config().Marker)
	return h, rec.Record, nil
}

// Categories returns the category keys of the published index.
func (l *Library) Categories() []string {
	return l.holder.Current().Categories()
}

// Status reports what is loaded.
func (l *Library) Status(ctx context.Context) Status {
	l.mu.Lock()
	st := Status{
		CorpusPath: l.opts.CorpusPath,
		Source:     l.source,
		Offline:    l.offline,
		LoadedAt:   l.loadedAt,
	}
	if l.lastErr != nil {
		st.LastError = l.lastErr.Error()
	}
	l.mu.Unlock()

	ix := l.holder.Current()
	st.Records = ix.Len()
	st.Categories = len(ix.Categories())
	st.Generation = ix.Generation
	st.BuiltAt = ix.BuiltAt
	if ix.Fingerprint != 0 {
		st.Fingerprint = fmt.Sprintf("%016x", ix.Fingerprint)
	}

	if cache := l.opts.Cache; cache != nil {
		st.CachePath = cache.Path()
		if n, err := cache.Count(ctx); err == nil {
			st.CacheCount = n
		}
	}
	return st
}

func (l *Library) ready() error {
	if !l.loaded.Load() {
		return ErrNotLoaded
	}
	return nil
}
