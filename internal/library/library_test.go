package library

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Aman-CERP/songbook/internal/config"
	"github.com/Aman-CERP/songbook/internal/corpus"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/search"
	"github.com/Aman-CERP/songbook/internal/store"
	"github.com/Aman-CERP/songbook/internal/watcher"
)

func songs() []*corpus.Record {
	return []*corpus.Record{
		{
			ID:     "jaya-radha-madhava",
			Title:  "Jaya Rādhā-Mādhava",
			Author: "Bhaktivinoda",
			Verses: []corpus.Verse{{N: 1, Text: []string{"jaya rādhā-mādhava kuñja-bihārī"}}},
		},
		{
			ID:     "gurvastaka",
			Title:  "Śrī Gurv-aṣṭaka",
			Author: "Viśvanātha",
			Verses: []corpus.Verse{{N: 1, Text: []string{"saṁsāra-dāvānala-līḍha-loka"}}},
		},
	}
}

func writeCorpus(t *testing.T, path string, records []*corpus.Record) {
	t.Helper()
	c, err := corpus.FromRecords(records, path)
	require.NoError(t, err)
	require.NoError(t, corpus.Save(path, c))
}

func newLibrary(t *testing.T, path string, cache *store.Cache) *Library {
	t.Helper()
	lib, err := New(Options{CorpusPath: path, Workers: 2, Cache: cache})
	require.NoError(t, err)
	return lib
}

func memCache(t *testing.T) *store.Cache {
	t.Helper()
	cache, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

// =============================================================================
// Load
// =============================================================================

func TestNew_RequiresCorpusPath(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeInvalidInput, sberrors.GetCode(err))
}

func TestLoad_PublishesIndex(t *testing.T) {
	// Given: a corpus file with two songs
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, nil)

	// When: loading
	res, err := lib.Load(context.Background())

	// Then: the first generation holds both songs and answers queries
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, path, res.Source)
	assert.False(t, res.FromCache)
	assert.Len(t, res.Fingerprint, 16)

	set, err := lib.Results(context.Background(), "radha", search.Options{})
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "jaya-radha-madhava", set.Results[0].ID)
}

func TestLoad_MissingCorpusWithoutCache(t *testing.T) {
	lib := newLibrary(t, filepath.Join(t.TempDir(), "missing.json"), nil)

	_, err := lib.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeCorpusNotFound, sberrors.GetCode(err))
}

func TestLoad_MissingCorpusEmptyCache(t *testing.T) {
	// Given: no corpus and a cache that was never filled
	lib := newLibrary(t, filepath.Join(t.TempDir(), "missing.json"), memCache(t))

	// When: loading
	_, err := lib.Load(context.Background())

	// Then: the offline error names the situation
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeOfflineNoData, sberrors.GetCode(err))
	assert.Contains(t, err.Error(), "offline and no cached data yet")
	assert.Contains(t, lib.Status(context.Background()).LastError, "offline")
}

func TestLoad_FallsBackToCache(t *testing.T) {
	ctx := context.Background()
	cache := memCache(t)

	// Given: a cache filled by an earlier successful load
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	first, err := newLibrary(t, path, cache).Load(ctx)
	require.NoError(t, err)

	fp, ok, err := cache.Meta(ctx, store.MetaFingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Fingerprint, fp)

	// When: the corpus file disappears and a new library loads
	require.NoError(t, os.Remove(path))
	lib := newLibrary(t, path, cache)
	res, err := lib.Load(ctx)

	// Then: the cached songs are served in order
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, corpus.SourceCache, res.Source)
	assert.Equal(t, 2, res.Records)

	st := lib.Status(ctx)
	assert.True(t, st.Offline)
	assert.Equal(t, 2, st.CacheCount)

	set, err := lib.Results(ctx, "sri", search.Options{})
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, "gurvastaka", set.Results[0].ID)
}

func TestLoad_OfflineRecoversWhenCorpusReturns(t *testing.T) {
	ctx := context.Background()
	cache := memCache(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "songs.json")

	// Given: a library serving the cache
	writeCorpus(t, path, songs())
	_, err := newLibrary(t, path, cache).Load(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	lib := newLibrary(t, path, cache)
	_, err = lib.Load(ctx)
	require.NoError(t, err)
	require.True(t, lib.Status(ctx).Offline)

	// When: the corpus file comes back with one more song
	more := append(songs(), &corpus.Record{ID: "new", Title: "Nava"})
	writeCorpus(t, path, more)
	res, err := lib.Reload(ctx)

	// Then: the file wins again
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 3, res.Records)
	assert.False(t, lib.Status(ctx).Offline)
}

func TestReload_Unchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, nil)

	first, err := lib.Load(ctx)
	require.NoError(t, err)

	// When: reloading an identical file
	second, err := lib.Reload(ctx)

	// Then: no new generation is published
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Equal(t, first.Generation, second.Generation)
}

func TestReload_NewGeneration(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, nil)

	first, err := lib.Load(ctx)
	require.NoError(t, err)

	// When: a song is added and the corpus reloaded
	writeCorpus(t, path, append(songs(), &corpus.Record{
		ID:     "nama-sankirtana",
		Title:  "Nāma Saṅkīrtana",
		Verses: []corpus.Verse{{N: 1, Text: []string{"hari haraye namaḥ"}}},
	}))
	second, err := lib.Reload(ctx)

	// Then: the next generation includes it
	require.NoError(t, err)
	assert.Greater(t, second.Generation, first.Generation)
	assert.Equal(t, 3, second.Records)

	set, err := lib.Results(ctx, "namah", search.Options{})
	require.NoError(t, err)
	require.Len(t, set.Results, 1)
	assert.Equal(t, second.Generation, set.Generation)
}

func TestReload_InvalidCorpusKeepsGeneration(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, memCache(t))

	first, err := lib.Load(ctx)
	require.NoError(t, err)

	// When: the file is replaced with broken JSON
	require.NoError(t, os.WriteFile(path, []byte(`{"songs": [`), 0644))
	_, err = lib.Reload(ctx)

	// Then: the error is returned and the old generation keeps serving
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeCorpusInvalid, sberrors.GetCode(err))

	st := lib.Status(ctx)
	assert.Equal(t, first.Generation, st.Generation)
	assert.Equal(t, 2, st.Records)
	assert.NotEmpty(t, st.LastError)
	assert.False(t, st.Offline)
}

// =============================================================================
// Queries
// =============================================================================

func TestQueries_BeforeLoad(t *testing.T) {
	lib := newLibrary(t, "songs.json", nil)

	_, err := lib.Results(context.Background(), "x", search.Options{})
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, _, err = lib.Show("x", "")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, nil)
	_, err := lib.Load(context.Background())
	require.NoError(t, err)

	t.Run("highlights inside the song", func(t *testing.T) {
		h, rec, err := lib.Show("jaya-radha-madhava", "madhava")
		require.NoError(t, err)
		assert.Equal(t, "Bhaktivinoda", rec.Author)
		assert.Equal(t, 2, h.Matches)
		assert.Equal(t, "Jaya Rādhā-<mark>Mādhava</mark>", h.Title.Markup())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := lib.Show("nope", "")
		require.Error(t, err)
		assert.Equal(t, sberrors.ErrCodeSongNotFound, sberrors.GetCode(err))
	})
}

func TestStatus_Loaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, nil)
	res, err := lib.Load(context.Background())
	require.NoError(t, err)

	st := lib.Status(context.Background())

	assert.Equal(t, path, st.CorpusPath)
	assert.Equal(t, path, st.Source)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, res.Generation, st.Generation)
	assert.Equal(t, res.Fingerprint, st.Fingerprint)
	assert.Positive(t, st.Categories, "author keys count as categories")
	assert.Empty(t, st.CachePath)
	assert.Empty(t, st.LastError)
}

func TestOpen_FromConfig(t *testing.T) {
	// Given: a config with the cache on disk
	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Corpus.Path = filepath.Join(dir, "songs.json")
	cfg.Cache.Path = filepath.Join(dir, "cache", "songs.db")
	writeCorpus(t, cfg.Corpus.Path, songs())

	// When: opening and loading
	lib, err := Open(cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, lib.Close()) }()

	_, err = lib.Load(context.Background())
	require.NoError(t, err)

	// Then: the cache file was written
	require.NotNil(t, lib.Cache())
	assert.FileExists(t, cfg.Cache.Path)
	assert.Equal(t, cfg.Search.MaxResults, lib.Engine().Config().DefaultLimit)
}

func TestOpen_CacheDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Corpus.Path = filepath.Join(t.TempDir(), "songs.json")
	cfg.Cache.Enabled = false

	lib, err := Open(cfg)
	require.NoError(t, err)

	assert.Nil(t, lib.Cache())
	assert.NoError(t, lib.Close())
}

// =============================================================================
// Watch
// =============================================================================

type fakeWatcher struct {
	events   chan []watcher.FileEvent
	errors   chan error
	startErr error
	stopped  atomic.Bool
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		events: make(chan []watcher.FileEvent, 1),
		errors: make(chan error, 1),
	}
}

func (f *fakeWatcher) Start(context.Context) error {
	if f.startErr != nil {
		close(f.events)
		return f.startErr
	}
	return nil
}
func (f *fakeWatcher) Stop() error { f.stopped.Store(true); return nil }
func (f *fakeWatcher) Events() <-chan []watcher.FileEvent { return f.events }
func (f *fakeWatcher) Errors() <-chan error { return f.errors }

func TestWatch_ReloadsOnEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Given: a loaded library and a watcher
	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, nil)
	first, err := lib.Load(context.Background())
	require.NoError(t, err)

	w := newFakeWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx, w) }()

	// When: the corpus changes and the watcher reports it
	writeCorpus(t, path, songs()[:1])
	w.errors <- assert.AnError
	w.events <- []watcher.FileEvent{{Path: path, Operation: watcher.OpModify, Timestamp: time.Now()}}

	// Then: a new generation with one song is published
	assert.Eventually(t, func() bool {
		st := lib.Status(context.Background())
		return st.Generation > first.Generation && st.Records == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, w.stopped.Load())
}

func TestWatch_StopsWhenEventsClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	lib := newLibrary(t, "songs.json", nil)
	w := newFakeWatcher()
	close(w.events)

	err := lib.Watch(context.Background(), w)

	assert.NoError(t, err)
	assert.True(t, w.stopped.Load())
}

func TestWatch_FailedReloadKeepsServing(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "songs.json")
	writeCorpus(t, path, songs())
	lib := newLibrary(t, path, nil)
	first, err := lib.Load(context.Background())
	require.NoError(t, err)

	w := newFakeWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx, w) }()

	// When: the corpus is deleted
	require.NoError(t, os.Remove(path))
	w.events <- []watcher.FileEvent{{Path: path, Operation: watcher.OpDelete}}

	// Then: the failure is recorded and the old generation stays
	assert.Eventually(t, func() bool {
		return lib.Status(context.Background()).LastError != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, first.Generation, lib.Status(context.Background()).Generation)

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_StartError(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Given: a watcher that cannot start
	lib := newLibrary(t, "songs.json", nil)
	w := newFakeWatcher()
	w.startErr = sberrors.New(sberrors.ErrCodeWatchFailed, "watch directory /missing", nil)

	// When: watching
	err := lib.Watch(context.Background(), w)

	// Then: the start error is returned
	require.Error(t, err)
	assert.Equal(t, sberrors.ErrCodeWatchFailed, sberrors.GetCode(err))
	assert.True(t, w.stopped.Load())
}
