package index

import (
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/normalize"
)

// Category key prefixes derived from record fields.
const (
	AuthorPrefix = "author:"
	DeityPrefix  = "deity:"
)

// Record is the search view of one corpus record. The embedded record is
// shared with the corpus and must not be modified.
type Record struct {
	*corpus.Record

	NormTitle  string
	NormAuthor string
	// NormBody is the normalized body lines followed by the translation
	// lines, joined with "\n".
	NormBody string
}

// Index is one generation of the search index.
type Index struct {
	// Records in corpus order with unique IDs.
	Records []Record

	// Generation is assigned by Holder.Swap; zero until published.
	Generation uint64

	// Fingerprint of the corpus the index was built from, if known.
	Fingerprint uint64

	BuiltAt time.Time

	byID       map[string]int
	categories map[string][]int
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	workers     int
	fingerprint uint64
}

// WithWorkers sets how many goroutines normalize records. Values below one
// mean runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *buildOptions) {
		o.workers = n
	}
}

// WithFingerprint records the corpus fingerprint on the built index.
func WithFingerprint(fp uint64) Option {
	return func(o *buildOptions) {
		o.fingerprint = fp
	}
}

// Build indexes records. It is deterministic and does not modify its input.
// Nil records are skipped; when two records share an ID the first one is kept
// and the later one is dropped with a warning.
func Build(records []*corpus.Record, opts ...Option) *Index {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	unique := make([]*corpus.Record, 0, len(records))
	byID := make(map[string]int, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, dup := byID[rec.ID]; dup {
			slog.Warn("duplicate_song_id",
				slog.String("id", rec.ID),
				slog.String("title", rec.Title))
			continue
		}
		byID[rec.ID] = len(unique)
		unique = append(unique, rec)
	}

	out := make([]Record, len(unique))
	var g errgroup.Group
	g.SetLimit(o.workers)
	step := chunkSize(len(unique), o.workers)
	for start := 0; start < len(unique); start += step {
		end := min(start+step, len(unique))
		g.Go(func() error {
			for i := start; i < end; i++ {
				out[i] = newRecord(unique[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	ix := &Index{
		Records:     out,
		Fingerprint: o.fingerprint,
		BuiltAt:     time.Now(),
		byID:        byID,
		categories:  buildCategories(out),
	}

	slog.Debug("index_built",
		slog.Int("records", len(out)),
		slog.Int("dropped", len(records)-len(out)),
		slog.Int("categories", len(ix.categories)))

	return ix
}

// FromCorpus builds an index from a loaded corpus, carrying its fingerprint.
func FromCorpus(c *corpus.Corpus, opts ...Option) *Index {
	if c == nil {
		return Build(nil, opts...)
	}
	opts = append([]Option{WithFingerprint(c.Fingerprint)}, opts...)
	return Build(c.Records, opts...)
}

func newRecord(rec *corpus.Record) Record {
	body := make([]string, 0, len(rec.Lines)+len(rec.Translations))
	body = append(body, rec.Lines...)
	body = append(body, rec.Translations...)

	return Record{
		Record:     rec,
		NormTitle:  normalize.String(rec.Title),
		NormAuthor: normalize.String(rec.Author),
		NormBody:   normalize.String(strings.Join(body, "\n")),
	}
}

func chunkSize(n, workers int) int {
	size := (n + workers - 1) / workers
	return max(size, 1)
}

// Len returns the number of records, zero for a nil index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.Records)
}

// Get returns the record with the given ID.
func (ix *Index) Get(id string) (Record, bool) {
	if ix == nil {
		return Record{}, false
	}
	i, ok := ix.byID[id]
	if !ok {
		return Record{}, false
	}
	return ix.Records[i], true
}

// ByCategory returns the records tagged with key, in corpus order. Keys are
// the record's categories plus "author:<name>" and "deity:<name>".
func (ix *Index) ByCategory(key string) []Record {
	if ix == nil {
		return nil
	}
	positions := ix.categories[key]
	out := make([]Record, len(positions))
	for i, p := range positions {
		out[i] = ix.Records[p]
	}
	return out
}

// Categories returns every category key, sorted.
func (ix *Index) Categories() []string {
	if ix == nil {
		return nil
	}
	keys := make([]string, 0, len(ix.categories))
	for k := range ix.categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Positions resolves document IDs and category keys to record positions.
// The result is the sorted union of both; unknown IDs and keys are ignored.
func (ix *Index) Positions(ids, categories []string) []int {
	if ix == nil {
		return nil
	}
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if i, ok := ix.byID[id]; ok {
			seen[i] = struct{}{}
		}
	}
	for _, key := range categories {
		for _, i := range ix.categories[key] {
			seen[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func buildCategories(records []Record) map[string][]int {
	cats := make(map[string][]int)
	add := func(key string, pos int) {
		list := cats[key]
		// A record may list the same category twice.
		if n := len(list); n > 0 && list[n-1] == pos {
			return
		}
		cats[key] = append(list, pos)
	}

	for pos, rec := range records {
		for _, c := range rec.Categories {
			add(c, pos)
		}
		if author := strings.TrimSpace(rec.Author); author != "" {
			add(AuthorPrefix+author, pos)
		}
		for _, d := range rec.Deities {
			add(DeityPrefix+d, pos)
		}
	}
	return cats
}
