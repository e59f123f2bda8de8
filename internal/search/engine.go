package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/index"
	"github.com/Aman-CERP/songbook/internal/telemetry"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// ctxCheckInterval is how many records a worker scans between context checks.
const ctxCheckInterval = 1024

// EngineConfig configures an Engine.
type EngineConfig struct {
	// DefaultLimit applies when Options.Limit is zero or negative.
	DefaultLimit int

	// MaxLimit caps Options.Limit. Zero means no cap.
	MaxLimit int

	// SnippetPad is the context kept around a match in result snippets.
	SnippetPad int

	// ShardThreshold is the candidate count from which a search is split
	// across workers.
	ShardThreshold int

	// Workers is the default number of shards.
	Workers int

	// Marker wraps highlighted text.
	Marker Marker
}

// DefaultEngineConfig returns the configuration used when none is given.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:   DefaultLimit,
		SnippetPad:     DefaultSnippetPad,
		ShardThreshold: 2000,
		Workers:        runtime.GOMAXPROCS(0),
		Marker:         DefaultMarker,
	}
}

// Options restricts one query.
type Options struct {
	// Limit is the maximum number of results (default: EngineConfig.DefaultLimit).
	Limit int

	// IDs and Categories restrict the search to an already resolved set of
	// documents: those with one of the IDs or tagged with one of the
	// category keys. Both empty means the whole corpus.
	IDs        []string
	Categories []string

	// Workers overrides EngineConfig.Workers for this query.
	Workers int
}

func (o Options) restricted() bool {
	return len(o.IDs) > 0 || len(o.Categories) > 0
}

// Result is one hit paired with its snippet.
type Result struct {
	index.Record
	Snippet Snippet
}

// ResultSet is the outcome of Engine.Results.
type ResultSet struct {
	Query      string
	NormQuery  string
	Generation uint64
	Results    []Result
}

// EngineOption configures optional Engine dependencies.
type EngineOption func(*Engine)

// WithMetrics records every query in m.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine runs queries against the generation currently published by a
// holder. Each call reads the holder once, so it sees exactly one
// generation even while a reload swaps in the next one.
type Engine struct {
	holder  *index.Holder
	config  EngineConfig
	metrics *telemetry.QueryMetrics
}

// NewEngine creates an engine over holder. Zero config fields take their
// defaults.
func NewEngine(holder *index.Holder, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if holder == nil {
		return nil, fmt.Errorf("%w: index holder is required", ErrNilDependency)
	}

	defaults := DefaultEngineConfig()
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaults.DefaultLimit
	}
	if config.SnippetPad <= 0 {
		config.SnippetPad = defaults.SnippetPad
	}
	if config.ShardThreshold <= 0 {
		config.ShardThreshold = defaults.ShardThreshold
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	config.Marker = config.Marker.orDefault()

	e := &Engine{holder: holder, config: config}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Index returns the generation new queries will see.
func (e *Engine) Index() *index.Index {
	return e.holder.Current()
}

// Search returns the matching records in corpus order.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]index.Record, error) {
	records, _, err := e.run(ctx, e.holder.Current(), query, opts)
	return records, err
}

// Results runs the query and attaches a snippet to every hit. The snippet is
// taken from the verse lines, then from the translation lines, and falls
// back to the first verse line when the match was in the title or author.
func (e *Engine) Results(ctx context.Context, query string, opts Options) (*ResultSet, error) {
	ix := e.holder.Current()
	records, q, err := e.run(ctx, ix, query, opts)
	if err != nil {
		return nil, err
	}

	set := &ResultSet{
		Query:      query,
		NormQuery:  q,
		Generation: ix.Generation,
		Results:    make([]Result, len(records)),
	}
	for i, rec := range records {
		set.Results[i] = Result{Record: rec, Snippet: e.snippet(rec, q)}
	}
	return set, nil
}

// Highlight marks every occurrence of rawQuery in the song with the given ID.
func (e *Engine) Highlight(id, rawQuery string) (RecordHighlight, error) {
	rec, ok := e.holder.Current().Get(id)
	if !ok {
		return RecordHighlight{}, sberrors.New(sberrors.ErrCodeSongNotFound,
			fmt.Sprintf("no song with id %q", id), nil).WithDetail("id", id)
	}
	return HighlightRecord(rec.Record, NormalizeQuery(rawQuery), e.config.Marker), nil
}

func (e *Engine) snippet(rec index.Record, normQuery string) Snippet {
	s := ExtractSnippet(rec.Lines, normQuery, e.config.SnippetPad, e.config.Marker)
	if s.Found {
		s.Source = SourceBody
		return s
	}

	s = ExtractSnippet(rec.Translations, normQuery, e.config.SnippetPad, e.config.Marker)
	if s.Found {
		s.Source = SourceTranslation
		return s
	}

	if len(rec.Lines) == 0 {
		return NoMatch
	}
	return Snippet{
		Text:     rec.Lines[0],
		Segments: []Segment{{Text: rec.Lines[0]}},
		Source:   SourceFallback,
	}
}

func (e *Engine) limit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = e.config.DefaultLimit
	}
	if e.config.MaxLimit > 0 && limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	return limit
}

func (e *Engine) run(ctx context.Context, ix *index.Index, query string, opts Options) ([]index.Record, string, error) {
	start := time.Now()

	q := NormalizeQuery(query)
	if q == "" {
		return []index.Record{}, q, nil
	}

	c := candidates{ix: ix}
	if opts.restricted() {
		c.positions = ix.Positions(opts.IDs, opts.Categories)
		c.restricted = true
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = e.config.Workers
	}

	limit := e.limit(opts.Limit)
	var (
		records []index.Record
		err     error
	)
	if c.len() < e.config.ShardThreshold || workers <= 1 {
		records, err = c.scan(ctx, 0, c.len(), q, limit)
	} else {
		records, err = c.sharded(ctx, workers, q, limit)
	}
	if err != nil {
		return nil, q, err
	}

	latency := time.Since(start)
	if e.metrics != nil {
		e.metrics.Record(telemetry.QueryEvent{
			Query:       query,
			ResultCount: len(records),
			Latency:     latency,
			Timestamp:   start,
		})
	}
	slog.Debug("search_complete",
		slog.String("query", query),
		slog.Int("results", len(records)),
		slog.Int("candidates", c.len()),
		slog.Uint64("generation", ix.Generation),
		slog.Duration("latency", latency))

	return records, q, nil
}

// candidates is the set of records one query scans: the whole generation or
// a sorted subset of positions.
type candidates struct {
	ix         *index.Index
	positions  []int
	restricted bool
}

func (c candidates) len() int {
	if c.restricted {
		return len(c.positions)
	}
	return c.ix.Len()
}

func (c candidates) at(k int) *index.Record {
	if c.restricted {
		return &c.ix.Records[c.positions[k]]
	}
	return &c.ix.Records[k]
}

// scan checks candidates [from, to) in order and stops after limit hits.
func (c candidates) scan(ctx context.Context, from, to int, normQuery string, limit int) ([]index.Record, error) {
	out := make([]index.Record, 0, min(limit, 16))
	for k := from; k < to; k++ {
		if (k-from)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if rec := c.at(k); Matches(rec, normQuery) {
			out = append(out, *rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// sharded splits the candidates into contiguous ranges, scans them in
// parallel and concatenates the partial results in range order. Every shard
// stops at limit hits, which is enough for the concatenation to be exact.
func (c candidates) sharded(ctx context.Context, workers int, normQuery string, limit int) ([]index.Record, error) {
	n := c.len()
	size := (n + workers - 1) / workers
	shards := make([][]index.Record, 0, workers)
	for from := 0; from < n; from += size {
		shards = append(shards, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	for s := range shards {
		from := s * size
		to := min(from+size, n)
		g.Go(func() error {
			part, err := c.scan(gctx, from, to, normQuery, limit)
			if err != nil {
				return err
			}
			shards[s] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]index.Record, 0, min(limit, 16))
	for _, part := range shards {
		for _, rec := range part {
			out = append(out, rec)
			if len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}
