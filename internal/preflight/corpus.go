package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/store"
)

// CheckCorpus loads the corpus file and reports problems that indexing
// would otherwise only log: duplicate IDs and songs without verses.
func (c *Checker) CheckCorpus() CheckResult {
	result := CheckResult{
		Name:     "corpus",
		Required: true,
	}

	path := c.cfg.Corpus.Path
	loaded, err := corpus.Load(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot load %s", path)
		result.Details = err.Error()
		return result
	}

	if loaded.Len() == 0 {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s has no songs", path)
		return result
	}

	seen := make(map[string]struct{}, loaded.Len())
	var duplicates, empty []string
	for _, rec := range loaded.Records {
		if _, dup := seen[rec.ID]; dup {
			duplicates = append(duplicates, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		if len(rec.Lines) == 0 {
			empty = append(empty, rec.ID)
		}
	}

	result.Message = fmt.Sprintf("%d songs in %s", loaded.Len(), path)
	var details []string
	if len(duplicates) > 0 {
		details = append(details, fmt.Sprintf("duplicate ids (later ones are ignored): %s", strings.Join(duplicates, ", ")))
	}
	if len(empty) > 0 {
		details = append(details, fmt.Sprintf("songs without verses: %s", strings.Join(empty, ", ")))
	}
	if len(details) > 0 {
		result.Status = StatusWarn
		result.Details = strings.Join(details, "; ")
		return result
	}

	result.Status = StatusPass
	return result
}

// CheckCache opens the offline cache and reports what it holds. A cache
// that fails its integrity check is discarded by the open.
func (c *Checker) CheckCache(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "offline_cache",
		Required: false,
	}

	if !c.cfg.Cache.Enabled {
		result.Status = StatusWarn
		result.Message = "disabled; searches fail when the corpus file is unavailable"
		return result
	}

	cache, err := store.Open(c.cfg.Cache.Path)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot open %s", c.cfg.Cache.Path)
		result.Details = err.Error()
		return result
	}
	defer func() { _ = cache.Close() }()

	n, err := cache.Count(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = "cannot read cache"
		result.Details = err.Error()
		return result
	}

	result.Status = StatusPass
	if n == 0 {
		result.Message = fmt.Sprintf("empty (%s)", cache.Path())
		return result
	}
	result.Message = fmt.Sprintf("%d songs (%s)", n, cache.Path())
	if updated, ok, err := cache.Meta(ctx, store.MetaUpdatedAt); err == nil && ok {
		result.Details = "updated " + updated
	}
	return result
}
