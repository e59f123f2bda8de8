package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// SourceCache is the Corpus.Source of a corpus restored from the offline cache.
const SourceCache = "cache"

// document is the wrapped on-disk shape.
type document struct {
	Songs []*Record `json:"songs"`
}

// Load reads and parses the corpus file at path.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, sberrors.New(sberrors.ErrCodeCorpusNotFound,
				fmt.Sprintf("corpus file not found: %s", path), err).
				WithDetail("path", path).
				WithSuggestion("set corpus.path in .songbook.yaml or pass --corpus")
		case os.IsPermission(err):
			return nil, sberrors.New(sberrors.ErrCodeFilePermission,
				fmt.Sprintf("cannot read corpus file: %s", path), err).
				WithDetail("path", path)
		default:
			return nil, sberrors.Wrap(sberrors.ErrCodeCorpusNotFound, err).WithDetail("path", path)
		}
	}

	c, err := Parse(data)
	if err != nil {
		var se *sberrors.SongbookError
		if errors.As(err, &se) {
			se.WithDetail("path", path)
		}
		return nil, err
	}
	c.Source = path
	return c, nil
}

// Parse decodes a corpus from JSON. Both the {"songs": [...]} wrapper and a
// bare array are accepted. Records without an ID get one derived from the
// title; a record with neither is rejected.
func Parse(data []byte) (*Corpus, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, sberrors.New(sberrors.ErrCodeCorpusInvalid, "corpus is empty", nil)
	}

	var records []*Record
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, invalid(err)
		}
	} else {
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, invalid(err)
		}
		records = doc.Songs
	}

	out := make([]*Record, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			continue
		}
		if rec.ID == "" {
			rec.ID = Slug(rec.Title)
		}
		if rec.ID == "" {
			return nil, sberrors.New(sberrors.ErrCodeCorpusInvalid,
				fmt.Sprintf("song %d has neither id nor title", i), nil).
				WithDetail("position", fmt.Sprint(i))
		}
		rec.flatten()
		out = append(out, rec)
	}

	return &Corpus{
		Records:     out,
		Fingerprint: xxhash.Sum64(trimmed),
		LoadedAt:    time.Now(),
	}, nil
}

// FromRecords builds a corpus from records already in memory, for example
// those restored from the cache. The fingerprint is computed over their
// JSON encoding.
func FromRecords(records []*Record, source string) (*Corpus, error) {
	for _, rec := range records {
		rec.flatten()
	}
	data, err := json.Marshal(document{Songs: records})
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return &Corpus{
		Records:     records,
		Fingerprint: xxhash.Sum64(data),
		Source:      source,
		LoadedAt:    time.Now(),
	}, nil
}

// Marshal encodes the corpus in the wrapped form with two-space indentation.
func (c *Corpus) Marshal() ([]byte, error) {
	records := c.Records
	if records == nil {
		records = []*Record{}
	}
	data, err := json.MarshalIndent(document{Songs: records}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal corpus: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the corpus to path.
// Uses atomic write (temp file + rename) so a watcher never sees a partial file.
func Save(path string, c *Corpus) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create corpus directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write corpus file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save corpus file: %w", err)
	}
	return nil
}

func invalid(err error) error {
	return sberrors.New(sberrors.ErrCodeCorpusInvalid,
		fmt.Sprintf("corpus is not valid JSON: %v", err), err).
		WithSuggestion(`expected {"songs": [...]} or a JSON array of songs`)
}

// DecodeRecord decodes one record as stored by the offline cache.
func DecodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	rec.flatten()
	return &rec, nil
}
