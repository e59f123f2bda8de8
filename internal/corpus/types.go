package corpus

import (
	"fmt"
	"time"
)

// Verse is one numbered stanza of a song.
type Verse struct {
	N           int      `json:"n"`
	Note        string   `json:"note,omitempty"`
	Text        []string `json:"text"`
	Translation []string `json:"translation,omitempty"`
}

// Record is one song as supplied by the corpus file.
type Record struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Author     string   `json:"author,omitempty"`
	Book       string   `json:"book,omitempty"`
	Verses     []Verse  `json:"verses,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Deities    []string `json:"deity,omitempty"`

	// Lines are the body lines of all verses, in verse order.
	Lines []string `json:"-"`
	// Translations are the translation lines of all verses, in verse order.
	Translations []string `json:"-"`
}

// flatten derives Lines and Translations from Verses. A record built in code
// with only Lines/Translations gets a single synthetic verse so that it
// survives a JSON round trip.
func (r *Record) flatten() {
	if len(r.Verses) == 0 {
		if len(r.Lines) > 0 || len(r.Translations) > 0 {
			r.Verses = []Verse{{N: 1, Text: r.Lines, Translation: r.Translations}}
		}
		return
	}

	r.Lines = r.Lines[:0:0]
	r.Translations = r.Translations[:0:0]
	for _, v := range r.Verses {
		r.Lines = append(r.Lines, v.Text...)
		r.Translations = append(r.Translations, v.Translation...)
	}
}

// Byline returns "author • book" with missing parts omitted, or "Unknown"
// when the record has neither.
func (r *Record) Byline() string {
	author := r.Author
	if author == "" {
		author = "Unknown"
	}
	if r.Book == "" {
		return author
	}
	return author + " • " + r.Book
}

// Corpus is one loaded song collection.
type Corpus struct {
	// Records in file order.
	Records []*Record

	// Fingerprint identifies the content the records were decoded from.
	Fingerprint uint64

	// Source is the path the corpus was read from, or "cache" when it was
	// restored from the offline cache.
	Source string

	// LoadedAt is when the corpus was read.
	LoadedAt time.Time
}

// Len returns the number of records.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// FingerprintHex returns the fingerprint as a fixed-width hex string.
func (c *Corpus) FingerprintHex() string {
	return fmt.Sprintf("%016x", c.Fingerprint)
}

// Upsert replaces the record with the same ID, or appends rec when no such
// record exists. It reports whether an existing record was replaced.
func (c *Corpus) Upsert(rec *Record) bool {
	rec.flatten()
	for i, existing := range c.Records {
		if existing.ID == rec.ID {
			c.Records[i] = rec
			return true
		}
	}
	c.Records = append(c.Records, rec)
	return false
}
