package search

import (
	"strings"

	"github.com/Aman-CERP/songbook/internal/index"
	"github.com/Aman-CERP/songbook/internal/normalize"
)

// DefaultLimit is the number of results returned when no limit is given.
const DefaultLimit = 50

// Search returns the records of ix matching rawQuery, in corpus order, at
// most limit of them (DefaultLimit when limit <= 0). A query that is empty
// after trimming matches nothing. The result is never nil.
func Search(ix *index.Index, rawQuery string, limit int) []index.Record {
	q := NormalizeQuery(rawQuery)
	if q == "" || ix == nil {
		return []index.Record{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return scan(ix.Records, q, limit)
}

// NormalizeQuery trims and normalizes a raw query. An empty result means the
// query must not match anything.
func NormalizeQuery(rawQuery string) string {
	return normalize.String(strings.TrimSpace(rawQuery))
}

// Matches reports whether the normalized query occurs in the record's
// normalized title, author or body.
func Matches(rec *index.Record, normQuery string) bool {
	return strings.Contains(rec.NormTitle, normQuery) ||
		strings.Contains(rec.NormAuthor, normQuery) ||
		strings.Contains(rec.NormBody, normQuery)
}

func scan(records []index.Record, normQuery string, limit int) []index.Record {
	out := make([]index.Record, 0, min(limit, 16))
	for i := range records {
		if Matches(&records[i], normQuery) {
			out = append(out, records[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
