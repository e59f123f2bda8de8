package search

import (
	"fmt"

	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/index"
)

func rec(id, title, author string, lines, translations []string, categories ...string) *corpus.Record {
	return &corpus.Record{
		ID:           id,
		Title:        title,
		Author:       author,
		Lines:        lines,
		Translations: translations,
		Categories:   categories,
		Verses:       []corpus.Verse{{N: 1, Text: lines, Translation: translations}},
	}
}

func build(records ...*corpus.Record) *index.Index {
	return index.Build(records)
}

func ids(records []index.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// numbered returns n records titled "Kīrtana <i>" with one body line each.
func numbered(n int) []*corpus.Record {
	out := make([]*corpus.Record, n)
	for i := range out {
		category := "even"
		if i%2 == 1 {
			category = "odd"
		}
		out[i] = rec(fmt.Sprintf("k%04d", i), fmt.Sprintf("Kīrtana %d", i), "",
			[]string{fmt.Sprintf("line of song %d", i)}, nil, category)
	}
	return out
}
