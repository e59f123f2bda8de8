package search

import (
	"strings"

	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/normalize"
)

// Highlighted is a text split into verbatim and marked segments.
type Highlighted struct {
	Segments []Segment `json:"segments"`
	Matches  int       `json:"matches"`
	Marker   Marker    `json:"-"`
}

// Markup returns the text with every marked segment wrapped in the marker.
func (h Highlighted) Markup() string {
	return render(h.Segments, h.Marker.orDefault())
}

// Plain returns the text without markup.
func (h Highlighted) Plain() string {
	return render(h.Segments, Marker{})
}

// HighlightAll marks every non-overlapping occurrence of normQuery in
// original, scanning left to right. Matched regions are cut from the original
// text so they keep their diacritics; everything else is copied verbatim. An
// empty query returns original as a single unmarked segment.
func HighlightAll(original, normQuery string, marker Marker) Highlighted {
	h := Highlighted{Marker: marker.orDefault()}
	if normQuery == "" {
		h.Segments = []Segment{{Text: original}}
		return h
	}

	res := normalize.Normalize(original)
	prev := 0
	for from := 0; from <= len(res.Text)-len(normQuery); {
		at := strings.Index(res.Text[from:], normQuery)
		if at < 0 {
			break
		}
		at += from
		from = at + len(normQuery)

		start, end := res.Map.Span(normalize.Span{Start: at, End: from})
		if start < prev {
			// The previous match already covers this character.
			start = prev
		}
		if end <= start {
			continue
		}
		if start > prev {
			h.Segments = append(h.Segments, Segment{Text: original[prev:start]})
		}
		h.Segments = append(h.Segments, Segment{Text: original[start:end], Marked: true})
		h.Matches++
		prev = end
	}

	if prev < len(original) || len(h.Segments) == 0 {
		h.Segments = append(h.Segments, Segment{Text: original[prev:]})
	}
	return h
}

// VerseHighlight holds the highlighted lines of one verse.
type VerseHighlight struct {
	N           int           `json:"n"`
	Note        string        `json:"note,omitempty"`
	Lines       []Highlighted `json:"lines"`
	Translation []Highlighted `json:"translation,omitempty"`
}

// RecordHighlight is a whole song with every occurrence of a query marked.
type RecordHighlight struct {
	ID      string           `json:"id"`
	Title   Highlighted      `json:"title"`
	Verses  []VerseHighlight `json:"verses"`
	Matches int              `json:"matches"`
}

// HighlightRecord highlights the title, verse lines and translation lines of
// rec. Used for searching inside one song.
func HighlightRecord(rec *corpus.Record, normQuery string, marker Marker) RecordHighlight {
	out := RecordHighlight{
		ID:     rec.ID,
		Title:  HighlightAll(rec.Title, normQuery, marker),
		Verses: make([]VerseHighlight, 0, len(rec.Verses)),
	}
	out.Matches = out.Title.Matches

	each := func(lines []string) []Highlighted {
		hs := make([]Highlighted, len(lines))
		for i, line := range lines {
			hs[i] = HighlightAll(line, normQuery, marker)
			out.Matches += hs[i].Matches
		}
		return hs
	}

	for _, v := range rec.Verses {
		out.Verses = append(out.Verses, VerseHighlight{
			N:           v.N,
			Note:        v.Note,
			Lines:       each(v.Text),
			Translation: each(v.Translation),
		})
	}
	return out
}
