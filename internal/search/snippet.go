package search

import (
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/songbook/internal/normalize"
)

// DefaultSnippetPad is the number of normalized characters kept on each side
// of a match.
const DefaultSnippetPad = 40

// Source tells where a snippet came from.
type Source string

const (
	// SourceBody is a match in the song's verse lines.
	SourceBody Source = "body"
	// SourceTranslation is a match in the translation lines.
	SourceTranslation Source = "translation"
	// SourceFallback is the first verse line shown when nothing matched.
	SourceFallback Source = "fallback"
)

// Snippet is a bounded excerpt of one line around a match.
//
// The zero value is NoMatch: no scanned line contained the query. A found
// snippet may still have an empty highlight, for example for an empty query.
type Snippet struct {
	// Found is false for NoMatch.
	Found bool `json:"found"`

	// Text is the excerpt with the match wrapped in the marker.
	Text string `json:"text"`

	// Segments is the excerpt split into verbatim and marked pieces.
	Segments []Segment `json:"segments,omitempty"`

	// Line is the index of the matching line in the scanned list.
	Line int `json:"line"`

	Source Source `json:"source,omitempty"`

	// TruncatedLeft and TruncatedRight report that the excerpt does not reach
	// the start or end of its line.
	TruncatedLeft  bool `json:"truncated_left,omitempty"`
	TruncatedRight bool `json:"truncated_right,omitempty"`
}

// NoMatch is returned by ExtractSnippet when no line contains the query.
var NoMatch = Snippet{}

// Render returns Text with ellipsis added on truncated sides.
func (s Snippet) Render(ellipsis string) string {
	var b strings.Builder
	b.Grow(len(s.Text) + 2*len(ellipsis))
	if s.TruncatedLeft {
		b.WriteString(ellipsis)
	}
	b.WriteString(s.Text)
	if s.TruncatedRight {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// ExtractSnippet returns an excerpt of the first line in lines whose
// normalized form contains normQuery. The excerpt keeps pad normalized
// characters on each side of the match, is cut from the original line, and
// wraps the match in marker. Later lines are not considered once one matches.
func ExtractSnippet(lines []string, normQuery string, pad int, marker Marker) Snippet {
	marker = marker.orDefault()
	if pad < 0 {
		pad = 0
	}

	for i, line := range lines {
		res := normalize.Normalize(line)
		at := strings.Index(res.Text, normQuery)
		if at < 0 {
			continue
		}

		ws := backRunes(res.Text, at, pad)
		we := forwardRunes(res.Text, at+len(normQuery), pad)

		start := 0
		if ws > 0 {
			start = res.Map.Start(ws)
		}
		end := res.Map.End(we)
		if we == len(res.Text) {
			end = len(line)
		}
		if end < start {
			end = start
		}
		window := line[start:end]

		s := Snippet{
			Found:          true,
			Line:           i,
			TruncatedLeft:  start > 0,
			TruncatedRight: end < len(line),
		}
		s.Segments = locate(window, normQuery)
		s.Text = render(s.Segments, marker)
		return s
	}

	return NoMatch
}

// locate searches the window again in its own normalized space, since the
// window edges do not necessarily line up with the outer match.
func locate(window, normQuery string) []Segment {
	if normQuery == "" {
		return []Segment{{Text: window}}
	}
	res := normalize.Normalize(window)
	at := strings.Index(res.Text, normQuery)
	if at < 0 {
		return []Segment{{Text: window}}
	}

	hs, he := res.Map.Span(normalize.Span{Start: at, End: at + len(normQuery)})
	if at == 0 {
		hs = 0
	}
	segments := make([]Segment, 0, 3)
	if hs > 0 {
		segments = append(segments, Segment{Text: window[:hs]})
	}
	segments = append(segments, Segment{Text: window[hs:he], Marked: true})
	if he < len(window) {
		segments = append(segments, Segment{Text: window[he:]})
	}
	return segments
}

// backRunes moves from byte offset i back over at most n runes of s.
func backRunes(s string, i, n int) int {
	for ; n > 0 && i > 0; n-- {
		_, w := utf8.DecodeLastRuneInString(s[:i])
		i -= w
	}
	return i
}

// forwardRunes moves from byte offset i forward over at most n runes of s.
func forwardRunes(s string, i, n int) int {
	for ; n > 0 && i < len(s); n-- {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return i
}
