package output

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/index"
	"github.com/Aman-CERP/songbook/internal/search"
)

func plainWriter(buf *bytes.Buffer) *Writer {
	return New(buf, NewTheme(buf, ColorNever))
}

// =============================================================================
// Writer
// =============================================================================

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{name: "status with icon", write: func(w *Writer) { w.Status("→", "Loading corpus") }, want: "→ Loading corpus\n"},
		{name: "status without icon", write: func(w *Writer) { w.Status("", "details") }, want: "  details\n"},
		{name: "success", write: func(w *Writer) { w.Successf("Indexed %d songs", 3) }, want: "✓ Indexed 3 songs\n"},
		{name: "warning", write: func(w *Writer) { w.Warning("Corpus unavailable") }, want: "! Corpus unavailable\n"},
		{name: "error", write: func(w *Writer) { w.Errorf("failed: %s", "boom") }, want: "✗ failed: boom\n"},
		{name: "newline", write: func(w *Writer) { w.Newline() }, want: "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(plainWriter(buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Code_IndentsEachLine(t *testing.T) {
	// Given: a plain writer
	buf := &bytes.Buffer{}
	w := plainWriter(buf)

	// When: printing a two line block
	w.Code("corpus:\n  path: songs.json")

	// Then: every line is indented and the block is padded
	assert.Equal(t, "\n  corpus:\n    path: songs.json\n\n", buf.String())
}

func TestWriter_NilTheme_IsPlain(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf, nil)

	w.Success("done")

	assert.False(t, w.Theme().Color())
	assert.Equal(t, "✓ done\n", buf.String())
}

// =============================================================================
// Theme
// =============================================================================

func TestColorEnabled(t *testing.T) {
	buf := &bytes.Buffer{}

	assert.True(t, ColorEnabled(buf, ColorAlways))
	assert.True(t, ColorEnabled(buf, "ALWAYS"))
	assert.False(t, ColorEnabled(buf, ColorNever))
	assert.False(t, ColorEnabled(buf, ColorAuto), "a buffer is not a terminal")
	assert.False(t, ColorEnabled(buf, ""))
}

func TestTheme_Segments_PlainMarker(t *testing.T) {
	theme := NewTheme(&bytes.Buffer{}, ColorNever)
	segs := []search.Segment{{Text: "Śrī "}, {Text: "Gurv", Marked: true}, {Text: "-aṣṭaka"}}

	assert.Equal(t, "Śrī *Gurv*-aṣṭaka", theme.Segments(segs, nil))
	assert.Equal(t, "Śrī *Gurv*-aṣṭaka", theme.Title(segs))
	assert.Equal(t, "plain", theme.Dim("plain"))
}

func TestTheme_Color_EmitsEscapes(t *testing.T) {
	// Given: a theme forced to color
	theme := NewTheme(&bytes.Buffer{}, ColorAlways)
	segs := []search.Segment{{Text: "jaya "}, {Text: "rādhā", Marked: true}}

	// When: rendering a highlighted segment
	out := theme.Segments(segs, nil)

	// Then: the match is styled, not wrapped in the plain marker
	assert.True(t, theme.Color())
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "rādhā")
	assert.NotContains(t, out, "*rādhā*")
}

// =============================================================================
// Results
// =============================================================================

func engineFor(t *testing.T, records ...*corpus.Record) *search.Engine {
	t.Helper()
	e, err := search.NewEngine(index.NewHolder(index.Build(records)), search.EngineConfig{})
	require.NoError(t, err)
	return e
}

func TestRenderResults_TitleMatchFallsBackToFirstLine(t *testing.T) {
	// Given: a song whose title matches the query
	e := engineFor(t, &corpus.Record{
		ID:     "gurv",
		Title:  "Śrī Gurv-aṣṭaka",
		Author: "Viśvanātha",
		Book:   "Stava",
		Verses: []corpus.Verse{{N: 1, Text: []string{"saṁsāra-dāvānala-līḍha-loka"}}},
	})
	set, err := e.Results(context.Background(), "sri", search.Options{})
	require.NoError(t, err)

	// When: rendering without color
	buf := &bytes.Buffer{}
	require.NoError(t, RenderResults(buf, set, NewTheme(buf, ColorNever)))

	// Then: the title is highlighted with its accents and the first line is shown
	assert.Equal(t,
		"1. *Śrī* Gurv-aṣṭaka\n"+
			"   Viśvanātha • Stava\n"+
			"   saṁsāra-dāvānala-līḍha-loka\n",
		buf.String())
}

func TestRenderResults_Ellipsis(t *testing.T) {
	// Given: a truncated translation snippet
	set := &search.ResultSet{
		Query: "glories",
		Results: []search.Result{{
			Record: index.Record{Record: &corpus.Record{ID: "a", Title: "Song"}},
			Snippet: search.Snippet{
				Found:          true,
				Segments:       []search.Segment{{Text: "all "}, {Text: "glories", Marked: true}, {Text: " to"}},
				Source:         search.SourceTranslation,
				TruncatedLeft:  true,
				TruncatedRight: true,
			},
		}},
	}

	// When: rendering
	buf := &bytes.Buffer{}
	require.NoError(t, RenderResults(buf, set, nil))

	// Then: both cut sides carry an ellipsis
	assert.Contains(t, buf.String(), "   …all *glories* to…\n")
	assert.Contains(t, buf.String(), "   Unknown\n")
}

func TestRenderResults_Numbering(t *testing.T) {
	records := make([]*corpus.Record, 0, 10)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		records = append(records, &corpus.Record{ID: id, Title: "Kīrtana " + id})
	}
	set, err := engineFor(t, records...).Results(context.Background(), "kirtana", search.Options{})
	require.NoError(t, err)
	require.Len(t, set.Results, 10)

	buf := &bytes.Buffer{}
	require.NoError(t, RenderResults(buf, set, nil))

	// Then: numbers are right aligned to the widest one
	assert.Contains(t, buf.String(), " 1. *Kīrtana* a\n")
	assert.Contains(t, buf.String(), "10. *Kīrtana* j\n")
}

func TestRenderResults_NoMatches(t *testing.T) {
	tests := []struct {
		name string
		set  *search.ResultSet
		want string
	}{
		{name: "empty set", set: &search.ResultSet{Query: "zzz"}, want: "No songs match \"zzz\"\n"},
		{name: "nil set", set: nil, want: "No songs match \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, RenderResults(buf, tt.set, nil))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

// =============================================================================
// Song view
// =============================================================================

func sampleSong() *corpus.Record {
	return &corpus.Record{
		ID:     "jaya-radha-madhava",
		Title:  "Jaya Rādhā-Mādhava",
		Author: "Bhaktivinoda",
		Verses: []corpus.Verse{
			{
				N:           1,
				Text:        []string{"jaya rādhā-mādhava kuñja-bihārī", "gopī-jana-vallabha"},
				Translation: []string{"All glories to Radha", "Beloved of the gopis"},
			},
			{
				N:    2,
				Note: "refrain",
				Text: []string{"giri-vara-dhārī"},
			},
		},
	}
}

func renderSong(t *testing.T, view SongView) string {
	t.Helper()
	rec := sampleSong()
	h := search.HighlightRecord(rec, search.NormalizeQuery("radha"), search.DefaultMarker)

	buf := &bytes.Buffer{}
	require.NoError(t, RenderSong(buf, h, rec.Byline(), view, nil))
	return buf.String()
}

func TestRenderSong_Grouped(t *testing.T) {
	out := renderSong(t, SongView{Layout: LayoutGrouped, ShowTranslations: true})

	assert.Equal(t,
		"Jaya *Rādhā*-Mādhava\n"+
			"Bhaktivinoda\n"+
			"\n"+
			"  1  jaya *rādhā*-mādhava kuñja-bihārī\n"+
			"     gopī-jana-vallabha\n"+
			"\n"+
			"     All glories to *Radha*\n"+
			"     Beloved of the gopis\n"+
			"\n"+
			"  2  (refrain)\n"+
			"     giri-vara-dhārī\n"+
			"\n"+
			"3 matches\n",
		out)
}

func TestRenderSong_Inline(t *testing.T) {
	out := renderSong(t, SongView{Layout: LayoutInline, ShowTranslations: true})

	assert.Contains(t, out,
		"  1  jaya *rādhā*-mādhava kuñja-bihārī\n"+
			"     All glories to *Radha*\n"+
			"     gopī-jana-vallabha\n"+
			"     Beloved of the gopis\n")
}

func TestRenderSong_InlineLeftoverTranslations(t *testing.T) {
	// Given: more translation lines than verse lines
	rec := &corpus.Record{
		ID:    "x",
		Title: "X",
		Verses: []corpus.Verse{{
			N:           1,
			Text:        []string{"one"},
			Translation: []string{"first", "second"},
		}},
	}
	h := search.HighlightRecord(rec, "", search.DefaultMarker)

	// When: rendering inline
	buf := &bytes.Buffer{}
	require.NoError(t, RenderSong(buf, h, "", SongView{Layout: LayoutInline, ShowTranslations: true}, nil))

	// Then: the extra line follows the paired ones
	assert.Equal(t, "X\n\n  1  one\n     first\n     second\n", buf.String())
}

func TestRenderSong_HiddenTranslations(t *testing.T) {
	out := renderSong(t, SongView{Layout: LayoutGrouped, ShowTranslations: false})

	assert.NotContains(t, out, "All glories")
	assert.Contains(t, out, "2 matches\n", "hidden translations are not counted")
}
