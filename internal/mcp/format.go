package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/songbook/internal/corpus"
	"github.com/Aman-CERP/songbook/internal/search"
)

// maxToolLimit caps the limit a client may request.
const maxToolLimit = 200

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(out *SearchOutput) string {
	if out == nil || len(out.Results) == 0 {
		query := ""
		if out != nil {
			query = out.Query
		}
		return fmt.Sprintf("No songs found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Songs matching \"%s\"\n\n", out.Query))
	sb.WriteString(fmt.Sprintf("Found %d song", len(out.Results)))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range out.Results {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, r.Title))
		sb.WriteString(fmt.Sprintf("**ID:** `%s`", r.ID))
		if r.Author != "" {
			sb.WriteString(fmt.Sprintf(" | **Author:** %s", r.Author))
		}
		if r.Book != "" {
			sb.WriteString(fmt.Sprintf(" | **Book:** %s", r.Book))
		}
		sb.WriteString("\n")
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("\n> %s\n", r.Snippet))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatSong formats a whole song as markdown.
func FormatSong(out *GetSongOutput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", out.Title))

	byline := (&corpus.Record{Author: out.Author, Book: out.Book}).Byline()
	sb.WriteString(fmt.Sprintf("*%s*\n", byline))

	for _, v := range out.Verses {
		sb.WriteString(fmt.Sprintf("\n**%d.**", v.N))
		if v.Note != "" {
			sb.WriteString(fmt.Sprintf(" _(%s)_", v.Note))
		}
		sb.WriteString("\n")
		for _, line := range v.Lines {
			sb.WriteString(line + "  \n")
		}
		if len(v.Translation) > 0 {
			sb.WriteString("\n")
			for _, line := range v.Translation {
				sb.WriteString("> " + line + "\n")
			}
		}
	}

	if out.Matches > 0 {
		sb.WriteString(fmt.Sprintf("\n%d match", out.Matches))
		if out.Matches != 1 {
			sb.WriteString("es")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// toSongSummary converts a search result to the tool output format.
func toSongSummary(r search.Result, normQuery string, marker search.Marker) SongSummary {
	return SongSummary{
		ID:            r.ID,
		Title:         search.HighlightAll(r.Title, normQuery, marker).Markup(),
		Author:        r.Author,
		Book:          r.Book,
		Categories:    r.Categories,
		Snippet:       r.Snippet.Render("…"),
		SnippetSource: string(r.Snippet.Source),
		Matched:       r.Snippet.Found,
	}
}

// toSongOutput converts a highlighted record to the tool output format.
func toSongOutput(h search.RecordHighlight, rec *corpus.Record) *GetSongOutput {
	out := &GetSongOutput{
		ID:         h.ID,
		Title:      h.Title.Markup(),
		Author:     rec.Author,
		Book:       rec.Book,
		Categories: rec.Categories,
		Matches:    h.Matches,
		Verses:     make([]VerseOutput, 0, len(h.Verses)),
	}
	for _, v := range h.Verses {
		out.Verses = append(out.Verses, VerseOutput{
			N:           v.N,
			Note:        v.Note,
			Lines:       markup(v.Lines),
			Translation: markup(v.Translation),
		})
	}
	return out
}

func markup(hs []search.Highlighted) []string {
	if len(hs) == 0 {
		return nil
	}
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.Markup()
	}
	return out
}
