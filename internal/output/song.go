package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/songbook/internal/search"
)

// Translation layouts, matching display.translation_layout in the config.
const (
	LayoutGrouped = "grouped"
	LayoutInline  = "inline"
)

// SongView controls how a single song is rendered.
type SongView struct {
	// Layout is LayoutGrouped (translation after each verse) or LayoutInline
	// (each translation line under the line it belongs to).
	Layout string

	ShowTranslations bool
}

// RenderSong writes a whole song with its matches highlighted.
func RenderSong(out io.Writer, song search.RecordHighlight, byline string, view SongView, theme *Theme) error {
	if theme == nil {
		theme = NewTheme(out, ColorNever)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", theme.Title(song.Title.Segments))
	if byline != "" {
		fmt.Fprintf(&b, "%s\n", theme.Byline(byline))
	}

	matches := song.Title.Matches
	for _, v := range song.Verses {
		b.WriteByte('\n')
		num := theme.Number(fmt.Sprintf("%3d", v.N))
		lead := num + "  "
		pad := "     "

		if v.Note != "" {
			fmt.Fprintf(&b, "%s%s\n", lead, theme.Dim("("+v.Note+")"))
			lead = pad
		}

		translations := v.Translation
		if !view.ShowTranslations {
			translations = nil
		}

		for _, h := range translations {
			matches += h.Matches
		}

		for i, line := range v.Lines {
			matches += line.Matches
			fmt.Fprintf(&b, "%s%s\n", lead, theme.Segments(line.Segments, nil))
			lead = pad
			if view.Layout == LayoutInline && i < len(translations) {
				fmt.Fprintf(&b, "%s%s\n", pad, theme.Translation(translations[i].Segments))
			}
		}

		rest := translations
		if view.Layout == LayoutInline {
			if len(v.Lines) < len(rest) {
				rest = rest[len(v.Lines):]
			} else {
				rest = nil
			}
		} else if len(rest) > 0 && len(v.Lines) > 0 {
			b.WriteByte('\n')
		}
		for _, t := range rest {
			fmt.Fprintf(&b, "%s%s\n", lead, theme.Translation(t.Segments))
			lead = pad
		}
	}

	// Hidden translations do not count toward the shown total.
	if matches > 0 {
		fmt.Fprintf(&b, "\n%s\n", theme.Dim(fmt.Sprintf("%d match%s", matches, plural(matches, "es"))))
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func plural(n int, suffix string) string {
	if n == 1 {
		return ""
	}
	return suffix
}
