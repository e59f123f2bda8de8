package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/songbook/internal/search"
)

// Ellipsis marks a snippet cut short of its line.
const Ellipsis = "…"

// RenderResults writes a numbered result list: highlighted title, byline and
// snippet for every hit.
func RenderResults(out io.Writer, set *search.ResultSet, theme *Theme) error {
	if theme == nil {
		theme = NewTheme(out, ColorNever)
	}

	var b strings.Builder
	if set == nil || len(set.Results) == 0 {
		query := ""
		if set != nil {
			query = set.Query
		}
		fmt.Fprintf(&b, "No songs match %q\n", query)
		_, err := io.WriteString(out, b.String())
		return err
	}

	width := len(fmt.Sprint(len(set.Results)))
	indent := strings.Repeat(" ", width+2)

	for i, r := range set.Results {
		title := search.HighlightAll(r.Title, set.NormQuery, search.DefaultMarker)
		num := fmt.Sprintf("%*d.", width, i+1)

		fmt.Fprintf(&b, "%s %s\n", theme.Number(num), theme.Title(title.Segments))
		fmt.Fprintf(&b, "%s%s\n", indent, theme.Byline(r.Byline()))
		if line := renderSnippet(r.Snippet, theme); line != "" {
			fmt.Fprintf(&b, "%s%s\n", indent, line)
		}
		if i < len(set.Results)-1 {
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func renderSnippet(s search.Snippet, theme *Theme) string {
	if len(s.Segments) == 0 {
		return ""
	}

	var b strings.Builder
	if s.TruncatedLeft {
		b.WriteString(theme.Dim(Ellipsis))
	}
	if s.Source == search.SourceTranslation {
		b.WriteString(theme.Translation(s.Segments))
	} else {
		b.WriteString(theme.Segments(s.Segments, nil))
	}
	if s.TruncatedRight {
		b.WriteString(theme.Dim(Ellipsis))
	}
	return b.String()
}
