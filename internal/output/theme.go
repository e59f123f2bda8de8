package output

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/Aman-CERP/songbook/internal/search"
)

// Color modes, matching display.color in the config.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// PlainMarker wraps matches when color is off.
var PlainMarker = search.Marker{Open: "*", Close: "*"}

// ColorEnabled reports whether output to out should be colored under mode.
// In auto mode that requires a terminal and an unset NO_COLOR.
func ColorEnabled(out io.Writer, mode string) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Theme holds the styles used to paint songbook output.
type Theme struct {
	color bool
	plain search.Marker

	mark        lipgloss.Style
	title       lipgloss.Style
	byline      lipgloss.Style
	number      lipgloss.Style
	translation lipgloss.Style
	dim         lipgloss.Style
	success     lipgloss.Style
	warning     lipgloss.Style
	failure     lipgloss.Style
}

// NewTheme builds a theme for out under the given color mode.
func NewTheme(out io.Writer, mode string) *Theme {
	color := ColorEnabled(out, mode)

	r := lipgloss.NewRenderer(out)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Theme{
		color:       color,
		plain:       PlainMarker,
		mark:        r.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220")),
		title:       r.NewStyle().Bold(true),
		byline:      r.NewStyle().Foreground(lipgloss.Color("244")),
		number:      r.NewStyle().Foreground(lipgloss.Color("110")),
		translation: r.NewStyle().Italic(true).Foreground(lipgloss.Color("250")),
		dim:         r.NewStyle().Faint(true),
		success:     r.NewStyle().Foreground(lipgloss.Color("154")),
		warning:     r.NewStyle().Foreground(lipgloss.Color("220")),
		failure:     r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Color reports whether the theme emits escape sequences.
func (t *Theme) Color() bool {
	return t.color
}

func (t *Theme) paint(style lipgloss.Style, s string) string {
	if !t.color || s == "" {
		return s
	}
	return style.Render(s)
}

// Segments renders highlighted segments. Unmarked text may be painted with
// base so a marked match stands out from its surroundings.
func (t *Theme) Segments(segments []search.Segment, base *lipgloss.Style) string {
	var b strings.Builder
	for _, s := range segments {
		switch {
		case s.Marked && t.color:
			b.WriteString(t.mark.Render(s.Text))
		case s.Marked:
			b.WriteString(t.plain.Wrap(s.Text))
		case base != nil:
			b.WriteString(t.paint(*base, s.Text))
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Title paints a song title.
func (t *Theme) Title(segments []search.Segment) string {
	return t.Segments(segments, &t.title)
}

// Byline paints the author and book line.
func (t *Theme) Byline(s string) string {
	return t.paint(t.byline, s)
}

// Number paints a verse or result number.
func (t *Theme) Number(s string) string {
	return t.paint(t.number, s)
}

// Translation paints a translation line.
func (t *Theme) Translation(segments []search.Segment) string {
	return t.Segments(segments, &t.translation)
}

// Dim paints secondary text such as hints.
func (t *Theme) Dim(s string) string {
	return t.paint(t.dim, s)
}
