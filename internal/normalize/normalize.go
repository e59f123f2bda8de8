package normalize

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Span is a half-open [Start, End) byte range within a normalized string.
type Span struct {
	Start int
	End   int
}

// Len returns the width of the span in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Result is the canonical form of one input string together with the map
// from normalized offsets back to offsets in that input.
type Result struct {
	// Text is the canonical comparison form. Never display it.
	Text string

	// Map translates offsets in Text to offsets in the original string.
	Map *PositionMap
}

// Normalize returns the canonical comparison form of text and its position
// map. It never fails: bytes that are not valid UTF-8 and runes without a
// decomposition pass through, lowercased where that applies.
func Normalize(text string) Result {
	if text == "" {
		return Result{Map: identityMap()}
	}

	n := newNormalizer(len(text), true)
	n.run(text)

	return Result{
		Text: string(n.out),
		Map:  n.positionMap(len(text)),
	}
}

// String returns only the canonical form of text. It skips building the
// position map and is the one to use for index fields and queries.
func String(text string) string {
	if text == "" {
		return ""
	}
	n := newNormalizer(len(text), false)
	n.run(text)
	return string(n.out)
}

// normalizer holds the buffers for one normalization call.
type normalizer struct {
	track bool

	out     []byte
	scratch []byte
	decomp  []byte

	// starts[i] is the original offset of the rune that produced byte i.
	starts []int
	// ends[i] is the smallest original offset whose prefix normalizes to
	// at least i bytes.
	ends []int
	// bounds[i] is ends[i] advanced over the runes that normalize to
	// nothing (combining marks) directly after it.
	bounds []int
}

func newNormalizer(size int, track bool) *normalizer {
	n := &normalizer{
		track: track,
		out:   make([]byte, 0, size),
	}
	if track {
		n.starts = make([]int, 0, size+1)
		n.ends = make([]int, 1, size+1)
		n.bounds = make([]int, 1, size+1)
	}
	return n
}

func (n *normalizer) run(text string) {
	for o := 0; o < len(text); {
		r, w := utf8.DecodeRuneInString(text[o:])
		before := len(n.out)

		switch {
		case r == utf8.RuneError && w == 1:
			n.out = append(n.out, text[o])
		case r < utf8.RuneSelf:
			n.out = append(n.out, foldASCII(byte(r)))
		default:
			n.appendRune(r)
		}

		if n.track {
			n.record(o, o+w, len(n.out)-before)
		}
		o += w
	}
}

// appendRune decomposes r and emits every surviving component.
func (n *normalizer) appendRune(r rune) {
	n.scratch = utf8.AppendRune(n.scratch[:0], r)
	n.decomp = norm.NFD.Append(n.decomp[:0], n.scratch...)
	for i := 0; i < len(n.decomp); {
		d, w := utf8.DecodeRune(n.decomp[i:])
		i += w
		n.emit(d)
	}
}

func (n *normalizer) emit(r rune) {
	if unicode.Is(unicode.Mn, r) {
		return
	}
	if isApostrophe(r) {
		n.out = append(n.out, '\'')
		return
	}

	lower := unicode.ToLower(r)
	if lower != r {
		// A lowercase mapping can land on a precomposed rune; decompose it
		// again so the output stays stable under renormalization.
		if s := string(lower); !norm.NFD.IsNormalString(s) {
			for _, d := range norm.NFD.String(s) {
				n.emit(d)
			}
			return
		}
	}
	n.out = utf8.AppendRune(n.out, lower)
}

// record extends the coordinate tables for one original rune spanning
// [start, end) that produced emitted bytes of output.
func (n *normalizer) record(start, end, emitted int) {
	if emitted == 0 {
		if len(n.out) > 0 {
			n.bounds[len(n.bounds)-1] = end
		}
		return
	}
	for i := 0; i < emitted; i++ {
		n.starts = append(n.starts, start)
		n.ends = append(n.ends, end)
		n.bounds = append(n.bounds, end)
	}
}

func (n *normalizer) positionMap(origLen int) *PositionMap {
	n.starts = append(n.starts, origLen)
	return &PositionMap{
		starts:  n.starts,
		ends:    n.ends,
		bounds:  n.bounds,
		origLen: origLen,
	}
}

func foldASCII(c byte) byte {
	switch {
	case c >= 'A' && c <= 'Z':
		return c + ('a' - 'A')
	case c == '`':
		return '\''
	default:
		return c
	}
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '`', '´', '‘', '’', 'ʻ', 'ʼ':
		return true
	default:
		return false
	}
}
