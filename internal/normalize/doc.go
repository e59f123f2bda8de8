// Package normalize converts text into the canonical comparison form used for
// diacritic-insensitive matching and keeps a coordinate map back to the
// original text.
//
// The canonical form is produced rune by rune:
//
//   - canonical decomposition (NFD)
//   - removal of nonspacing combining marks (Unicode category Mn)
//   - folding of apostrophe-like quotes (’ ‘ ʻ ʼ ` ´) to ASCII '
//   - lowercasing
//
// The normalized form is only ever used for comparison. Anything shown to a
// reader is sliced from the original string through a [PositionMap], so
// accents and case survive in rendered output:
//
//	res := normalize.Normalize("Śrī Gurv-aṣṭaka")
//	// res.Text == "sri gurv-astaka"
//	i := strings.Index(res.Text, "astaka")
//	start, end := res.Map.Span(normalize.Span{Start: i, End: i + len("astaka")})
//	// original[start:end] == "aṣṭaka"
//
// Offsets on both sides are byte offsets into Go strings and always fall on
// rune boundaries.
//
// # Thread Safety
//
// All functions are pure. A Result may be shared between goroutines.
package normalize
