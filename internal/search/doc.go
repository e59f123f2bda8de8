// Package search implements diacritic-insensitive substring search over an
// index generation, plus the two presentation helpers that need the same
// normalization: snippet extraction and full-text highlighting.
//
// Matching is exact after normalization. There is no scoring: results come
// back in corpus order, and a record matches when the normalized query is a
// substring of its normalized title, author or body.
//
// Everything shown to a reader is cut from the original text. Offsets found
// in normalized space are translated through a normalize.PositionMap, so
// accents and case survive inside highlights:
//
//	h := search.HighlightAll("café café", normalize.String("cafe"), search.DefaultMarker)
//	h.Markup() // "<mark>café</mark> <mark>café</mark>"
//
// [Search], [ExtractSnippet] and [HighlightAll] are pure functions and safe
// for concurrent use. [Engine] adds generation handling, result limits,
// document restrictions and sharding on top of them.
package search
