// Package corpus loads, validates and persists the song collection that the
// search index is built from.
//
// A corpus file is JSON in one of two shapes:
//
//	{"songs": [{"id": "...", "title": "...", "verses": [...]}, ...]}
//	[{"id": "...", "title": "...", "verses": [...]}, ...]
//
// Each verse carries its body lines under "text" and optional parallel
// translation lines under "translation". After loading, every [Record] also
// exposes the flattened Lines and Translations in verse order, which is the
// form the indexer and snippet extractor consume.
//
// Records are treated as read-only once a [Corpus] has been built.
package corpus
