package mcp

// Tool names.
const (
	ToolSearch         = "search_songs"
	ToolGetSong        = "get_song"
	ToolListCategories = "list_categories"
	ToolIndexStatus    = "index_status"
	ToolReload         = "reload_corpus"
)

// SearchInput defines the input schema for the search_songs tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"text to find in titles, authors, verses and translations; diacritics and case are ignored"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results"`
	Categories []string `json:"categories,omitempty" jsonschema:"restrict to songs tagged with one of these category keys, e.g. author:Bhaktivinoda"`
	IDs        []string `json:"ids,omitempty" jsonschema:"restrict to these song ids"`
}

// SearchOutput defines the output schema for the search_songs tool.
type SearchOutput struct {
	Query      string        `json:"query"`
	Generation uint64        `json:"generation" jsonschema:"index generation that answered the query"`
	Results    []SongSummary `json:"results" jsonschema:"matching songs in corpus order"`
}

// SongSummary is one search hit.
type SongSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title" jsonschema:"title with matches wrapped in the marker"`
	Author        string   `json:"author,omitempty"`
	Book          string   `json:"book,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Snippet       string   `json:"snippet,omitempty" jsonschema:"excerpt around the first matching line"`
	SnippetSource string   `json:"snippet_source,omitempty" jsonschema:"body, translation or fallback"`
	Matched       bool     `json:"matched" jsonschema:"false when the snippet is the first line shown for a title or author match"`
}

// GetSongInput defines the input schema for the get_song tool.
type GetSongInput struct {
	ID    string `json:"id" jsonschema:"song id from search_songs"`
	Query string `json:"query,omitempty" jsonschema:"text to highlight inside the song"`
}

// GetSongOutput defines the output schema for the get_song tool.
type GetSongOutput struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Author     string        `json:"author,omitempty"`
	Book       string        `json:"book,omitempty"`
	Categories []string      `json:"categories,omitempty"`
	Matches    int           `json:"matches"`
	Verses     []VerseOutput `json:"verses"`
}

// VerseOutput is one verse with highlighted lines.
type VerseOutput struct {
	N           int      `json:"n"`
	Note        string   `json:"note,omitempty"`
	Lines       []string `json:"lines"`
	Translation []string `json:"translation,omitempty"`
}

// ListCategoriesInput defines the input schema for the list_categories tool (no parameters).
type ListCategoriesInput struct{}

// ListCategoriesOutput defines the output schema for the list_categories tool.
type ListCategoriesOutput struct {
	Categories []CategoryCount `json:"categories"`
}

// CategoryCount is a category key and the number of songs tagged with it.
type CategoryCount struct {
	Key   string `json:"key"`
	Songs int    `json:"songs"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Corpus  CorpusInfo `json:"corpus"`
	Index   IndexInfo  `json:"index"`
	Cache   *CacheInfo `json:"cache,omitempty"`
	Queries QueryInfo  `json:"queries"`
}

// CorpusInfo describes where the songs came from.
type CorpusInfo struct {
	Path      string `json:"path"`
	Source    string `json:"source"`
	Offline   bool   `json:"offline" jsonschema:"true when served from the offline cache"`
	LoadedAt  string `json:"loaded_at,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// IndexInfo describes the published index generation.
type IndexInfo struct {
	Generation  uint64 `json:"generation"`
	Songs       int    `json:"songs"`
	Categories  int    `json:"categories"`
	Fingerprint string `json:"fingerprint,omitempty"`
	BuiltAt     string `json:"built_at,omitempty"`
}

// CacheInfo describes the offline cache.
type CacheInfo struct {
	Path  string `json:"path"`
	Songs int    `json:"songs"`
}

// QueryInfo summarizes query telemetry for the session.
type QueryInfo struct {
	Total         int64    `json:"total"`
	ZeroResultPct float64  `json:"zero_result_pct"`
	TopTerms      []string `json:"top_terms,omitempty"`
}

// ReloadInput defines the input schema for the reload_corpus tool (no parameters).
type ReloadInput struct{}

// ReloadOutput defines the output schema for the reload_corpus tool.
type ReloadOutput struct {
	Source     string `json:"source"`
	Songs      int    `json:"songs"`
	Generation uint64 `json:"generation"`
	FromCache  bool   `json:"from_cache"`
	Unchanged  bool   `json:"unchanged"`
}
